// Package telegram provides an optional chat interface to the lab. Chat
// users inspect the shared board and run ad-hoc ratings; they never move the
// board itself, so a classroom display cannot be disturbed from a phone.
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/couchcryptid/weir-rating-lab/internal/domain"
	"github.com/couchcryptid/weir-rating-lab/internal/render"
)

// Board is the read-only view of the shared board the bot exposes.
type Board interface {
	Current() domain.Evaluation
	Bounds() domain.Bounds
	Sampling() domain.Sampling
}

// Bot handles interactions with the Telegram API.
type Bot struct {
	api    *tgbotapi.BotAPI
	board  Board
	logger *slog.Logger
}

// New authenticates against the Telegram API with the given token.
func New(token string, board Board, logger *slog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return &Bot{api: api, board: board, logger: logger}, nil
}

// Run long-polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) {
	b.logger.Info("telegram bot listening", "account", b.api.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.logger.Info("telegram bot stopping", "reason", ctx.Err())
			return
		case update, open := <-updates:
			if !open {
				return
			}
			if update.Message == nil {
				continue
			}
			b.handleMessage(update.Message)
		}
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.reply(msg.Chat.ID, "Send a command; /help lists what I understand.")
		return
	}

	switch msg.Command() {
	case "start":
		b.reply(msg.Chat.ID, "Welcome to the weir rating lab. Use /current to see the shared "+
			"board, /rate to run your own numbers, or /help for everything else.")
	case "help":
		b.reply(msg.Chat.ID, "Available commands:\n"+
			"/current - shared board state and its rating curve\n"+
			"/bounds - recognized parameter ranges\n"+
			"/rate <Cd> <b> <Hmax> - rate your own weir (does not move the board)\n"+
			"/help - this message")
	case "bounds":
		b.reply(msg.Chat.ID, formatBounds(b.board.Bounds()))
	case "current":
		eval := b.board.Current()
		b.reply(msg.Chat.ID, formatEvaluation(eval))
		b.sendChart(msg.Chat.ID, eval)
	case "rate":
		b.handleRate(msg)
	default:
		b.reply(msg.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleRate(msg *tgbotapi.Message) {
	params, err := parseRateArgs(msg.CommandArguments())
	if err != nil {
		b.reply(msg.Chat.ID, "Usage: /rate <Cd> <b> <Hmax>, e.g. /rate 0.5 2.0 0.6")
		return
	}

	clamped, clampedNames := b.board.Bounds().Clamp(params)
	eval, err := domain.NewEvaluation(clamped, b.board.Sampling())
	if err != nil {
		b.reply(msg.Chat.ID, "Those parameters cannot be rated: "+err.Error())
		return
	}

	text := formatEvaluation(eval)
	if len(clampedNames) > 0 {
		text += "\n(adjusted to bounds: " + strings.Join(clampedNames, ", ") + ")"
	}
	b.reply(msg.Chat.ID, text)
	b.sendChart(msg.Chat.ID, eval)
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Warn("send telegram message failed", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) sendChart(chatID int64, eval domain.Evaluation) {
	var buf bytes.Buffer
	if err := render.WritePNG(&buf, eval); err != nil {
		b.logger.Warn("render telegram chart failed", "evaluation_id", eval.ID, "error", err)
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{
		Name:  "rating-curve.png",
		Bytes: buf.Bytes(),
	})
	photo.Caption = eval.Title()
	if _, err := b.api.Send(photo); err != nil {
		b.logger.Warn("send telegram chart failed", "chat_id", chatID, "error", err)
	}
}

// parseRateArgs parses "/rate <Cd> <b> <Hmax>" arguments.
func parseRateArgs(args string) (domain.Params, error) {
	fields := strings.Fields(args)
	if len(fields) != 3 {
		return domain.Params{}, fmt.Errorf("%w: expected 3 values, got %d", domain.ErrInvalidParameter, len(fields))
	}

	values := make([]float64, 3)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return domain.Params{}, fmt.Errorf("%w: %q is not a number", domain.ErrInvalidParameter, f)
		}
		values[i] = v
	}

	p := domain.Params{Cd: values[0], CrestWidth: values[1], MaxHead: values[2]}
	if err := p.Validate(); err != nil {
		return domain.Params{}, err
	}
	return p, nil
}

func formatEvaluation(eval domain.Evaluation) string {
	return fmt.Sprintf("Broad-crested weir rating\n"+
		"Cd = %.2f, b = %.2f m, Hmax = %.2f m\n"+
		"Peak discharge: %.3f m³/s at H = %.3f m\n"+
		"%d samples from %.3f m",
		eval.Params.Cd, eval.Params.CrestWidth, eval.Params.MaxHead,
		eval.Peak.Discharge, eval.Peak.Head,
		eval.Sampling.Count, eval.Sampling.MinHead)
}

func formatBounds(bounds domain.Bounds) string {
	return fmt.Sprintf("Recognized ranges:\n"+
		"Cd: %.2f – %.2f (step %.2f)\n"+
		"Crest width b: %.1f – %.1f m (step %.1f)\n"+
		"Max head: %.2f – %.2f m (step %.2f)",
		bounds.Cd.Min, bounds.Cd.Max, bounds.Cd.Step,
		bounds.CrestWidth.Min, bounds.CrestWidth.Max, bounds.CrestWidth.Step,
		bounds.MaxHead.Min, bounds.MaxHead.Max, bounds.MaxHead.Step)
}
