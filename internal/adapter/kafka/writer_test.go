package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/weir-rating-lab/internal/domain"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 5, 1, 15, 10, 0, 0, time.UTC)
	domain.SetClock(clockwork.NewFakeClockAt(now))
	t.Cleanup(func() { domain.SetClock(nil) })

	eval, err := domain.NewEvaluation(
		domain.Params{Cd: 0.5, CrestWidth: 2.0, MaxHead: 0.6},
		domain.Sampling{Count: 50, MinHead: 0.01},
	)
	require.NoError(t, err)

	msg, err := serializeToMessage(eval)
	require.NoError(t, err)

	assert.Equal(t, []byte(eval.ID), msg.Key)

	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "evaluated_at", msg.Headers[0].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[0].Value)
	assert.Equal(t, "sample_count", msg.Headers[1].Key)
	assert.Equal(t, []byte("50"), msg.Headers[1].Value)

	var decoded domain.Evaluation
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, eval.ID, decoded.ID)
	assert.Equal(t, eval.Params, decoded.Params)
	assert.Len(t, decoded.Curve, 50)
	assert.InDelta(t, eval.Peak.Discharge, decoded.Peak.Discharge, 1e-9)
}
