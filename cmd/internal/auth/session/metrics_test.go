package session

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RegisterAndObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	require.NoError(t, err)

	m.Observe("refresh", "ok")
	m.Observe("refresh", "token_reused")
	m.Observe("refresh", "token_reused")

	assert.Equal(t, 2, testutil.CollectAndCount(m.events))
	assert.InDelta(t, 2, testutil.ToFloat64(m.events.WithLabelValues("refresh", "token_reused")), 0)

	_, err = NewMetrics(reg)
	assert.Error(t, err, "duplicate registration must fail")
}

func TestOutcome(t *testing.T) {
	cases := map[error]string{
		nil:                   "ok",
		ErrNotFound:           "not_found",
		ErrInvalidCredentials: "invalid_credentials",
		ErrMissingToken:       "missing_token",
		ErrInvalidToken:       "invalid_token",
		ErrTokenReused:        "token_reused",
		ErrSessionPersist:     "persist_failed",
		ErrUserStore:          "store_failed",
		ErrExpired:            "error",
	}
	for err, want := range cases {
		assert.Equal(t, want, Outcome(err), "%v", err)
	}
}
