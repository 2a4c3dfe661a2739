package notifications

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ducminhle1904/trend-breakout-bot/internal/position"
	"github.com/ducminhle1904/trend-breakout-bot/internal/regime"
	"github.com/ducminhle1904/trend-breakout-bot/internal/strategy"
)

func TestTelegramNotifier_SendAlert(t *testing.T) {
	var got *http.Request
	var text string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		require.NoError(t, r.ParseForm())
		text = r.PostForm.Get("text")
		assert.Equal(t, "42", r.PostForm.Get("chat_id"))
	}))
	defer srv.Close()

	n := NewTelegramNotifier("token", "42")
	n.apiBase = srv.URL
	require.NoError(t, n.SendAlert(context.Background(), LevelSignal, "ENTER LONG BTCUSDT"))

	assert.Equal(t, "/bottoken/sendMessage", got.URL.Path)
	assert.Contains(t, text, "ENTER LONG BTCUSDT")
}

func TestTelegramNotifier_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	n := NewTelegramNotifier("bad", "42")
	n.apiBase = srv.URL
	err := n.SendAlert(context.Background(), LevelError, "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestFormatDecision(t *testing.T) {
	ts := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	enter := strategy.Decision{Action: strategy.ActionEnter, Direction: regime.DirectionUp, Price: 100, Size: 0.5,
		StopLoss: 97, SecondaryStop: 95, Timestamp: ts}
	msg := FormatDecision("BTCUSDT", enter, nil)
	assert.Contains(t, msg, "ENTER")
	assert.Contains(t, msg, "BTCUSDT")
	assert.Contains(t, msg, "stop 97.0000 / 95.0000")
	assert.Contains(t, msg, "2024-05-01 08:00")

	exit := strategy.Decision{Action: strategy.ActionExit, Direction: regime.DirectionUp, Price: 104, Fraction: 0.5,
		Reason: position.ReasonEMAFast, Timestamp: ts}
	fill := &position.Fill{Exit: position.Exit{Final: true}, PnL: 2}
	msg = FormatDecision("BTCUSDT", exit, fill)
	assert.Contains(t, msg, string(position.ReasonEMAFast))
	assert.Contains(t, msg, "fraction 50%")
	assert.Contains(t, msg, "pnl 2.0000, position closed")

	assert.Empty(t, FormatDecision("BTCUSDT", strategy.Decision{}, nil))
	assert.NoError(t, Nop{}.SendAlert(context.Background(), LevelInfo, "x"))
}
