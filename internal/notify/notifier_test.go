package notify

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/arbwatch/internal/domain"
)

type fakeSender struct {
	name  string
	calls []string
	err   error
}

func (f *fakeSender) Send(_ context.Context, title, _ string) error {
	f.calls = append(f.calls, title)
	return f.err
}

func (f *fakeSender) Name() string { return f.name }

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}

func TestNotifier_EventFilter(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, []string{EventOpportunity}, testLogger())

	ctx := context.Background()
	require.NoError(t, n.Notify(ctx, EventStartup, "ignored", "body"))
	assert.Empty(t, sender.calls, "filtered event must not reach senders")

	require.NoError(t, n.Notify(ctx, EventOpportunity, "delivered", "body"))
	assert.Equal(t, []string{"delivered"}, sender.calls)
}

func TestNotifier_EmptyFilterAllowsAll(t *testing.T) {
	sender := &fakeSender{name: "fake"}
	n := NewNotifier([]Sender{sender}, nil, testLogger())

	require.NoError(t, n.Notify(context.Background(), EventShutdown, "bye", "body"))
	assert.Len(t, sender.calls, 1)
}

func TestNotifier_PartialFailureStillDelivers(t *testing.T) {
	bad := &fakeSender{name: "bad", err: errors.New("unreachable")}
	good := &fakeSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, testLogger())

	err := n.Notify(context.Background(), EventOpportunity, "alert", "body")
	assert.Error(t, err, "failed sender must surface as an error")
	assert.Len(t, good.calls, 1, "healthy sender still receives the alert")
}

func TestNotifier_Configured(t *testing.T) {
	assert.False(t, NewNotifier(nil, nil, testLogger()).Configured())
	assert.True(t, NewNotifier([]Sender{&fakeSender{name: "fake"}}, nil, testLogger()).Configured())
}

func TestFormatOpportunity(t *testing.T) {
	opp := domain.Opportunity{
		Symbol:       "BTCUSDT",
		BuyExchange:  "nobitex",
		SellExchange: "wallex",
		BuyPrice:     43000,
		SellPrice:    43860,
		SpreadPct:    2.0,
		ProfitAmount: 860,
		DetectedAt:   time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	title, msg := FormatOpportunity(opp)
	assert.Equal(t, "Arbitrage opportunity detected", title)
	assert.Contains(t, msg, "BTCUSDT")
	assert.Contains(t, msg, "Buy on NOBITEX at 43,000.00")
	assert.Contains(t, msg, "Sell on WALLEX at 43,860.00")
	assert.Contains(t, msg, "Spread: 2.00%")
}

func TestFormatUptime(t *testing.T) {
	assert.Equal(t, "45s", formatUptime(45*time.Second))
	assert.Equal(t, "2m 5s", formatUptime(125*time.Second))
	assert.Equal(t, "1h 0m 30s", formatUptime(time.Hour+30*time.Second))
}
