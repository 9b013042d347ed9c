package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

type recordingSender struct {
	name   string
	err    error
	titles []string
}

func (r *recordingSender) Send(_ context.Context, title, _ string) error {
	r.titles = append(r.titles, title)
	return r.err
}

func (r *recordingSender) Name() string { return r.name }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNotifier_FiltersEvents(t *testing.T) {
	s := &recordingSender{name: "rec"}
	n := NewNotifier([]Sender{s}, []string{EventScanFailed}, discardLogger())

	require.NoError(t, n.NotifyFinding(context.Background(), domain.Finding{Kind: domain.KindBackArb, EventID: "ev1"}))
	assert.Empty(t, s.titles)

	require.NoError(t, n.NotifyFailure(context.Background(), "soccer_epl", errors.New("boom")))
	assert.Equal(t, []string{"Scan failed: soccer_epl"}, s.titles)
}

func TestNotifier_OneFailingSenderDoesNotStopOthers(t *testing.T) {
	bad := &recordingSender{name: "bad", err: errors.New("down")}
	good := &recordingSender{name: "good"}
	n := NewNotifier([]Sender{bad, good}, nil, discardLogger())

	err := n.Notify(context.Background(), EventArbDetected, "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad")
	assert.Len(t, good.titles, 1)
	assert.True(t, n.Enabled())
}

func TestTelegramSender_PostsMessage(t *testing.T) {
	var got map[string]string
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewTelegramSender("tok", "42", srv.URL)
	require.NoError(t, s.Send(context.Background(), "Title", "body"))
	assert.Equal(t, "/bottok/sendMessage", path)
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "*Title*\nbody", got["text"])
}

func TestTelegramSender_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad token", http.StatusUnauthorized)
	}))
	defer srv.Close()

	err := NewTelegramSender("tok", "42", srv.URL).Send(context.Background(), "t", "m")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad token")
}

func TestDiscordSender_TruncatesLongMessages(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewDiscordSender(srv.URL)
	require.NoError(t, s.Send(context.Background(), "t", strings.Repeat("x", 3000)))
	assert.Len(t, []rune(got["content"]), discordLimit)
	assert.True(t, strings.HasPrefix(got["content"], "**t**\n"))
}

func TestFormatFinding(t *testing.T) {
	start := time.Date(2026, 5, 2, 14, 0, 0, 0, time.UTC)

	title, msg := FormatFinding(domain.Finding{
		Kind:         domain.KindBackArb,
		EventID:      "ev1",
		SportTitle:   "EPL",
		CommenceTime: start,
		ImpliedSum:   0.95,
		BestBack: map[string]domain.BestOdds{
			"Chelsea": {Price: 2.2, Bookmakers: []string{"Betfair"}},
			"Arsenal": {Price: 2.1, Bookmakers: []string{"Sportsbet", "TAB"}},
		},
	})
	assert.Equal(t, "Back Arb: EPL ev1", title)
	assert.Contains(t, msg, "Implied sum 0.9500 (margin 5.00%)")
	assert.Less(t, strings.Index(msg, "Arsenal"), strings.Index(msg, "Chelsea"))
	assert.Contains(t, msg, "Arsenal @ 2.10 (Sportsbet, TAB)")

	_, msg = FormatFinding(domain.Finding{
		Kind:    domain.KindLayArb,
		EventID: "ev2",
		Outcome: "Arsenal", BackPrice: 2.1, LayPrice: 2.0,
		BackBookmakers: []string{"Sportsbet"}, LayBookmakers: []string{"Betfair"},
	})
	assert.Equal(t, "Arsenal back 2.10 (Sportsbet) lay 2.00 (Betfair)", msg)

	_, msg = FormatFinding(domain.Finding{
		Kind: domain.KindLayAllocation,
		Allocation: &domain.LayAllocation{
			Outcomes: []string{"A", "B"}, LayOdds: []float64{2, 2}, Stakes: []float64{50, 50},
			Profits: map[string]float64{"A": 5, "B": 5}, TotalStake: 100, Fee: 0,
		},
	})
	assert.Contains(t, msg, "min profit 5.00")
	assert.Contains(t, msg, "lay B @ 2.00 stake 50.00")
}
