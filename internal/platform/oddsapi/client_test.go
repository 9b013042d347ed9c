package oddsapi

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

const oddsBody = `[
  {
    "id": "e912304de2b2ce35b473ce2ecd3d1502",
    "sport_key": "americanfootball_nfl",
    "sport_title": "NFL",
    "commence_time": "2026-09-10T00:20:00Z",
    "home_team": "Kansas City Chiefs",
    "away_team": "Baltimore Ravens",
    "bookmakers": [
      {
        "key": "betfair_ex_au",
        "title": "Betfair",
        "last_update": "2026-09-09T12:00:00Z",
        "markets": [
          {"key": "h2h", "last_update": "2026-09-09T12:00:00Z", "outcomes": [
            {"name": "Baltimore Ravens", "price": 2.5},
            {"name": "Kansas City Chiefs", "price": 1.62}
          ]},
          {"key": "h2h_lay", "last_update": "2026-09-09T12:00:00Z", "outcomes": [
            {"name": "Baltimore Ravens", "price": 2.56},
            {"name": "Kansas City Chiefs", "price": 1.66}
          ]},
          {"key": "spreads", "last_update": "2026-09-09T12:00:00Z", "outcomes": [
            {"name": "Baltimore Ravens", "price": 1.91, "point": 3},
            {"name": "Kansas City Chiefs", "price": 1.91, "point": -3}
          ]}
        ]
      }
    ]
  }
]`

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(url string) *Client {
	return NewClient(Config{
		BaseURL:         url,
		APIKey:          "secret",
		Regions:         "au",
		Markets:         []string{"h2h", "h2h_lay", "spreads"},
		BreakerFailures: 2,
	}, testLogger())
}

func TestGetOdds(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/sports/americanfootball_nfl/odds", r.URL.Path)
		assert.Equal(t, "secret", r.URL.Query().Get("apiKey"))
		assert.Equal(t, "au", r.URL.Query().Get("regions"))
		assert.Equal(t, "h2h,h2h_lay,spreads", r.URL.Query().Get("markets"))
		assert.Equal(t, "decimal", r.URL.Query().Get("oddsFormat"))

		w.Header().Set("X-Requests-Remaining", "497")
		w.Header().Set("X-Requests-Used", "3")
		w.Header().Set("X-Requests-Last", "3")
		_, _ = w.Write([]byte(oddsBody))
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	events, quota, err := c.GetOdds(context.Background(), "americanfootball_nfl")
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "NFL", ev.SportTitle)
	assert.Equal(t, "Kansas City Chiefs", ev.HomeTeam)
	require.Len(t, ev.Bookmakers, 1)
	require.Len(t, ev.Bookmakers[0].Markets, 3)

	h2h := ev.Bookmakers[0].Markets[0]
	assert.Nil(t, h2h.Outcomes[0].Point)
	spreads := ev.Bookmakers[0].Markets[2]
	require.NotNil(t, spreads.Outcomes[1].Point)
	assert.Equal(t, -3.0, *spreads.Outcomes[1].Point)

	assert.Equal(t, 497, quota.Remaining)
	assert.Equal(t, 3, quota.Used)
	assert.Equal(t, quota, c.Quota())
}

func TestFetchEvents_ImplementsEventSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(oddsBody))
	}))
	defer srv.Close()

	var src domain.EventSource = newTestClient(srv.URL)
	events, err := src.FetchEvents(context.Background(), "americanfootball_nfl")
	require.NoError(t, err)
	assert.Len(t, events, 1)
	assert.Equal(t, "oddsapi", src.Name())
}

func TestListSports(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/sports", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("all"))
		_, _ = w.Write([]byte(`[{"key":"soccer_epl","group":"Soccer","title":"EPL","description":"English Premier League","active":true,"has_outrights":false}]`))
	}))
	defer srv.Close()

	sports, err := newTestClient(srv.URL).ListSports(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, sports, 1)
	assert.Equal(t, "soccer_epl", sports[0].Key)
	assert.True(t, sports[0].Active)
}

func TestStatusMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusNotFound, domain.ErrNotFound},
		{http.StatusUnauthorized, domain.ErrUnauthorized},
		{http.StatusForbidden, domain.ErrUnauthorized},
		{http.StatusTooManyRequests, domain.ErrRateLimited},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				http.Error(w, "nope", tt.status)
			}))
			defer srv.Close()

			_, _, err := newTestClient(srv.URL).GetOdds(context.Background(), "soccer_epl")
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCircuitBreakerOpensOnServerErrors(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	for i := 0; i < 2; i++ {
		_, _, err := c.GetOdds(context.Background(), "soccer_epl")
		require.Error(t, err)
		assert.NotErrorIs(t, err, domain.ErrCircuitOpen)
	}

	_, _, err := c.GetOdds(context.Background(), "soccer_epl")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.Equal(t, int32(2), hits.Load())
}

func TestNotFoundDoesNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL)
	for i := 0; i < 4; i++ {
		_, _, err := c.GetOdds(context.Background(), "unknown_sport")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	}
}

func TestQuotaFromHeaders(t *testing.T) {
	h := http.Header{}
	assert.True(t, quotaFromHeaders(h).UpdatedAt.IsZero())

	h.Set("X-Requests-Remaining", "12.0")
	h.Set("X-Requests-Used", "488")
	q := quotaFromHeaders(h)
	assert.Equal(t, 12, q.Remaining)
	assert.Equal(t, 488, q.Used)
	assert.False(t, q.UpdatedAt.IsZero())
}
