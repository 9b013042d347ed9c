package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

func TestRegistry_Records(t *testing.T) {
	r := NewRegistry()

	r.RecordEvents("soccer_epl", 5, 1)
	r.RecordFindings("soccer_epl", []domain.Finding{
		{Kind: domain.KindBackArb},
		{Kind: domain.KindLayArb},
		{Kind: domain.KindLayArb},
	})
	r.RecordFaults([]domain.StrategyFault{{Strategy: "point"}})
	r.SetQuota("oddsapi", 480)
	r.SetQuota("oddsapi", -1)

	assert.Equal(t, 5.0, testutil.ToFloat64(r.EventsScanned.WithLabelValues("soccer_epl")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.EventsFailed.WithLabelValues("soccer_epl")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Findings.WithLabelValues("soccer_epl", "Lay Arb")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.StrategyFaults.WithLabelValues("point")))
	assert.Equal(t, 480.0, testutil.ToFloat64(r.QuotaRemaining.WithLabelValues("oddsapi")))
}

func TestRegistry_ObserveScan(t *testing.T) {
	r := NewRegistry()
	r.ObserveScan("nba", time.Now(), nil)
	r.ObserveScan("nba", time.Now(), errors.New("fetch failed"))

	assert.Equal(t, 2, testutil.CollectAndCount(r.ScanDuration))
	assert.Positive(t, testutil.ToFloat64(r.LastScan.WithLabelValues("nba")))
}

func TestRegistry_Handler(t *testing.T) {
	r := NewRegistry()
	r.RecordEvents("nba", 3, 0)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `oddsarb_events_scanned_total{sport="nba"} 3`)
}
