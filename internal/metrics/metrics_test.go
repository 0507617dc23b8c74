package metrics_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askhub/askhub-server/internal/metrics"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *metrics.Metrics
	m.ObserveStore("questions", "get", time.Now(), nil)
	m.ObserveSearch("prefix", errors.New("x"))
	m.ObserveTagSync(nil)
}

func TestObserveStore(t *testing.T) {
	m := metrics.New()
	m.ObserveStore("questions", "create", time.Now(), nil)
	m.ObserveStore("questions", "create", time.Now(), errors.New("boom"))
	m.ObserveSearch("prefix", nil)
	m.ObserveTagSync(nil)

	expected := `
# HELP askhub_store_operations_total Collection accessor operations by collection, operation and result.
# TYPE askhub_store_operations_total counter
askhub_store_operations_total{collection="questions",op="create",result="error"} 1
askhub_store_operations_total{collection="questions",op="create",result="ok"} 1
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "askhub_store_operations_total")
	require.NoError(t, err)
}

func TestHandler(t *testing.T) {
	m := metrics.New()
	m.ObserveTagSync(nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `askhub_tag_sync_runs_total{result="ok"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
