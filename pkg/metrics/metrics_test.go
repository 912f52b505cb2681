package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.CacheHitsTotal.Inc()
	m.SearchesTotal.WithLabelValues("phrase", "bm25", "ok").Add(3)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			values[f.GetName()] += metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, values["relevance_cache_hits_total"])
	assert.Equal(t, 3.0, values["relevance_searches_total"])
}

func TestNewTwiceOnSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New(prometheus.NewRegistry())
		New(prometheus.NewRegistry())
	})
}

func TestPush(t *testing.T) {
	var calls atomic.Int32
	var path atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		path.Store(r.URL.Path)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	New(reg).CacheMissesTotal.Inc()
	require.NoError(t, Push(context.Background(), srv.URL, "relevance-harness", "run-1", reg))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, "/metrics/job/relevance-harness/run_id/run-1", path.Load())
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	err := Push(context.Background(), srv.URL, "job", "", prometheus.NewRegistry())
	assert.Error(t, err)
}
