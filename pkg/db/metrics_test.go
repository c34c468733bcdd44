package db

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func collectDescs(t *testing.T, c *PoolStatsCollector) []*prometheus.Desc {
	t.Helper()

	ch := make(chan *prometheus.Desc, 10)
	go func() {
		c.Describe(ch)
		close(ch)
	}()

	var descs []*prometheus.Desc
	for desc := range ch {
		descs = append(descs, desc)
	}
	return descs
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	collector := NewPoolStatsCollector(nil, "test", "test-service")

	descs := collectDescs(t, collector)
	if len(descs) != 4 {
		t.Fatalf("expected 4 descriptors, got %d", len(descs))
	}

	expectedNames := []string{
		"test_db_pool_total_conns",
		"test_db_pool_idle_conns",
		"test_db_pool_acquired_conns",
		"test_db_pool_max_conns",
	}

	for i, desc := range descs {
		if !strings.Contains(desc.String(), expectedNames[i]) {
			t.Errorf("expected descriptor to contain %s, got %s", expectedNames[i], desc.String())
		}
	}
}

func TestPoolStatsCollector_Collect_NilPool(t *testing.T) {
	collector := NewPoolStatsCollector(nil, "test", "test-service")

	ch := make(chan prometheus.Metric, 10)
	go func() {
		collector.Collect(ch)
		close(ch)
	}()

	var metrics []prometheus.Metric
	for m := range ch {
		metrics = append(metrics, m)
	}

	// No pool yet means no gauges, not a scrape error.
	if len(metrics) != 0 {
		t.Errorf("expected 0 metrics for nil pool, got %d", len(metrics))
	}
}

func TestRegisterPoolStatsCollectorWithRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	collector, err := RegisterPoolStatsCollectorWithRegistry(nil, "test", "test-service", reg)
	if err != nil {
		t.Fatalf("RegisterPoolStatsCollectorWithRegistry failed: %v", err)
	}
	if collector == nil {
		t.Fatal("expected collector to be returned")
	}

	if _, err := reg.Gather(); err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
}

func TestRegisterPoolStatsCollectorWithRegistry_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := RegisterPoolStatsCollectorWithRegistry(nil, "test", "test-service", reg)
	if err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	// Already-registered collectors are tolerated, not surfaced as errors.
	_, err = RegisterPoolStatsCollectorWithRegistry(nil, "test", "test-service", reg)
	if err != nil {
		t.Fatalf("second registration should not error: %v", err)
	}
}

func TestPoolStatsCollector_MetricLabels(t *testing.T) {
	collector := NewPoolStatsCollector(nil, "sessionarc", "archive-cli")

	for _, desc := range collectDescs(t, collector) {
		descStr := desc.String()
		if !strings.Contains(descStr, `service="archive-cli"`) {
			t.Errorf("expected service label 'archive-cli' in descriptor, got %s", descStr)
		}
		if !strings.Contains(descStr, `fqName: "sessionarc_db_pool_`) {
			t.Errorf("expected 'sessionarc_db_pool_' prefix in descriptor, got %s", descStr)
		}
	}
}

func TestPoolStatsCollector_WithLintCheck(t *testing.T) {
	collector := NewPoolStatsCollector(nil, "test", "test-service")

	problems, err := testutil.CollectAndLint(collector)
	if err != nil {
		t.Fatalf("CollectAndLint failed: %v", err)
	}
	for _, p := range problems {
		t.Errorf("lint problem: %s", p.Text)
	}
}
