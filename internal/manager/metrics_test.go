package manager

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"vlmeval/pkg/types"
)

func TestMetrics_UnknownModelsShareOneLabel(t *testing.T) {
	m, _ := newTestManager(newGateway(), "configured/model")
	before := testutil.CollectAndCount(invocationsTotal)
	otherBefore := testutil.ToFloat64(invocationsTotal.WithLabelValues(otherModelLabel, "success"))
	knownBefore := testutil.ToFloat64(invocationsTotal.WithLabelValues("configured/model", "success"))

	for i := 0; i < 50; i++ {
		req := Request{Image: testImage("x.jpg"), Models: []types.ModelIdentifier{fmt.Sprintf("junk-%d", i)}}
		if _, err := m.Evaluate(testCtx(t), req); err != nil {
			t.Fatalf("evaluate %d: %v", i, err)
		}
	}
	if _, err := m.Evaluate(testCtx(t), Request{Image: testImage("x.jpg")}); err != nil {
		t.Fatalf("evaluate configured: %v", err)
	}

	if grown := testutil.CollectAndCount(invocationsTotal) - before; grown > 2 {
		t.Fatalf("want at most 2 new series, got %d", grown)
	}
	if got := testutil.ToFloat64(invocationsTotal.WithLabelValues(otherModelLabel, "success")) - otherBefore; got != 50 {
		t.Fatalf("other label counted %v, want 50", got)
	}
	if got := testutil.ToFloat64(invocationsTotal.WithLabelValues("configured/model", "success")) - knownBefore; got != 1 {
		t.Fatalf("configured label counted %v, want 1", got)
	}
}

func TestMetricLabel_DiscoveredModelsKeepTheirId(t *testing.T) {
	m, _ := newTestManager(newGateway(), "a")
	known := map[types.ModelIdentifier]struct{}{"b": {}}
	cases := map[types.ModelIdentifier]string{"a": "a", "b": "b", "c": otherModelLabel}
	for model, want := range cases {
		if got := m.metricLabel(model, known); got != want {
			t.Fatalf("label for %q = %q, want %q", model, got, want)
		}
	}
	if got := m.metricLabel("b", nil); got != otherModelLabel {
		t.Fatalf("without discovery %q", got)
	}
}
