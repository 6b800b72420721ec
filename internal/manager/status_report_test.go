package manager

import (
	"errors"
	"testing"
)

func TestActiveModel_Manual(t *testing.T) {
	m, _ := newTestManager(newManual("qwen/qwen3-vl-4b"), "qwen/qwen3-vl-4b", "google/gemma-3-4b")
	resp, err := m.ActiveModel(testCtx(t))
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if !resp.Success || resp.ActiveModelShort != "qwen3-vl-4b" || !resp.ManualSwitchingRequired || len(resp.Instructions) != 4 {
		t.Fatalf("resp %+v", resp)
	}
}

func TestActiveModel_Gateway(t *testing.T) {
	m, _ := newTestManager(newGateway(), "A")
	resp, err := m.ActiveModel(testCtx(t))
	if err != nil || resp.ManualSwitchingRequired || len(resp.Instructions) != 0 {
		t.Fatalf("resp %+v err %v", resp, err)
	}
}

func TestCheckModels(t *testing.T) {
	a := newManual("qwen/qwen3-vl-4b")
	a.listed = []string{"qwen/qwen3-vl-4b"}
	m, _ := newTestManager(a, "qwen/qwen3-vl-4b", "google/gemma-3-4b")
	resp, err := m.CheckModels(testCtx(t))
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp.LoadedCount != 1 || resp.TotalCount != 2 || resp.AllLoaded || resp.AutoSwitch {
		t.Fatalf("resp %+v", resp)
	}
	if !resp.Models[0].CurrentlyLoaded || resp.Models[1].Available {
		t.Fatalf("models %+v", resp.Models)
	}
}

func TestCheckModels_BackendDown(t *testing.T) {
	a := newManual("")
	a.listErr = errors.New("connection refused")
	m, _ := newTestManager(a, "A")
	if _, err := m.CheckModels(testCtx(t)); !IsBackendUnavailable(err) {
		t.Fatalf("want backend unavailable, got %v", err)
	}
}

func TestListModels_Fallback(t *testing.T) {
	a := newGateway()
	a.listErr = errors.New("down")
	m := NewWithConfig(ManagerConfig{Adapter: a, Models: []string{"A", "B"}})
	m.discovery.Attempts, m.discovery.Delay = 2, 0
	pub := NewMemoryPublisher()
	m.SetPublisher(pub)
	resp := m.ListModels(testCtx(t))
	if !resp.Fallback || len(resp.Models) != 2 {
		t.Fatalf("resp %+v", resp)
	}
	if len(pub.Named(EventDiscoveryFallback)) != 1 {
		t.Fatalf("fallback event missing")
	}
}

func TestNewWithConfigDefaults(t *testing.T) {
	m := NewWithConfig(ManagerConfig{})
	if m.settle != defaultSettleDelay || m.maxWait != defaultMaxWait {
		t.Fatalf("defaults: settle=%v maxWait=%v", m.settle, m.maxWait)
	}
	if m.discovery.Attempts != 3 {
		t.Fatalf("discovery attempts %d", m.discovery.Attempts)
	}
	if m.Ready() {
		t.Fatalf("no adapter: not ready")
	}
}
