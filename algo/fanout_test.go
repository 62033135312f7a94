package algo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rushteam/shoprec/core"
)

// fakeAlgorithm 是可编排延迟与结果的测试算法。
type fakeAlgorithm struct {
	name  string
	items []*core.Item
	err   error
	delay time.Duration
}

func (f *fakeAlgorithm) Name() string { return f.name }

func (f *fakeAlgorithm) Score(ctx context.Context, _ *core.RecommendContext, _ int) ([]*core.Item, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.items, f.err
}

func TestFanout_UnionMerge(t *testing.T) {
	n := &Fanout{
		Sources: []Algorithm{
			&fakeAlgorithm{name: "collaborative", items: []*core.Item{core.NewItem("a"), core.NewItem("b")}},
			&fakeAlgorithm{name: "content", items: []*core.Item{core.NewItem("a")}},
		},
	}
	items, err := n.Process(context.Background(), &core.RecommendContext{UserID: "u1"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// union 不去重：a 出现两次，各带来源归因
	if len(items) != 3 {
		t.Fatalf("expected 3 items (union), got %d", len(items))
	}
	for _, it := range items {
		if it.GetLabel("algo") == "" {
			t.Errorf("item %s missing algo label", it.ID)
		}
	}
}

func TestFanout_TimeoutDegradation(t *testing.T) {
	var (
		mu      sync.Mutex
		results []SourceResult
	)
	n := &Fanout{
		Sources: []Algorithm{
			&fakeAlgorithm{name: "slow", delay: 500 * time.Millisecond, items: []*core.Item{core.NewItem("x")}},
			&fakeAlgorithm{name: "fast", items: []*core.Item{core.NewItem("a")}},
		},
		Timeout: 50 * time.Millisecond,
		OnResult: func(r SourceResult) {
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		},
	}

	start := time.Now()
	items, err := n.Process(context.Background(), &core.RecommendContext{UserID: "u1"}, nil)
	if err != nil {
		t.Fatalf("timeout must degrade, not fail: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 400*time.Millisecond {
		t.Errorf("fanout waited for the slow source: %v", elapsed)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Fatalf("expected only the fast source's item, got %v", itemIDs(items))
	}

	var sawTimeout bool
	for _, r := range results {
		if r.Algorithm == "slow" {
			if !r.TimedOut || !core.IsTimeout(r.Err) {
				t.Errorf("slow source should report timeout, got %+v", r)
			}
			sawTimeout = true
		}
	}
	if !sawTimeout {
		t.Error("OnResult never saw the slow source")
	}
}

func TestFanout_ErrorAbsorbed(t *testing.T) {
	n := &Fanout{
		Sources: []Algorithm{
			&fakeAlgorithm{name: "broken", err: errors.New("boom")},
			&fakeAlgorithm{name: "ok", items: []*core.Item{core.NewItem("a")}},
		},
	}
	items, err := n.Process(context.Background(), &core.RecommendContext{UserID: "u1"}, nil)
	if err != nil {
		t.Fatalf("source error must degrade, not fail: %v", err)
	}
	if len(items) != 1 || items[0].ID != "a" {
		t.Errorf("expected only the healthy source's item, got %v", itemIDs(items))
	}
}

func TestFanout_NoSources(t *testing.T) {
	n := &Fanout{}
	items, err := n.Process(context.Background(), &core.RecommendContext{UserID: "u1"}, nil)
	if err != nil || items != nil {
		t.Errorf("empty fanout should be a no-op, got %v / %v", items, err)
	}
}
