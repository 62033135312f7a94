package feedback

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/index"
	"github.com/rushteam/shoprec/store"
)

type fakeInvalidator struct {
	calls []string
}

func (f *fakeInvalidator) InvalidateUser(_ context.Context, userID string) {
	f.calls = append(f.calls, userID)
}

func newProcessor(t *testing.T) (*Processor, *store.CatalogAdapter, *fakeInvalidator) {
	t.Helper()
	kv := store.NewMemoryStore()
	t.Cleanup(func() { _ = kv.Close() })

	catalog := store.NewCatalogAdapter(kv, "catalog")
	ctx := context.Background()
	for _, p := range []*core.Product{
		{ID: "p1", Category: "electronics", Price: 100, Popularity: 10},
		{ID: "p2", Category: "books", Price: 20, Popularity: 5},
	} {
		if err := catalog.PutProduct(ctx, p); err != nil {
			t.Fatalf("put product: %v", err)
		}
	}

	inv := &fakeInvalidator{}
	return &Processor{
		Profiles:    store.NewProfileAdapter(kv, "user"),
		Catalog:     catalog,
		Matrix:      index.NewInteractionMatrix(0),
		Transitions: index.NewTransitionTable(0),
		Invalidator: inv,
	}, catalog, inv
}

func TestProcessor_RecordInteraction(t *testing.T) {
	p, catalog, inv := newProcessor(t)
	ctx := context.Background()
	now := time.Now()

	if err := p.RecordInteraction(ctx, "u1", "p1", core.InteractionPurchase, 0, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 画像自动创建并包含事件
	profile, err := p.Profiles.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile should exist: %v", err)
	}
	if len(profile.Interactions) != 1 {
		t.Fatalf("interactions = %d, want 1", len(profile.Interactions))
	}

	// 矩阵同步更新
	row := p.Matrix.Row("u1", now)
	if row["p1"] != 1.0 {
		t.Errorf("matrix weight = %v, want 1.0", row["p1"])
	}

	// 热度递增
	prod, _ := catalog.GetProduct(ctx, "p1")
	if prod.Popularity <= 10 {
		t.Errorf("popularity = %v, want > 10", prod.Popularity)
	}

	// 缓存失效触发
	if len(inv.calls) != 1 || inv.calls[0] != "u1" {
		t.Errorf("invalidator calls = %v, want [u1]", inv.calls)
	}
}

func TestProcessor_Idempotent(t *testing.T) {
	p, catalog, inv := newProcessor(t)
	ctx := context.Background()
	at := time.Now()

	for i := 0; i < 3; i++ {
		if err := p.RecordInteraction(ctx, "u1", "p1", core.InteractionView, 0, at); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	profile, _ := p.Profiles.GetProfile(ctx, "u1")
	if len(profile.Interactions) != 1 {
		t.Errorf("interactions after duplicates = %d, want 1", len(profile.Interactions))
	}
	row := p.Matrix.Row("u1", at)
	if row["p1"] != 0.2 {
		t.Errorf("matrix weight after duplicates = %v, want 0.2", row["p1"])
	}
	// 热度只加一次：10 + 0.2
	prod, _ := catalog.GetProduct(ctx, "p1")
	if prod.Popularity > 10.2+1e-9 {
		t.Errorf("popularity double-counted: %v", prod.Popularity)
	}
	// 重复事件不触发缓存失效
	if len(inv.calls) != 1 {
		t.Errorf("invalidator calls = %d, want 1", len(inv.calls))
	}
}

func TestProcessor_TransitionMining(t *testing.T) {
	p, _, _ := newProcessor(t)
	ctx := context.Background()
	at := time.Now()

	_ = p.RecordInteraction(ctx, "u1", "p1", core.InteractionView, 0, at)
	_ = p.RecordInteraction(ctx, "u1", "p2", core.InteractionView, 0, at.Add(time.Minute))

	edges, total := p.Transitions.Outgoing("p1")
	if edges["p2"] != 1 || total != 1 {
		t.Errorf("transition p1->p2 = %v/%v, want 1/1", edges, total)
	}
}

func TestProcessor_Validation(t *testing.T) {
	p, _, _ := newProcessor(t)
	ctx := context.Background()
	now := time.Now()

	tests := []struct {
		name    string
		run     func() error
		check   func(error) bool
		errName string
	}{
		{
			name:    "empty user",
			run:     func() error { return p.RecordInteraction(ctx, "", "p1", core.InteractionView, 0, now) },
			check:   core.IsDomainError,
			errName: "INVALID_INPUT",
		},
		{
			name:    "unknown interaction type",
			run:     func() error { return p.RecordInteraction(ctx, "u1", "p1", "teleport", 0, now) },
			check:   core.IsDomainError,
			errName: "INVALID_INPUT",
		},
		{
			name:    "rating out of range",
			run:     func() error { return p.RecordInteraction(ctx, "u1", "p1", core.InteractionRate, 9, now) },
			check:   core.IsDomainError,
			errName: "INVALID_INPUT",
		},
		{
			name:    "unknown product",
			run:     func() error { return p.RecordInteraction(ctx, "u1", "ghost", core.InteractionView, 0, now) },
			check:   core.IsNotFound,
			errName: "NOT_FOUND",
		},
		{
			name:    "unknown feedback kind",
			run:     func() error { return p.RecordFeedback(ctx, "u1", "p1", "meh", 0, "") },
			check:   core.IsInvalidChoice,
			errName: "INVALID_CHOICE",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			if err == nil || !tt.check(err) {
				t.Errorf("expected %s, got %v", tt.errName, err)
			}
		})
	}
}

func TestProcessor_RecordFeedback(t *testing.T) {
	p, catalog, _ := newProcessor(t)
	ctx := context.Background()

	if err := p.RecordFeedback(ctx, "u1", "p1", FeedbackLike, 0, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// like 折算为 5 星：矩阵权重 5/5 = 1.0
	row := p.Matrix.Row("u1", time.Now())
	if row["p1"] < 0.99 {
		t.Errorf("like weight = %v, want ~1.0", row["p1"])
	}
	// 好评提升热度：+1.0（交互）+1.0（反馈加成）
	prod, _ := catalog.GetProduct(ctx, "p1")
	if prod.Popularity < 11.9 {
		t.Errorf("popularity after like = %v, want ~12", prod.Popularity)
	}

	if err := p.RecordFeedback(ctx, "u2", "p2", FeedbackDislike, 0, ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 差评降热度：+0.2（rate 1/5）-1.0
	prod2, _ := catalog.GetProduct(ctx, "p2")
	if prod2.Popularity >= 5 {
		t.Errorf("popularity after dislike = %v, want < 5", prod2.Popularity)
	}

	// 反馈连同 comment 进入画像日志
	profile, err := p.Profiles.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile should exist: %v", err)
	}
	if len(profile.Feedback) != 1 || profile.Feedback[0].Kind != FeedbackLike {
		t.Errorf("feedback journal = %+v, want one like entry", profile.Feedback)
	}
}

func TestProcessor_RecordFeedback_General(t *testing.T) {
	p, catalog, _ := newProcessor(t)
	ctx := context.Background()

	if err := p.RecordFeedback(ctx, "u1", "", FeedbackGeneral, 0, "checkout was slow"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 一般性反馈不触碰矩阵与热度，只入画像日志
	profile, err := p.Profiles.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile should exist: %v", err)
	}
	if len(profile.Interactions) != 0 {
		t.Errorf("interactions = %d, want 0", len(profile.Interactions))
	}
	if len(profile.Feedback) != 1 || profile.Feedback[0].Comment != "checkout was slow" {
		t.Errorf("feedback journal = %+v, want the comment entry", profile.Feedback)
	}
	prod, _ := catalog.GetProduct(ctx, "p1")
	if prod.Popularity != 10 {
		t.Errorf("popularity = %v, want untouched 10", prod.Popularity)
	}

	// 商品反馈缺 product id 是输入错误
	if err := p.RecordFeedback(ctx, "u1", "", FeedbackRating, 4, ""); err == nil || !core.IsDomainError(err) {
		t.Errorf("product feedback without product should fail, got %v", err)
	}
}

type fakeOutcomes struct {
	got map[string][]float64
}

func (f *fakeOutcomes) ObserveOutcome(algorithm string, rating float64) {
	if f.got == nil {
		f.got = make(map[string][]float64)
	}
	f.got[algorithm] = append(f.got[algorithm], rating)
}

func TestProcessor_RecordOutcome(t *testing.T) {
	p, _, _ := newProcessor(t)
	outcomes := &fakeOutcomes{}
	p.Outcomes = outcomes
	ctx := context.Background()

	if err := p.RecordOutcome(ctx, "u1", "p1", "content", OutcomeClick); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := p.RecordOutcome(ctx, "u1", "p2", "collaborative", OutcomeConversion); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 点击折算 view，转化折算 purchase
	profile, err := p.Profiles.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("profile should exist: %v", err)
	}
	if len(profile.Interactions) != 2 {
		t.Fatalf("interactions = %d, want 2", len(profile.Interactions))
	}
	if profile.Interactions[0].Type != core.InteractionView {
		t.Errorf("click interaction type = %s, want view", profile.Interactions[0].Type)
	}
	if profile.Interactions[1].Type != core.InteractionPurchase {
		t.Errorf("conversion interaction type = %s, want purchase", profile.Interactions[1].Type)
	}

	// 归因评分：click=4 / conversion=5
	if got := outcomes.got["content"]; len(got) != 1 || got[0] != 4 {
		t.Errorf("content_based outcomes = %v, want [4]", got)
	}
	if got := outcomes.got["collaborative"]; len(got) != 1 || got[0] != 5 {
		t.Errorf("collaborative outcomes = %v, want [5]", got)
	}

	if err := p.RecordOutcome(ctx, "u1", "p1", "content", "bounce"); err == nil || !core.IsInvalidChoice(err) {
		t.Errorf("unknown outcome kind should be INVALID_CHOICE, got %v", err)
	}
}
