package algo

import (
	"context"
	"testing"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/index"
)

func transitionFixture() *index.TransitionTable {
	tt := index.NewTransitionTable(5)
	// a -> b 出现两次，a -> c 出现一次
	for _, user := range []string{"v1", "v2"} {
		tt.Record(user, "a")
		tt.Record(user, "b")
	}
	tt.Record("v3", "a")
	tt.Record("v3", "c")
	return tt
}

func TestSequential_Score(t *testing.T) {
	alg := &Sequential{Transitions: transitionFixture()}
	rctx := &core.RecommendContext{UserID: "u1", User: profileWith("u1", "a")}

	items, err := alg.Score(context.Background(), rctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected b and c, got %v", itemIDs(items))
	}
	// b 的支持度更高，应排在 c 前
	if items[0].ID != "b" || items[1].ID != "c" {
		t.Errorf("expected [b c], got %v", itemIDs(items))
	}
	// 最高分归一化为 1
	if items[0].Score != 1.0 {
		t.Errorf("top score = %v, want 1.0", items[0].Score)
	}
}

func TestSequential_NoTransitionData(t *testing.T) {
	alg := &Sequential{Transitions: index.NewTransitionTable(5)}
	rctx := &core.RecommendContext{UserID: "u1", User: profileWith("u1", "a")}

	items, err := alg.Score(context.Background(), rctx, 10)
	if err != nil {
		t.Fatalf("no transition data must not be an error, got %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected empty result, got %v", itemIDs(items))
	}
}

func TestSequential_NoAnchors(t *testing.T) {
	alg := &Sequential{Transitions: transitionFixture()}
	rctx := &core.RecommendContext{UserID: "u1", User: core.NewUserProfile("u1")}

	items, err := alg.Score(context.Background(), rctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("user without history or cart should get nothing, got %v", itemIDs(items))
	}
}

func TestSequential_CartAnchors(t *testing.T) {
	alg := &Sequential{Transitions: transitionFixture()}
	rctx := &core.RecommendContext{
		UserID:    "u1",
		User:      core.NewUserProfile("u1"),
		CartItems: []string{"a"},
	}

	items, err := alg.Score(context.Background(), rctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("cart anchor should yield candidates")
	}
	for _, it := range items {
		if it.GetLabel("based_on_cart") == "" {
			t.Errorf("cart-anchored candidate %s missing based_on_cart label", it.ID)
		}
	}
	// 购物车商品本身不得出现
	if containsID(items, "a") {
		t.Error("cart item a must not be recommended")
	}
}

func TestSequential_AnchorDecay(t *testing.T) {
	tt := index.NewTransitionTable(5)
	// x -> p1, y -> p2，各一次
	tt.Record("v1", "x")
	tt.Record("v1", "p1")
	tt.Record("v2", "y")
	tt.Record("v2", "p2")

	alg := &Sequential{Transitions: tt}
	// 历史顺序 x, y：y 更近，锚点权重更高 -> p2 应领先 p1
	rctx := &core.RecommendContext{UserID: "u1", User: profileWith("u1", "x", "y")}

	items, err := alg.Score(context.Background(), rctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected p1 and p2, got %v", itemIDs(items))
	}
	if items[0].ID != "p2" {
		t.Errorf("recent anchor should dominate, got %v", itemIDs(items))
	}
}
