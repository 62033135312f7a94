package algo

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/index"
)

func contentFixture() (*index.FeatureIndex, *index.InteractionMatrix, *stubCatalog) {
	products := []*core.Product{
		{ID: "e1", Category: "electronics", Price: 100, Popularity: 10},
		{ID: "e2", Category: "electronics", Price: 110, Popularity: 8},
		{ID: "e3", Category: "electronics", Price: 95, Popularity: 6},
		{ID: "b1", Category: "books", Price: 15, Popularity: 20},
		{ID: "b2", Category: "books", Price: 25, Popularity: 4},
	}
	f := index.NewFeatureIndex()
	f.Build(products)
	m := index.NewInteractionMatrix(0)
	return f, m, newStubCatalog(products...)
}

func TestContentBased_TasteFromHistory(t *testing.T) {
	f, m, catalog := contentFixture()
	record(m, "u1", "e1", core.InteractionPurchase, time.Now())

	alg := &ContentBased{Features: f, Matrix: m, Catalog: catalog}
	rctx := &core.RecommendContext{UserID: "u1", User: profileWith("u1", "e1")}

	items, err := alg.Score(context.Background(), rctx, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected candidates")
	}
	if containsID(items, "e1") {
		t.Error("engaged product e1 must not be recommended")
	}
	// 同类商品应排在跨类商品前
	if items[0].ID != "e2" && items[0].ID != "e3" {
		t.Errorf("top candidate should be electronics, got %s", items[0].ID)
	}
	if items[0].GetLabel("based_on_cart") != "" {
		t.Error("history-seeded candidates must not carry based_on_cart")
	}
}

func TestContentBased_CartSeeding(t *testing.T) {
	f, m, catalog := contentFixture()
	// 历史全是 books，购物车是 electronics：购物车意图应当赢
	record(m, "u1", "b1", core.InteractionPurchase, time.Now())

	alg := &ContentBased{Features: f, Matrix: m, Catalog: catalog}

	historyOnly := &core.RecommendContext{UserID: "u1", User: profileWith("u1", "b1")}
	historyItems, err := alg.Score(context.Background(), historyOnly, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	withCart := &core.RecommendContext{
		UserID:    "u1",
		User:      profileWith("u1", "b1"),
		CartItems: []string{"e1"},
	}
	cartItems, err := alg.Score(context.Background(), withCart, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cartItems) == 0 {
		t.Fatal("expected candidates with cart seed")
	}

	// 购物车种子必须带归因标签
	for _, it := range cartItems {
		if it.GetLabel("based_on_cart") == "" {
			t.Errorf("cart-seeded candidate %s missing based_on_cart label", it.ID)
		}
		if containsID([]*core.Item{it}, "e1") {
			t.Error("cart item e1 must not be recommended")
		}
	}

	// 购物车种子下 electronics 应领先；纯历史下 books 应领先
	if cartItems[0].ID != "e2" && cartItems[0].ID != "e3" {
		t.Errorf("cart-seeded top should be electronics, got %s", cartItems[0].ID)
	}
	if len(historyItems) > 0 && historyItems[0].ID != "b2" {
		t.Errorf("history-seeded top should be b2, got %s", historyItems[0].ID)
	}
}

func TestContentBased_CartBoostRaisesScore(t *testing.T) {
	f, m, catalog := contentFixture()

	alg := &ContentBased{Features: f, Matrix: m, Catalog: catalog}
	record(m, "u1", "e1", core.InteractionPurchase, time.Now())

	plain, err := alg.Score(context.Background(),
		&core.RecommendContext{UserID: "u1", User: profileWith("u1", "e1")}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	boosted, err := alg.Score(context.Background(),
		&core.RecommendContext{UserID: "u1", User: profileWith("u1", "e1"), CartItems: []string{"e1"}}, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// 同一种子商品，购物车路径的分应高于历史路径（×1.2）
	scoreOf := func(items []*core.Item, id string) float64 {
		for _, it := range items {
			if it.ID == id {
				return it.Score
			}
		}
		return -1
	}
	p, b := scoreOf(plain, "e2"), scoreOf(boosted, "e2")
	if p <= 0 || b <= 0 {
		t.Fatalf("e2 missing from results: plain=%v boosted=%v", p, b)
	}
	if b <= p {
		t.Errorf("cart boost should raise score: plain=%v boosted=%v", p, b)
	}
}

func TestContentBased_PopularityFallback(t *testing.T) {
	f, m, catalog := contentFixture()
	alg := &ContentBased{Features: f, Matrix: m, Catalog: catalog}

	// 无历史无购物车 -> 热门兜底
	rctx := &core.RecommendContext{UserID: "new", User: core.NewUserProfile("new")}
	items, err := alg.Score(context.Background(), rctx, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(items) == 0 {
		t.Fatal("expected fallback candidates for cold user")
	}
	for _, it := range items {
		if it.Score > core.DefaultFallbackCap+1e-9 {
			t.Errorf("fallback score %v exceeds cap %v", it.Score, core.DefaultFallbackCap)
		}
		if it.GetLabel("fallback") == "" {
			t.Errorf("fallback candidate %s missing fallback label", it.ID)
		}
	}
	// 类目轮转：前两个候选不应同类目
	if len(items) >= 2 {
		p0, _ := catalog.GetProduct(context.Background(), items[0].ID)
		p1, _ := catalog.GetProduct(context.Background(), items[1].ID)
		if p0.Category == p1.Category {
			t.Errorf("cold-start top-2 should span categories, both %s", p0.Category)
		}
	}
}
