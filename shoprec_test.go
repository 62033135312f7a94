package shoprec

import (
	"context"
	"testing"
	"time"

	"github.com/rushteam/shoprec/algo"
	"github.com/rushteam/shoprec/config"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/store"
)

func TestEngine_EndToEnd(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()

	cfg := &config.EngineConfig{}
	cfg.Engine.CacheTTLSeconds = 60
	eng := NewEngine(cfg, kv)
	ctx := context.Background()

	products := []*core.Product{
		{ID: "laptop", Category: "electronics", Price: 1200, Popularity: 10},
		{ID: "mouse", Category: "electronics", Price: 40, Popularity: 8},
		{ID: "keyboard", Category: "electronics", Price: 80, Popularity: 6},
		{ID: "novel", Category: "books", Price: 18, Popularity: 4},
	}
	catalog := eng.Catalog.(*store.CatalogAdapter)
	for _, p := range products {
		if err := catalog.PutProduct(ctx, p); err != nil {
			t.Fatalf("put product: %v", err)
		}
		eng.Features.Upsert(p)
	}

	// 两个口味重叠的用户：u2 比 u1 多买了 keyboard
	seed := func(userID string, ids ...string) {
		for _, id := range ids {
			if err := eng.Feedback.RecordInteraction(ctx, userID, id, core.InteractionPurchase, 0, nextTime()); err != nil {
				t.Fatalf("record: %v", err)
			}
		}
	}
	seed("u1", "laptop", "mouse")
	seed("u2", "laptop", "mouse", "keyboard")

	res, err := eng.Agent.GetRecommendations(ctx, "u1", algo.NameHybrid, nil, 5)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if res.Status != core.StatusOK || len(res.Recommendations) == 0 {
		t.Fatalf("status = %s, recs = %d", res.Status, len(res.Recommendations))
	}

	var sawKeyboard bool
	for _, rec := range res.Recommendations {
		if rec.Product.ID == "laptop" || rec.Product.ID == "mouse" {
			t.Errorf("owned product %s recommended", rec.Product.ID)
		}
		if rec.Product.ID == "keyboard" {
			sawKeyboard = true
		}
	}
	if !sawKeyboard {
		t.Error("expected keyboard from overlapping taste")
	}

	// 新交互使缓存失效，后续推荐反映新状态：u1 买下 keyboard 后不得再推
	if err := eng.Feedback.RecordInteraction(ctx, "u1", "keyboard", core.InteractionPurchase, 0, nextTime()); err != nil {
		t.Fatalf("record: %v", err)
	}
	res, err = eng.Agent.GetRecommendations(ctx, "u1", algo.NameHybrid, nil, 5)
	if err != nil {
		t.Fatalf("recommend after feedback: %v", err)
	}
	for _, rec := range res.Recommendations {
		if rec.Product.ID == "keyboard" {
			t.Error("stale cache: keyboard recommended after purchase")
		}
	}
}

func TestEngine_CartScenario(t *testing.T) {
	kv := store.NewMemoryStore()
	defer kv.Close()
	eng := NewEngine(nil, kv)
	ctx := context.Background()

	catalog := eng.Catalog.(*store.CatalogAdapter)
	products := []*core.Product{
		{ID: "camera", Category: "electronics", Price: 500, Popularity: 10},
		{ID: "tripod", Category: "electronics", Price: 60, Popularity: 5},
		{ID: "lens", Category: "electronics", Price: 300, Popularity: 7},
		{ID: "cookbook", Category: "books", Price: 25, Popularity: 9},
	}
	for _, p := range products {
		_ = catalog.PutProduct(ctx, p)
		eng.Features.Upsert(p)
	}

	// 历史上买 camera 的用户随后常买 tripod
	for _, u := range []string{"v1", "v2", "v3"} {
		_ = eng.Feedback.RecordInteraction(ctx, u, "camera", core.InteractionPurchase, 0, nextTime())
		_ = eng.Feedback.RecordInteraction(ctx, u, "tripod", core.InteractionPurchase, 0, nextTime())
	}
	_ = eng.Feedback.RecordInteraction(ctx, "shopper", "cookbook", core.InteractionView, 0, nextTime())

	res, err := eng.Agent.GetRecommendations(ctx, "shopper", algo.NameHybrid, []string{"camera"}, 5)
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if len(res.Recommendations) == 0 {
		t.Fatal("expected cart-driven recommendations")
	}
	if !res.BasedOnCart {
		t.Error("result should be attributed to the cart")
	}
	var sawTripod bool
	for _, rec := range res.Recommendations {
		if rec.Product.ID == "camera" {
			t.Error("cart item recommended")
		}
		if rec.Product.ID == "tripod" {
			sawTripod = true
			if !rec.BasedOnCart {
				t.Error("tripod should be attributed to the cart")
			}
		}
	}
	// 序列证据（买 camera 的人接着买 tripod）应让 tripod 入选
	if !sawTripod {
		t.Error("expected tripod from transition evidence")
	}
}

// nextTime 返回单调递增的时间戳，保证事件身份互不相同。
var testClock = time.Now().Add(-time.Hour)

func nextTime() time.Time {
	testClock = testClock.Add(time.Minute)
	return testClock
}
