package algo

import (
	"context"
	"time"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/index"
	"github.com/rushteam/shoprec/pkg/utils"
)

// ContentBased 是基于内容的打分算法（Content-Based Filtering）。
//
// 核心思想："用户喜欢具有某些特征的商品，推荐具有相似特征的其他商品"
//
// 算法流程：
//  1. 口味向量 = 用户正向交互商品特征向量的交互权重加权平均
//  2. 对目录中用户未拥有的每个商品计算与口味向量的余弦相似度
//  3. 购物车非空时改用购物车内容做种子，结果加乘性 boost 并标记 based_on_cart
//     （购物车意图强于历史口味）
//
// 边界：既无口味信号又无购物车时，回退到热门商品兜底，
// raw score 压到 FallbackCap 之下让融合层视作弱信号。
type ContentBased struct {
	Features *index.FeatureIndex
	Matrix   *index.InteractionMatrix
	Catalog  core.Catalog

	// CartBoost 购物车种子分数的乘性加权；零值使用 core.DefaultCartBoost
	CartBoost float64

	// FallbackCap 热门兜底的 raw score 上限；零值使用 core.DefaultFallbackCap
	FallbackCap float64
}

func (a *ContentBased) Name() string { return NameContent }

func (a *ContentBased) Score(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.Item, error) {
	if a.Features == nil || rctx == nil {
		return nil, nil
	}
	if rctx.User == nil {
		return nil, core.NewDomainError(core.ModuleAlgo, core.ErrorCodeNotFound, "content: unknown user "+rctx.UserID)
	}

	// 1. 构建种子权重：购物车优先，否则交互历史
	basedOnCart := rctx.HasCart()
	var seeds map[string]float64
	if basedOnCart {
		seeds = make(map[string]float64, len(rctx.CartItems))
		for _, id := range rctx.CartItems {
			seeds[id] = 1.0
		}
	} else if a.Matrix != nil {
		seeds = a.Matrix.Row(rctx.UserID, time.Now())
	}

	taste := a.Features.TasteVector(seeds)
	if taste == nil {
		// 无口味信号且购物车为空：热门兜底（弱信号）
		return a.popularityFallback(ctx, rctx, limit)
	}

	products, err := a.allProducts(ctx)
	if err != nil {
		return nil, err
	}

	boost := a.CartBoost
	if boost <= 0 {
		boost = core.DefaultCartBoost
	}

	owned := rctx.User.InteractedSet()
	out := make([]*core.Item, 0, len(products))
	for _, p := range products {
		if p == nil || owned[p.ID] || rctx.InCart(p.ID) {
			continue
		}
		vec, ok := a.Features.Vector(p.ID)
		if !ok {
			continue
		}
		score := index.Cosine(taste, vec)
		if score <= 0 {
			continue
		}

		it := core.NewItem(p.ID)
		it.Score = score
		it.Meta["popularity"] = p.Popularity
		it.Meta["product"] = p
		it.PutLabel("algo", utils.Label{Value: NameContent, Source: "algo"})
		if basedOnCart {
			it.Score *= boost
			it.PutLabel("based_on_cart", utils.Label{Value: "true", Source: "algo"})
		}
		out = append(out, it)
	}
	if len(out) == 0 {
		return nil, nil
	}

	sortCandidates(out)
	return truncate(out, limit), nil
}

// popularityFallback 按热度降序兜底，raw score 封顶为弱信号。
// 排序时类目轮转：第一轮每个类目只取一个，避免冷启动结果全部挤在同一类目。
func (a *ContentBased) popularityFallback(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.Item, error) {
	if a.Catalog == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = core.DefaultLimit
	}

	// 多取一些再做类目轮转
	ids, err := a.Catalog.TopPopular(ctx, limit*3)
	if err != nil || len(ids) == 0 {
		return nil, nil
	}

	scoreCap := a.FallbackCap
	if scoreCap <= 0 {
		scoreCap = core.DefaultFallbackCap
	}

	type candidate struct {
		item     *core.Item
		category string
	}
	candidates := make([]candidate, 0, len(ids))
	for _, id := range ids {
		if rctx.InCart(id) {
			continue
		}
		it := core.NewItem(id)
		it.PutLabel("algo", utils.Label{Value: NameContent, Source: "algo"})
		it.PutLabel("fallback", utils.Label{Value: "popularity", Source: "algo"})
		attachProduct(ctx, a.Catalog, it)
		category := ""
		if p, ok := it.Meta["product"].(*core.Product); ok {
			category = p.Category
		}
		candidates = append(candidates, candidate{item: it, category: category})
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	// 类目轮转重排：先每类目一个，再回填剩余
	seen := make(map[string]bool)
	ordered := make([]*core.Item, 0, len(candidates))
	var rest []*core.Item
	for _, c := range candidates {
		if c.category != "" && seen[c.category] {
			rest = append(rest, c.item)
			continue
		}
		seen[c.category] = true
		ordered = append(ordered, c.item)
	}
	ordered = append(ordered, rest...)

	// 按热度位次赋弱信号分：首位 = scoreCap，线性递减
	n := len(ordered)
	for i, it := range ordered {
		it.Score = scoreCap * float64(n-i) / float64(n)
	}
	return truncate(ordered, limit), nil
}

func (a *ContentBased) allProducts(ctx context.Context) ([]*core.Product, error) {
	if a.Catalog == nil {
		return nil, nil
	}
	return a.Catalog.AllProducts(ctx)
}
