package algo

import (
	"context"
	"math"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/index"
	"github.com/rushteam/shoprec/pkg/utils"
)

// Sequential 是基于序列模式的打分算法。
//
// 核心思想："买了 A 的用户接下来经常买 B"——用转移表统计的
// 连续共现支持度预测下一步行为。
//
// 算法流程：
//  1. 锚点 = 购物车商品（最近加入优先），购物车为空则取最近交互的 AnchorWindow 个商品
//  2. 对每个锚点按几何衰减权重 decay^i 累加其转移支持度占比：
//     score[next] += decay^i × support(anchor→next) / total(anchor)
//  3. 过滤已拥有/购物车内商品，归一化到最大分为 1
//
// 边界：所有锚点都无转移数据时返回空列表（合法空结果）。
type Sequential struct {
	Transitions *index.TransitionTable
	Catalog     core.Catalog

	// AnchorWindow 取多少个锚点；零值使用 core.DefaultAnchorWindow
	AnchorWindow int

	// AnchorDecay 锚点几何衰减系数（越早的锚点权重越低）；零值使用 core.DefaultAnchorDecay
	AnchorDecay float64

	// CartBoost 购物车锚点的乘性加权；零值使用 core.DefaultCartBoost
	CartBoost float64
}

func (a *Sequential) Name() string { return NameSequential }

func (a *Sequential) Score(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.Item, error) {
	if a.Transitions == nil || rctx == nil {
		return nil, nil
	}
	if rctx.User == nil {
		return nil, core.NewDomainError(core.ModuleAlgo, core.ErrorCodeNotFound, "sequential: unknown user "+rctx.UserID)
	}

	window := a.AnchorWindow
	if window <= 0 {
		window = core.DefaultAnchorWindow
	}
	decay := a.AnchorDecay
	if decay <= 0 || decay > 1 {
		decay = core.DefaultAnchorDecay
	}

	// 锚点选取：购物车优先（最近加入在前），否则最近交互历史
	basedOnCart := rctx.HasCart()
	var anchors []string
	if basedOnCart {
		for i := len(rctx.CartItems) - 1; i >= 0 && len(anchors) < window; i-- {
			anchors = append(anchors, rctx.CartItems[i])
		}
	} else {
		anchors = rctx.User.RecentProducts(window)
	}
	if len(anchors) == 0 {
		return nil, nil
	}

	owned := rctx.User.InteractedSet()
	scores := make(map[string]float64)
	for i, anchor := range anchors {
		next, total := a.Transitions.Outgoing(anchor)
		if total <= 0 {
			continue
		}
		w := math.Pow(decay, float64(i))
		for product, support := range next {
			if owned[product] || rctx.InCart(product) {
				continue
			}
			scores[product] += w * support / total
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}

	// 归一化到最大分为 1，保持量纲稳定
	var max float64
	for _, s := range scores {
		if s > max {
			max = s
		}
	}

	boost := a.CartBoost
	if boost <= 0 {
		boost = core.DefaultCartBoost
	}

	out := make([]*core.Item, 0, len(scores))
	for id, s := range scores {
		it := core.NewItem(id)
		it.Score = s / max
		it.PutLabel("algo", utils.Label{Value: NameSequential, Source: "algo"})
		if basedOnCart {
			it.Score *= boost
			it.PutLabel("based_on_cart", utils.Label{Value: "true", Source: "algo"})
		}
		attachProduct(ctx, a.Catalog, it)
		out = append(out, it)
	}

	sortCandidates(out)
	return truncate(out, limit), nil
}
