package filter

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// OwnedFilter 过滤掉用户已经交互过或已在购物车中的商品。
// 这是推荐结果的硬约束：矩阵里已有权重的商品永不再次推荐。
type OwnedFilter struct{}

func (f *OwnedFilter) Name() string {
	return "filter.owned"
}

func (f *OwnedFilter) ShouldFilter(
	_ context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if item == nil || rctx == nil {
		return false, nil
	}

	if rctx.InCart(item.ID) {
		return true, nil
	}
	if rctx.User != nil {
		for _, in := range rctx.User.Interactions {
			if in.ProductID == item.ID {
				return true, nil
			}
		}
	}
	return false, nil
}
