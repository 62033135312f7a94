package core

import "github.com/rushteam/shoprec/pkg/utils"

// RecommendContext 承载一次推荐请求的用户/购物车/场景信息，贯穿整个链路透传。
type RecommendContext struct {
	UserID string
	Scene  string

	// User 是请求时解析好的用户画像快照，所有算法只读。
	User *UserProfile

	// CartItems 是当前购物车内容（最近加入的在前）。
	// 非空时内容/序列算法切换为购物车种子打分，结果标记 based_on_cart。
	CartItems []string

	// Labels 是请求级标签，可驱动过滤与解释。
	Labels map[string]utils.Label

	// Params 请求级上下文参数（如 max_price、scene 特征等）。
	Params map[string]any
}

// HasCart 检查购物车是否非空。
func (rctx *RecommendContext) HasCart() bool {
	return len(rctx.CartItems) > 0
}

// InCart 检查商品是否已在购物车中。
func (rctx *RecommendContext) InCart(productID string) bool {
	for _, id := range rctx.CartItems {
		if id == productID {
			return true
		}
	}
	return false
}

// PutLabel 写入请求级 Label。
func (rctx *RecommendContext) PutLabel(key string, lbl utils.Label) {
	if rctx.Labels == nil {
		rctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := rctx.Labels[key]; ok {
		rctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	rctx.Labels[key] = lbl
}

// GetLabel 获取请求级 Label。
func (rctx *RecommendContext) GetLabel(key string) (utils.Label, bool) {
	if rctx.Labels == nil {
		return utils.Label{}, false
	}
	lbl, ok := rctx.Labels[key]
	return lbl, ok
}
