package core

import "github.com/rushteam/shoprec/pkg/utils"

// Item 是推荐链路中的统一候选承载结构：原始分、特征、元信息、标签。
// Labels 用于解释与归因（来源算法、是否购物车种子）；Score 在各阶段语义不同：
// 算法产出时为 raw score，融合之后为置信度。
type Item struct {
	ID       string
	Score    float64
	Features map[string]float64
	Meta     map[string]any
	Labels   map[string]utils.Label
}

func NewItem(id string) *Item {
	return &Item{
		ID:       id,
		Score:    0,
		Features: make(map[string]float64),
		Meta:     make(map[string]any),
		Labels:   make(map[string]utils.Label),
	}
}

// PutLabel 写入 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (it *Item) PutLabel(key string, lbl utils.Label) {
	if it.Labels == nil {
		it.Labels = make(map[string]utils.Label)
	}
	if old, ok := it.Labels[key]; ok {
		it.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	it.Labels[key] = lbl
}

// GetLabel 读取 Label 的 Value，不存在时返回空串。
func (it *Item) GetLabel(key string) string {
	if it.Labels == nil {
		return ""
	}
	return it.Labels[key].Value
}

// Popularity 从 Meta 读取商品热度，用于并列分的决胜排序。
func (it *Item) Popularity() float64 {
	if it.Meta == nil {
		return 0
	}
	if v, ok := it.Meta["popularity"].(float64); ok {
		return v
	}
	return 0
}
