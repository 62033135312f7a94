package hybrid

import (
	"context"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pipeline"
)

// CombineNode 把 Combiner 接入 Pipeline 的融合阶段。
// Limit 为 0 时使用 core.DefaultLimit，为负时不截断。
type CombineNode struct {
	Combiner *Combiner
	Limit    int
}

func (n *CombineNode) Name() string        { return "hybrid.combine" }
func (n *CombineNode) Kind() pipeline.Kind { return pipeline.KindCombine }

func (n *CombineNode) Process(
	_ context.Context,
	_ *core.RecommendContext,
	items []*core.Item,
) ([]*core.Item, error) {
	c := n.Combiner
	if c == nil {
		c = &Combiner{}
	}
	limit := n.Limit
	if limit == 0 {
		limit = core.DefaultLimit
	}
	return c.Combine(items, limit), nil
}
