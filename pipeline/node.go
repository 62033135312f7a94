package pipeline

import (
	"context"

	"github.com/rushteam/shoprec/core"
)

// Kind 用于标记 Node 类型，方便观测/治理/编排（例如按阶段打点）。
type Kind string

const (
	KindRecall      Kind = "recall"      // 召回阶段：各算法生成候选集
	KindFilter      Kind = "filter"      // 过滤阶段：剔除已拥有/不符合偏好的候选
	KindCombine     Kind = "combine"     // 融合阶段：归一化、加权融合、解释生成
	KindPostProcess Kind = "postprocess" // 后处理阶段：截断或最终结果修饰
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 items -> 输出 items”的形态，方便召回生成、过滤截断、融合重排等操作。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		rctx *core.RecommendContext,
		items []*core.Item,
	) ([]*core.Item, error)
}
