// Package algo 实现推荐引擎的打分算法集：协同过滤、基于内容、序列模式。
// 算法集是封闭可枚举的，统一通过 Algorithm 接口被编排层分发，不做开放式插件加载。
package algo

import (
	"context"
	"sort"

	"github.com/rushteam/shoprec/core"
)

// 算法名常量。请求里的 algorithm 参数与融合权重配置都使用这些名字。
const (
	NameCollaborative = "collaborative"
	NameContent       = "content"
	NameSequential    = "sequential"
	NameHybrid        = "hybrid"
)

// Algorithm 表示一个可复用的打分算法（可并发 fan-out 的策略单元）。
//
// 约定：
//   - 返回的 Item.Score 为算法自己量纲下的 raw score，融合层负责归一化
//   - 数据不足返回空列表而非错误（合法空结果，融合层必须容忍）
//   - 只有畸形输入（如画像缺失）才返回错误
type Algorithm interface {
	Name() string
	Score(ctx context.Context, rctx *core.RecommendContext, limit int) ([]*core.Item, error)
}

// sortCandidates 对候选做确定性排序：
// raw score 降序 → 商品热度降序 → 商品 ID 升序。
func sortCandidates(items []*core.Item) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		if pi, pj := items[i].Popularity(), items[j].Popularity(); pi != pj {
			return pi > pj
		}
		return items[i].ID < items[j].ID
	})
}

// attachProduct 把商品元信息挂到候选上（热度用于决胜，名称/类目用于解释文案）。
func attachProduct(ctx context.Context, catalog core.Catalog, it *core.Item) {
	if catalog == nil {
		return
	}
	p, err := catalog.GetProduct(ctx, it.ID)
	if err != nil || p == nil {
		return
	}
	it.Meta["popularity"] = p.Popularity
	it.Meta["product"] = p
}

// truncate 截取前 limit 个候选。
func truncate(items []*core.Item, limit int) []*core.Item {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}
	return items
}
