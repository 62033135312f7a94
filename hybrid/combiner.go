// Package hybrid 实现多算法结果的归一化、加权融合与解释生成。
package hybrid

import (
	"sort"
	"strings"

	"github.com/rushteam/shoprec/algo"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/utils"
)

// Combiner 把多个算法的 raw score 融合成统一置信度。
//
// 融合流程：
//  1. 按来源算法分组，组内 min-max 归一化到 [0,1]
//     （组内全部等分时视为已归一化，全取 1.0）
//  2. 融合权重在实际贡献的算法间重归一（某算法空贡献/被禁用时
//     其权重摊给其余算法）
//  3. confidence[p] = Σ weight[a] × norm[a][p]，截到 [0,1]
//  4. 丢弃低于 MinConfidence 的候选
//  5. 确定性决胜：置信度降序 → 贡献算法数降序 → 热度降序 → 商品 ID 升序
type Combiner struct {
	// Weights 各算法的融合权重；零值使用 core.DefaultAlgorithmWeights()
	Weights map[string]float64

	// MinConfidence 置信度下限；零值使用 core.DefaultMinConfidence
	MinConfidence float64
}

// merged 是单个商品在融合过程中的聚合状态。
type merged struct {
	item       *core.Item
	normScores map[string]float64 // 算法名 → 归一化分
	basedCart  bool
}

func (c *Combiner) weights() map[string]float64 {
	if len(c.Weights) > 0 {
		return c.Weights
	}
	return core.DefaultAlgorithmWeights()
}

func (c *Combiner) minConfidence() float64 {
	if c.MinConfidence > 0 {
		return c.MinConfidence
	}
	return core.DefaultMinConfidence
}

// Combine 融合多算法候选。输入 items 来自 fan-out 的 union 合并，
// 每个 Item 带 "algo" label 标注来源。输出的 Item.Score 为置信度。
func (c *Combiner) Combine(items []*core.Item, limit int) []*core.Item {
	if len(items) == 0 {
		return nil
	}

	// 1. 按来源算法分组
	groups := make(map[string][]*core.Item)
	for _, it := range items {
		if it == nil {
			continue
		}
		name := sourceAlgo(it)
		if name == "" {
			continue
		}
		groups[name] = append(groups[name], it)
	}
	if len(groups) == 0 {
		return nil
	}

	// 2. 权重在实际贡献的算法间重归一
	base := c.weights()
	var total float64
	weights := make(map[string]float64, len(groups))
	for name := range groups {
		w := base[name]
		if w <= 0 {
			continue
		}
		weights[name] = w
		total += w
	}
	if total <= 0 {
		return nil
	}
	for name := range weights {
		weights[name] /= total
	}

	// 3. 组内 min-max 归一化并累加加权分
	byID := make(map[string]*merged)
	for name, group := range groups {
		if _, ok := weights[name]; !ok {
			continue
		}
		lo, hi := group[0].Score, group[0].Score
		for _, it := range group {
			if it.Score < lo {
				lo = it.Score
			}
			if it.Score > hi {
				hi = it.Score
			}
		}
		for _, it := range group {
			norm := 1.0
			if hi > lo {
				norm = (it.Score - lo) / (hi - lo)
			}
			m := byID[it.ID]
			if m == nil {
				m = &merged{
					item:       core.NewItem(it.ID),
					normScores: make(map[string]float64),
				}
				byID[it.ID] = m
			}
			m.normScores[name] = norm
			if it.GetLabel("based_on_cart") != "" {
				m.basedCart = true
			}
			// 合并元信息与 labels（保留热度/商品对象与来源归因）
			for k, v := range it.Meta {
				if _, exists := m.item.Meta[k]; !exists {
					m.item.Meta[k] = v
				}
			}
			for k, v := range it.Labels {
				m.item.PutLabel(k, v)
			}
		}
	}

	// 4. 置信度计算 + 下限过滤
	minConf := c.minConfidence()
	out := make([]*core.Item, 0, len(byID))
	for _, m := range byID {
		var conf float64
		for name, norm := range m.normScores {
			conf += weights[name] * norm
		}
		if conf > 1 {
			conf = 1
		}
		if conf < minConf {
			continue
		}
		m.item.Score = conf
		m.item.PutLabel("explanation", utils.Label{
			Value:  explain(dominant(m.normScores, weights), m.basedCart),
			Source: "hybrid",
		})
		m.item.PutLabel("dominant_algo", utils.Label{
			Value:  dominant(m.normScores, weights),
			Source: "hybrid",
		})
		if m.basedCart {
			m.item.PutLabel("based_on_cart", utils.Label{Value: "true", Source: "hybrid"})
		}
		m.item.Meta["contributors"] = len(m.normScores)
		contributions := make(map[string]float64, len(m.normScores))
		for name, norm := range m.normScores {
			contributions[name] = weights[name] * norm
		}
		m.item.Meta["contributions"] = contributions
		out = append(out, m.item)
	}
	if len(out) == 0 {
		return nil
	}

	// 5. 确定性决胜排序
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		ci, cj := contributors(out[i]), contributors(out[j])
		if ci != cj {
			return ci > cj
		}
		if pi, pj := out[i].Popularity(), out[j].Popularity(); pi != pj {
			return pi > pj
		}
		return out[i].ID < out[j].ID
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// sourceAlgo 解析候选的来源算法名。fan-out 与打分算法都会写 "algo" label，
// Merge 累积会形成 "a|b" 形式，取第一段即原始来源。
func sourceAlgo(it *core.Item) string {
	v := it.GetLabel("algo")
	if v == "" {
		return ""
	}
	if i := strings.IndexByte(v, '|'); i >= 0 {
		return v[:i]
	}
	return v
}

func contributors(it *core.Item) int {
	if n, ok := it.Meta["contributors"].(int); ok {
		return n
	}
	return 0
}

// dominant 返回加权贡献最大的算法，用于生成解释文案。并列时按名字升序取第一个。
func dominant(norms map[string]float64, weights map[string]float64) string {
	var best string
	var bestScore float64
	names := make([]string, 0, len(norms))
	for name := range norms {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := weights[name] * norms[name]
		if best == "" || s > bestScore {
			best, bestScore = name, s
		}
	}
	return best
}

// explain 按主导算法生成解释文案。
func explain(dominantAlgo string, basedOnCart bool) string {
	var msg string
	switch dominantAlgo {
	case algo.NameCollaborative:
		msg = "shoppers with similar taste also bought this"
	case algo.NameContent:
		msg = "similar to products you liked"
	case algo.NameSequential:
		msg = "frequently bought after products you engaged with"
	default:
		msg = "popular right now"
	}
	if basedOnCart {
		return "based on your cart: " + msg
	}
	return msg
}
