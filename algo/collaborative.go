package algo

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/index"
	"github.com/rushteam/shoprec/pkg/utils"
)

// Collaborative 是基于用户的协同过滤算法（User-based Collaborative Filtering）。
//
// 核心思想："兴趣相似的用户，喜欢相似的商品"
//
// 算法流程：
//  1. 取请求用户在交互矩阵中的行（权重向量）
//  2. 与其他所有用户的行计算余弦相似度
//  3. 取 TopK 最相似邻居
//  4. 对请求用户未交互过的商品累积 similarity × weight(neighbor, product)
//
// 边界：无交互历史或矩阵用户数 < 2 时返回空列表（数据不足，不是错误）。
type Collaborative struct {
	Matrix  *index.InteractionMatrix
	Catalog core.Catalog

	// TopKNeighbors 参与累积的最相似邻居数；零值使用 core.DefaultTopKNeighbors
	TopKNeighbors int
}

func (a *Collaborative) Name() string { return NameCollaborative }

func (a *Collaborative) Score(
	ctx context.Context,
	rctx *core.RecommendContext,
	limit int,
) ([]*core.Item, error) {
	if a.Matrix == nil || rctx == nil {
		return nil, nil
	}
	if rctx.User == nil {
		// 调用方声称已知用户却给不出画像，属于畸形输入
		return nil, core.NewDomainError(core.ModuleAlgo, core.ErrorCodeNotFound, "collaborative: unknown user "+rctx.UserID)
	}

	now := time.Now()
	snapshot := a.Matrix.Snapshot(now)
	targetRow := snapshot[rctx.UserID]
	if len(targetRow) == 0 || len(snapshot) < 2 {
		return nil, nil
	}

	// 计算与所有其他用户的余弦相似度
	type neighbor struct {
		userID string
		sim    float64
	}
	neighbors := make([]neighbor, 0, len(snapshot)-1)
	for userID, row := range snapshot {
		if userID == rctx.UserID || len(row) == 0 {
			continue
		}
		sim := sparseCosine(targetRow, row)
		if sim > 0 { // 只保留正相似度
			neighbors = append(neighbors, neighbor{userID: userID, sim: sim})
		}
	}
	if len(neighbors) == 0 {
		return nil, nil
	}

	// 排序取 TopK 邻居；同分按用户 ID 保证确定性
	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].sim != neighbors[j].sim {
			return neighbors[i].sim > neighbors[j].sim
		}
		return neighbors[i].userID < neighbors[j].userID
	})
	topK := a.TopKNeighbors
	if topK <= 0 {
		topK = core.DefaultTopKNeighbors
	}
	if len(neighbors) > topK {
		neighbors = neighbors[:topK]
	}

	// 累积邻居喜欢但目标用户未见过的商品：score[p] = Σ sim(u, v) × weight(v, p)
	scores := make(map[string]float64)
	for _, nb := range neighbors {
		for productID, weight := range snapshot[nb.userID] {
			if _, owned := targetRow[productID]; owned {
				continue
			}
			if rctx.InCart(productID) {
				continue
			}
			scores[productID] += nb.sim * weight
		}
	}
	if len(scores) == 0 {
		return nil, nil
	}

	out := make([]*core.Item, 0, len(scores))
	for productID, score := range scores {
		it := core.NewItem(productID)
		it.Score = score
		it.PutLabel("algo", utils.Label{Value: NameCollaborative, Source: "algo"})
		attachProduct(ctx, a.Catalog, it)
		out = append(out, it)
	}

	sortCandidates(out)
	return truncate(out, limit), nil
}

// sparseCosine 计算两个稀疏权重向量的余弦相似度：
// 点积只遍历交集，范数覆盖各自全量维度。
func sparseCosine(a, b map[string]float64) float64 {
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}

	var dot float64
	for k, va := range small {
		if vb, ok := large[k]; ok {
			dot += va * vb
		}
	}
	if dot == 0 {
		return 0
	}

	var normA, normB float64
	for _, v := range a {
		normA += v * v
	}
	for _, v := range b {
		normB += v * v
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
