package agent

import (
	"context"

	"github.com/rushteam/shoprec/algo"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/hybrid"
	"github.com/rushteam/shoprec/pipeline"
)

// Explanation 是单个商品对单个用户的推荐归因。
type Explanation struct {
	UserID        string             `json:"user_id"`
	ProductID     string             `json:"product_id"`
	Confidence    float64            `json:"confidence_score"`
	Contributions map[string]float64 `json:"contributions"` // 算法名 -> 加权贡献
	Explanation   string             `json:"explanation"`
	BasedOnCart   bool               `json:"based_on_cart"`
}

// Explain 解释某个商品为何（或为何不会）被推荐给某个用户。
//
// 跑一遍不截断、不过滤的 hybrid 融合，从候选里找到目标商品并拆解
// 各算法的加权贡献。商品未进入任何算法的候选集时返回 NOT_FOUND。
func (a *Agent) Explain(ctx context.Context, userID, productID string) (*Explanation, error) {
	profile, err := a.Profiles.GetProfile(ctx, userID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, core.NewDomainError(core.ModuleAgent, core.ErrorCodeNotFound, "agent: unknown user "+userID)
		}
		return nil, err
	}

	rctx := &core.RecommendContext{
		UserID: userID,
		Scene:  "explain",
		User:   profile,
	}

	weights := a.Weights
	if len(weights) == 0 {
		weights = core.DefaultAlgorithmWeights()
	}

	// 不挂过滤节点：被过滤的商品也需要可解释
	p := &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			&algo.Fanout{
				Sources: a.sources(algo.NameHybrid),
				Timeout: a.Timeout,
			},
			&hybrid.CombineNode{
				Combiner: &hybrid.Combiner{
					Weights:       weights,
					MinConfidence: a.MinConfidence,
				},
				Limit: -1,
			},
		},
	}
	items, err := p.Run(ctx, rctx, nil)
	if err != nil {
		return nil, err
	}

	for _, it := range items {
		if it.ID != productID {
			continue
		}
		contributions, _ := it.Meta["contributions"].(map[string]float64)
		return &Explanation{
			UserID:        userID,
			ProductID:     productID,
			Confidence:    it.Score,
			Contributions: contributions,
			Explanation:   it.GetLabel("explanation"),
			BasedOnCart:   it.GetLabel("based_on_cart") != "",
		}, nil
	}
	return nil, core.NewDomainError(core.ModuleAgent, core.ErrorCodeNotFound,
		"agent: product "+productID+" not in candidate set for user "+userID)
}
