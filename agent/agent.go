// Package agent 实现推荐引擎的编排层：请求校验、算法分发、
// 融合出口、结果缓存与算法生命周期管理。
package agent

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/rushteam/shoprec/algo"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/filter"
	"github.com/rushteam/shoprec/hybrid"
	"github.com/rushteam/shoprec/pipeline"
)

// Agent 是推荐请求的统一入口。
//
// 每次请求按需组装一条 Pipeline：
//
//	algo fan-out（并发打分，超时降级）
//	  -> filter（已拥有兜底过滤 + 偏好规则过滤）
//	  -> hybrid combine（归一化、加权融合、解释生成）
//
// 单算法请求复用同一条链路，只是 fan-out 只挂一个源、融合权重为 1。
type Agent struct {
	Profiles core.ProfileStore
	Catalog  core.Catalog

	// Algorithms 按名字注册的打分算法（collaborative / content / sequential）
	Algorithms map[string]algo.Algorithm

	// Stats 运行统计与启停注册表；nil 时自动创建
	Stats *Stats

	// Cache 推荐结果缓存（可选）；反馈写入后按用户失效
	Cache    core.Store
	CacheTTL time.Duration

	// Weights 混合融合权重；零值使用 core.DefaultAlgorithmWeights()
	Weights map[string]float64

	// MinConfidence 融合置信度下限；零值使用 core.DefaultMinConfidence
	MinConfidence float64

	// Timeout 单算法超时；零值使用 core.DefaultAlgoTimeout
	Timeout time.Duration

	// Refreshers 算法名 -> 数据刷新钩子（update 动作触发，如 Feast 特征回灌）
	Refreshers map[string]func(ctx context.Context) error

	// Resetters 算法名 -> 学习状态清空钩子（reset 动作在清零统计后触发）
	Resetters map[string]func()
}

// New 创建 Agent 并注册三个打分算法。
func New(profiles core.ProfileStore, catalog core.Catalog, algorithms ...algo.Algorithm) *Agent {
	a := &Agent{
		Profiles:   profiles,
		Catalog:    catalog,
		Algorithms: make(map[string]algo.Algorithm, len(algorithms)),
		Stats:      NewStats(),
	}
	for _, alg := range algorithms {
		a.Algorithms[alg.Name()] = alg
	}
	return a
}

func (a *Agent) stats() *Stats {
	if a.Stats == nil {
		a.Stats = NewStats()
	}
	return a.Stats
}

// GetRecommendations 处理一次推荐请求。
//
// algorithm 可为 collaborative / content / sequential / hybrid；
// 为空时取用户画像的偏好算法，仍为空则 hybrid。
//
// 错误语义：
//   - 用户不存在：NOT_FOUND
//   - 未知算法名：INVALID_CHOICE
//   - 指定了被禁用的单算法：NOT_SUPPORTED
//   - 数据不足：不是错误，返回 status=insufficient_data 的空结果
func (a *Agent) GetRecommendations(
	ctx context.Context,
	userID string,
	algorithm string,
	cartItems []string,
	limit int,
) (*core.Result, error) {
	if userID == "" {
		return nil, core.NewDomainError(core.ModuleAgent, core.ErrorCodeInvalidInput, "agent: user id is required")
	}
	if limit <= 0 {
		limit = core.DefaultLimit
	}

	profile, err := a.Profiles.GetProfile(ctx, userID)
	if err != nil {
		if core.IsNotFound(err) {
			return nil, core.NewDomainError(core.ModuleAgent, core.ErrorCodeNotFound, "agent: unknown user "+userID)
		}
		return nil, err
	}

	choice := algorithm
	if choice == "" {
		choice = profile.PreferredAlgorithm
	}
	if choice == "" {
		choice = algo.NameHybrid
	}
	if err := a.validateChoice(choice); err != nil {
		return nil, err
	}

	// 缓存命中直接返回
	cacheKey := a.cacheKey(ctx, userID, choice, cartItems, limit)
	if cached := a.cacheGet(ctx, cacheKey); cached != nil {
		return cached, nil
	}

	rctx := &core.RecommendContext{
		UserID:    userID,
		Scene:     "recommend",
		User:      profile,
		CartItems: cartItems,
	}

	items, err := a.run(ctx, rctx, choice, limit)
	if err != nil {
		return nil, err
	}

	result := a.toResult(choice, items)
	a.cachePut(ctx, cacheKey, result)
	return result, nil
}

// validateChoice 校验算法名；单算法被禁用时拒绝请求。
func (a *Agent) validateChoice(choice string) error {
	if choice == algo.NameHybrid {
		return nil
	}
	if _, ok := a.Algorithms[choice]; !ok {
		return core.NewDomainError(core.ModuleAgent, core.ErrorCodeInvalidChoice, "agent: unknown algorithm "+choice)
	}
	if !a.stats().Enabled(choice) {
		return core.NewDomainError(core.ModuleAgent, core.ErrorCodeNotSupported, "agent: algorithm disabled: "+choice)
	}
	return nil
}

// sources 返回本次请求参与打分的算法，顺序确定。
// hybrid 时跳过被禁用的算法，融合层会对剩余权重重归一。
func (a *Agent) sources(choice string) []algo.Algorithm {
	if choice != algo.NameHybrid {
		if alg, ok := a.Algorithms[choice]; ok {
			return []algo.Algorithm{alg}
		}
		return nil
	}
	var out []algo.Algorithm
	for _, name := range []string{algo.NameCollaborative, algo.NameContent, algo.NameSequential} {
		alg, ok := a.Algorithms[name]
		if !ok || !a.stats().Enabled(name) {
			continue
		}
		out = append(out, alg)
	}
	return out
}

// run 组装并执行一次推荐 Pipeline。
func (a *Agent) run(
	ctx context.Context,
	rctx *core.RecommendContext,
	choice string,
	limit int,
) ([]*core.Item, error) {
	sources := a.sources(choice)
	if len(sources) == 0 {
		return nil, nil
	}

	weights := a.Weights
	if len(weights) == 0 {
		weights = core.DefaultAlgorithmWeights()
	}
	if choice != algo.NameHybrid {
		weights = map[string]float64{choice: 1}
	}

	// 候选量放大，过滤与融合后再截断到 limit
	fanout := &algo.Fanout{
		Sources:  sources,
		Limit:    limit * 3,
		Timeout:  a.Timeout,
		OnResult: a.stats().ObserveRun,
	}

	filters := []filter.Filter{&filter.OwnedFilter{}}
	if expr := filter.PreferenceRule(rctx.User); expr != "" {
		rule := filter.NewRuleFilter(expr)
		rule.Lookup = a.lookupProduct
		filters = append(filters, rule)
	}

	p := &pipeline.Pipeline{
		Nodes: []pipeline.Node{
			fanout,
			&filter.Node{Filters: filters},
			&hybrid.CombineNode{
				Combiner: &hybrid.Combiner{Weights: weights, MinConfidence: a.MinConfidence},
				Limit:    limit,
			},
		},
	}
	return p.Run(ctx, rctx, nil)
}

func (a *Agent) lookupProduct(ctx context.Context, productID string) (*core.Product, error) {
	if a.Catalog == nil {
		return nil, core.ErrProductNotFound
	}
	return a.Catalog.GetProduct(ctx, productID)
}

// toResult 把融合后的候选转换为对外响应，并上报置信度统计。
func (a *Agent) toResult(choice string, items []*core.Item) *core.Result {
	if len(items) == 0 {
		return core.EmptyResult(choice)
	}

	recs := make([]*core.Recommendation, 0, len(items))
	basedOnCart := false
	for _, it := range items {
		p, ok := it.Meta["product"].(*core.Product)
		if !ok || p == nil {
			p = &core.Product{ID: it.ID}
		}
		source := it.GetLabel("dominant_algo")
		if source == "" {
			source = choice
		}
		rec := &core.Recommendation{
			Product:     p,
			Algorithm:   source,
			Confidence:  it.Score,
			Explanation: it.GetLabel("explanation"),
			BasedOnCart: it.GetLabel("based_on_cart") != "",
		}
		if rec.BasedOnCart {
			basedOnCart = true
		}
		a.stats().ObserveConfidence(source, it.Score)
		recs = append(recs, rec)
	}

	return &core.Result{
		Status:          core.StatusOK,
		Algorithm:       choice,
		BasedOnCart:     basedOnCart,
		Recommendations: recs,
	}
}

// UpdateAlgorithm 执行算法生命周期管理动作（update / reset / disable / enable）。
// 未知算法返回 NOT_FOUND，未知动作返回 INVALID_CHOICE。
func (a *Agent) UpdateAlgorithm(ctx context.Context, name, action string) error {
	st := a.stats().get(name)
	if st == nil {
		return core.NewDomainError(core.ModuleAgent, core.ErrorCodeNotFound, "agent: unknown algorithm "+name)
	}
	if err := st.apply(action); err != nil {
		return err
	}
	switch action {
	case ActionUpdate:
		if refresh, ok := a.Refreshers[name]; ok && refresh != nil {
			return refresh(ctx)
		}
	case ActionReset:
		if reset, ok := a.Resetters[name]; ok && reset != nil {
			reset()
		}
	}
	return nil
}

// AlgorithmStats 返回全部算法的统计快照。
func (a *Agent) AlgorithmStats() []StatsView {
	return a.stats().Snapshot()
}

// ---- 结果缓存 ----
//
// 缓存 key 带用户版本号：反馈写入时只需递增版本号即可让该用户的
// 全部缓存条目自然失效，不依赖按前缀删除的存储能力。

func (a *Agent) versionKey(userID string) string { return "agent:ver:" + userID }

func (a *Agent) userVersion(ctx context.Context, userID string) string {
	if a.Cache == nil {
		return "0"
	}
	data, err := a.Cache.Get(ctx, a.versionKey(userID))
	if err != nil {
		return "0"
	}
	return string(data)
}

// InvalidateUser 递增用户缓存版本，使其全部缓存结果失效。
func (a *Agent) InvalidateUser(ctx context.Context, userID string) {
	if a.Cache == nil {
		return
	}
	ver, _ := strconv.ParseInt(a.userVersion(ctx, userID), 10, 64)
	_ = a.Cache.Set(ctx, a.versionKey(userID), []byte(strconv.FormatInt(ver+1, 10)))
}

func (a *Agent) cacheKey(ctx context.Context, userID, choice string, cartItems []string, limit int) string {
	if a.Cache == nil {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(strings.Join(cartItems, ",")))
	return "agent:rec:" + userID +
		":v" + a.userVersion(ctx, userID) +
		":" + choice +
		":" + strconv.Itoa(limit) +
		":" + strconv.FormatUint(uint64(h.Sum32()), 16)
}

func (a *Agent) cacheGet(ctx context.Context, key string) *core.Result {
	if a.Cache == nil || key == "" {
		return nil
	}
	data, err := a.Cache.Get(ctx, key)
	if err != nil {
		return nil
	}
	var r core.Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil
	}
	return &r
}

func (a *Agent) cachePut(ctx context.Context, key string, r *core.Result) {
	if a.Cache == nil || key == "" {
		return
	}
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	if a.CacheTTL > 0 {
		_ = a.Cache.Set(ctx, key, data, int(a.CacheTTL/time.Second))
		return
	}
	_ = a.Cache.Set(ctx, key, data)
}
