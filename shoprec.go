// Package shoprec 是一个电商推荐引擎（Shop Recommender）。
//
// 设计要点：
// - Pipeline-first: 推荐逻辑通过 Node 串联（算法 fan-out → Filter → Combine）
// - Labels-first: labels 全链路透传与标准化 merge，支持 explain / 观测
// - 多算法融合: 协同过滤、基于内容、序列模式三路并发打分，归一化后加权融合
// - 空结果不是错误: 数据不足返回 insufficient_data 状态，调用方无需特判异常
package shoprec

import (
	"github.com/rushteam/shoprec/agent"
	"github.com/rushteam/shoprec/algo"
	"github.com/rushteam/shoprec/config"
	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/feedback"
	"github.com/rushteam/shoprec/index"
	"github.com/rushteam/shoprec/pipeline"
	"github.com/rushteam/shoprec/store"
)

// 轻量 facade：便于用户直接 import "shoprec" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindRecall      = pipeline.KindRecall
	KindFilter      = pipeline.KindFilter
	KindCombine     = pipeline.KindCombine
	KindPostProcess = pipeline.KindPostProcess
)

// Engine 把引擎的全部组件装配在一起：索引结构、三个打分算法、
// 编排 Agent 与反馈 Processor 共享同一套底层数据。
type Engine struct {
	Matrix      *index.InteractionMatrix
	Transitions *index.TransitionTable
	Features    *index.FeatureIndex

	Catalog  core.Catalog
	Profiles core.ProfileStore

	Agent    *agent.Agent
	Feedback *feedback.Processor
}

// NewEngine 按配置装配一个完整引擎。cfg 为 nil 时全部使用默认参数。
// kv 承载目录/画像/缓存三类数据；测试可传 store.NewMemoryStore()。
func NewEngine(cfg *config.EngineConfig, kv core.KeyValueStore) *Engine {
	if cfg == nil {
		cfg = &config.EngineConfig{}
	}

	matrix := index.NewInteractionMatrix(cfg.DecayHalfLife())
	transitions := index.NewTransitionTable(cfg.Engine.TransitionWindow)
	features := index.NewFeatureIndex()

	catalog := store.NewCatalogAdapter(kv, "catalog")
	profiles := store.NewProfileAdapter(kv, "user")

	collaborative := &algo.Collaborative{
		Matrix:        matrix,
		Catalog:       catalog,
		TopKNeighbors: cfg.Engine.TopKNeighbors,
	}
	content := &algo.ContentBased{
		Features:    features,
		Matrix:      matrix,
		Catalog:     catalog,
		CartBoost:   cfg.Engine.CartBoost,
		FallbackCap: cfg.Engine.FallbackCap,
	}
	sequential := &algo.Sequential{
		Transitions:  transitions,
		Catalog:      catalog,
		AnchorWindow: cfg.Engine.AnchorWindow,
		AnchorDecay:  cfg.Engine.AnchorDecay,
		CartBoost:    cfg.Engine.CartBoost,
	}

	ag := agent.New(profiles, catalog, collaborative, content, sequential)
	// reset 动作清空对应算法的学习状态；content 的味觉向量派生自矩阵，无独立状态
	ag.Resetters = map[string]func(){
		algo.NameCollaborative: matrix.Reset,
		algo.NameSequential:    transitions.Reset,
	}
	ag.Weights = cfg.Weights()
	ag.MinConfidence = cfg.Engine.MinConfidence
	ag.Timeout = cfg.AlgoTimeout()
	if ttl := cfg.CacheTTL(); ttl > 0 {
		ag.Cache = kv
		ag.CacheTTL = ttl
	}

	return &Engine{
		Matrix:      matrix,
		Transitions: transitions,
		Features:    features,
		Catalog:     catalog,
		Profiles:    profiles,
		Agent:       ag,
		Feedback: &feedback.Processor{
			Profiles:    profiles,
			Catalog:     catalog,
			Matrix:      matrix,
			Transitions: transitions,
			Invalidator: ag,
			Outcomes:    ag.Stats,
		},
	}
}
