// Package config 提供引擎参数的 YAML/JSON 配置加载与校验。
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/shoprec/core"
)

// EngineConfig 是推荐引擎的可调参数（支持 YAML/JSON）。
// 零值字段回落到 core 包的默认值，所以部分覆盖是安全的。
type EngineConfig struct {
	Engine struct {
		// Weights 混合融合权重，键为算法名
		Weights map[string]float64 `yaml:"weights" json:"weights"`

		// TopKNeighbors 协同过滤邻居数
		TopKNeighbors int `yaml:"top_k_neighbors" json:"top_k_neighbors"`

		// DecayHalfLifeDays 交互权重衰减半衰期（天）
		DecayHalfLifeDays float64 `yaml:"decay_half_life_days" json:"decay_half_life_days"`

		// TransitionWindow 转移表每用户近期窗口
		TransitionWindow int `yaml:"transition_window" json:"transition_window"`

		// AnchorWindow 序列算法锚点数
		AnchorWindow int `yaml:"anchor_window" json:"anchor_window"`

		// AnchorDecay 锚点几何衰减系数，(0,1]
		AnchorDecay float64 `yaml:"anchor_decay" json:"anchor_decay"`

		// AlgoTimeoutMS 单算法超时（毫秒）
		AlgoTimeoutMS int `yaml:"algo_timeout_ms" json:"algo_timeout_ms"`

		// MinConfidence 融合置信度下限，[0,1)
		MinConfidence float64 `yaml:"min_confidence" json:"min_confidence"`

		// CartBoost 购物车种子加权，>= 1
		CartBoost float64 `yaml:"cart_boost" json:"cart_boost"`

		// FallbackCap 热门兜底 raw score 上限，(0,1]
		FallbackCap float64 `yaml:"fallback_cap" json:"fallback_cap"`

		// Limit 默认返回条数
		Limit int `yaml:"limit" json:"limit"`

		// CacheTTLSeconds 结果缓存 TTL（秒），0 表示不缓存
		CacheTTLSeconds int `yaml:"cache_ttl_seconds" json:"cache_ttl_seconds"`
	} `yaml:"engine" json:"engine"`
}

// LoadFromYAML 从 YAML 文件加载引擎配置。
func LoadFromYAML(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg EngineConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFromJSON 从 JSON 文件加载引擎配置。
func LoadFromJSON(path string) (*EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var cfg EngineConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验配置取值范围。零值（未设置）合法。
func (c *EngineConfig) Validate() error {
	e := &c.Engine
	for name, w := range e.Weights {
		if w < 0 {
			return fmt.Errorf("weight for %s must not be negative", name)
		}
	}
	if e.AnchorDecay < 0 || e.AnchorDecay > 1 {
		return fmt.Errorf("anchor_decay must be in (0,1], got %v", e.AnchorDecay)
	}
	if e.MinConfidence < 0 || e.MinConfidence >= 1 {
		return fmt.Errorf("min_confidence must be in [0,1), got %v", e.MinConfidence)
	}
	if e.CartBoost != 0 && e.CartBoost < 1 {
		return fmt.Errorf("cart_boost must be >= 1, got %v", e.CartBoost)
	}
	if e.FallbackCap < 0 || e.FallbackCap > 1 {
		return fmt.Errorf("fallback_cap must be in (0,1], got %v", e.FallbackCap)
	}
	if e.TopKNeighbors < 0 || e.TransitionWindow < 0 || e.AnchorWindow < 0 ||
		e.AlgoTimeoutMS < 0 || e.Limit < 0 || e.CacheTTLSeconds < 0 {
		return fmt.Errorf("counts and durations must not be negative")
	}
	if e.DecayHalfLifeDays < 0 {
		return fmt.Errorf("decay_half_life_days must not be negative")
	}
	return nil
}

// Weights 返回融合权重，未配置时使用默认权重。
func (c *EngineConfig) Weights() map[string]float64 {
	if len(c.Engine.Weights) > 0 {
		return c.Engine.Weights
	}
	return core.DefaultAlgorithmWeights()
}

// DecayHalfLife 返回衰减半衰期，未配置时使用默认值。
func (c *EngineConfig) DecayHalfLife() time.Duration {
	if c.Engine.DecayHalfLifeDays > 0 {
		return time.Duration(c.Engine.DecayHalfLifeDays * 24 * float64(time.Hour))
	}
	return core.DefaultDecayHalfLife
}

// AlgoTimeout 返回单算法超时，未配置时使用默认值。
func (c *EngineConfig) AlgoTimeout() time.Duration {
	if c.Engine.AlgoTimeoutMS > 0 {
		return time.Duration(c.Engine.AlgoTimeoutMS) * time.Millisecond
	}
	return core.DefaultAlgoTimeout
}

// CacheTTL 返回结果缓存 TTL，0 表示不缓存。
func (c *EngineConfig) CacheTTL() time.Duration {
	return time.Duration(c.Engine.CacheTTLSeconds) * time.Second
}
