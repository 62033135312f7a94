package core

import "time"

// 引擎各组件在字段为零值时使用的默认参数。
// 衰减半衰期与窗口长度是可调配置而非硬编码常量：config 包从 YAML 加载覆盖值。
const (
	// DefaultTopKNeighbors 协同过滤考虑的最相似邻居数
	DefaultTopKNeighbors = 20

	// DefaultAnchorWindow 序列算法取最近多少次交互作为锚点
	DefaultAnchorWindow = 5

	// DefaultTransitionWindow 转移表挖掘时每用户保留的近期交互数
	DefaultTransitionWindow = 5

	// DefaultAnchorDecay 锚点按时间回退的几何衰减系数
	DefaultAnchorDecay = 0.8

	// DefaultDecayHalfLife 交互权重的指数衰减半衰期
	DefaultDecayHalfLife = 30 * 24 * time.Hour

	// DefaultAlgoTimeout 单算法独立超时
	DefaultAlgoTimeout = 2 * time.Second

	// DefaultMinConfidence 融合后低于该置信度的候选被丢弃
	DefaultMinConfidence = 0.1

	// DefaultCartBoost 购物车种子候选的乘性加权
	DefaultCartBoost = 1.2

	// DefaultFallbackCap 无信号热门兜底的 raw score 上限（弱信号）
	DefaultFallbackCap = 0.5

	// DefaultLimit 未指定 limit 时返回的推荐数
	DefaultLimit = 10
)

// DefaultAlgorithmWeights 返回混合融合的默认权重（和为 1.0）。
// 算法被禁用时融合层会对启用集重新归一化。
func DefaultAlgorithmWeights() map[string]float64 {
	return map[string]float64{
		"collaborative": 0.4,
		"content":       0.35,
		"sequential":    0.25,
	}
}
