package agent

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rushteam/shoprec/algo"
	"github.com/rushteam/shoprec/core"
)

// 管理动作常量。UpdateAlgorithm 只接受这些动作。
const (
	ActionUpdate  = "update"  // 触发数据刷新（特征回灌等），并记录刷新时间
	ActionReset   = "reset"   // 清零统计计数
	ActionDisable = "disable" // 禁用算法：hybrid 融合时贡献空结果，权重摊给其余算法
	ActionEnable  = "enable"  // 重新启用算法
)

// algorithmStats 是单算法的运行统计。计数器用原子操作，
// 置信度均值需要 sum/count 两个量同时更新，用小锁保护。
type algorithmStats struct {
	invocations atomic.Int64
	successes   atomic.Int64
	timeouts    atomic.Int64
	failures    atomic.Int64
	disabled    atomic.Bool

	mu          sync.Mutex
	confSum     float64
	confCount   int64
	ratingSum   float64
	ratingCount int64
	lastReset   time.Time
	lastUpdate  time.Time
}

// StatsView 是单算法统计的只读快照。
type StatsView struct {
	Algorithm     string    `json:"algorithm"`
	Invocations   int64     `json:"invocations"`
	Successes     int64     `json:"successes"`
	Timeouts      int64     `json:"timeouts"`
	Failures      int64     `json:"failures"`
	AvgConfidence float64   `json:"avg_confidence"`
	AvgRating     float64   `json:"avg_rating"`
	Enabled       bool      `json:"enabled"`
	LastReset     time.Time `json:"last_reset"`
	LastUpdate    time.Time `json:"last_update"`
}

// Stats 是算法运行统计与启停状态的注册表。名字集合固定为三个打分算法。
type Stats struct {
	byName map[string]*algorithmStats
}

func NewStats() *Stats {
	now := time.Now()
	s := &Stats{byName: make(map[string]*algorithmStats)}
	for _, name := range []string{algo.NameCollaborative, algo.NameContent, algo.NameSequential} {
		s.byName[name] = &algorithmStats{lastReset: now, lastUpdate: now}
	}
	return s
}

func (s *Stats) get(name string) *algorithmStats {
	if s == nil {
		return nil
	}
	return s.byName[name]
}

// Enabled 检查算法是否处于启用状态。未注册的名字视为禁用。
func (s *Stats) Enabled(name string) bool {
	st := s.get(name)
	if st == nil {
		return false
	}
	return !st.disabled.Load()
}

// ObserveRun 记录一次算法执行（fan-out 的 OnResult 回调）。
func (s *Stats) ObserveRun(res algo.SourceResult) {
	st := s.get(res.Algorithm)
	if st == nil {
		return
	}
	st.invocations.Add(1)
	switch {
	case res.TimedOut:
		st.timeouts.Add(1)
	case res.Err != nil:
		st.failures.Add(1)
	case len(res.Items) > 0:
		// 空结果不算成功：success rate 统计的是产出率
		st.successes.Add(1)
	}
}

// ObserveConfidence 累积一条最终推荐的置信度到其主导算法的均值。
func (s *Stats) ObserveConfidence(name string, conf float64) {
	st := s.get(name)
	if st == nil {
		return
	}
	st.mu.Lock()
	st.confSum += conf
	st.confCount++
	st.mu.Unlock()
}

// ObserveOutcome 累积一条推荐效果反馈（点击/转化折算的评分）到出具算法的均值。
func (s *Stats) ObserveOutcome(name string, rating float64) {
	st := s.get(name)
	if st == nil {
		return
	}
	st.mu.Lock()
	st.ratingSum += rating
	st.ratingCount++
	st.mu.Unlock()
}

// Snapshot 返回全部算法的统计快照，按算法名升序。
func (s *Stats) Snapshot() []StatsView {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.byName))
	for name := range s.byName {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]StatsView, 0, len(names))
	for _, name := range names {
		st := s.byName[name]
		st.mu.Lock()
		avgConf := 0.0
		if st.confCount > 0 {
			avgConf = st.confSum / float64(st.confCount)
		}
		avgRating := 0.0
		if st.ratingCount > 0 {
			avgRating = st.ratingSum / float64(st.ratingCount)
		}
		view := StatsView{
			Algorithm:     name,
			Invocations:   st.invocations.Load(),
			Successes:     st.successes.Load(),
			Timeouts:      st.timeouts.Load(),
			Failures:      st.failures.Load(),
			AvgConfidence: avgConf,
			AvgRating:     avgRating,
			Enabled:       !st.disabled.Load(),
			LastReset:     st.lastReset,
			LastUpdate:    st.lastUpdate,
		}
		st.mu.Unlock()
		out = append(out, view)
	}
	return out
}

// reset 清零统计并记录重置时间。
func (st *algorithmStats) reset() {
	st.invocations.Store(0)
	st.successes.Store(0)
	st.timeouts.Store(0)
	st.failures.Store(0)
	st.mu.Lock()
	st.confSum, st.confCount = 0, 0
	st.ratingSum, st.ratingCount = 0, 0
	st.lastReset = time.Now()
	st.mu.Unlock()
}

// apply 执行一个管理动作。动作非法返回 INVALID_CHOICE。
func (st *algorithmStats) apply(action string) error {
	switch action {
	case ActionReset:
		st.reset()
	case ActionDisable:
		st.disabled.Store(true)
	case ActionEnable:
		st.disabled.Store(false)
	case ActionUpdate:
		st.mu.Lock()
		st.lastUpdate = time.Now()
		st.mu.Unlock()
	default:
		return core.NewDomainError(core.ModuleAgent, core.ErrorCodeInvalidChoice, "stats: unknown action "+action)
	}
	return nil
}
