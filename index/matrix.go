// Package index 维护三个算法共享的统计结构：
// 用户-商品交互矩阵、商品转移表、商品特征索引。
// 三者都支持增量更新，热路径上从不全量重建。
package index

import (
	"hash/fnv"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rushteam/shoprec/core"
)

// matrixShards 交互矩阵的锁分片数。按用户分片：同一用户的写入串行，
// 不同用户的读写互不阻塞，避免全局锁串行化无关请求。
const matrixShards = 64

// InteractionMatrix 是稀疏的 {user → {product → weight}} 交互矩阵。
//
// 权重 = 行为类型基础权重 × 指数衰减因子，归一化后落在 (0, 1]：
//   - purchase > cart_add > view，rate 按评分映射
//   - 衰减半衰期可配置（默认 30 天），读取时按事件时间现算
//
// 并发模型：分片读写锁（按用户），读取返回快照副本，写入幂等（按事件身份去重）。
type InteractionMatrix struct {
	// HalfLife 指数衰减半衰期；零值使用 core.DefaultDecayHalfLife
	HalfLife time.Duration

	shards [matrixShards]matrixShard
}

type matrixShard struct {
	mu   sync.RWMutex
	rows map[string]map[string]*matrixCell // user -> product -> cell
	seen map[string]map[string]bool        // user -> event key -> recorded
}

// matrixCell 保存衰减前的累积权重与最近事件时间。
// 衰减按读取时刻现算，避免后台重算任务。
type matrixCell struct {
	weight float64 // 累积基础权重，上限 1.0
	last   time.Time
}

func NewInteractionMatrix(halfLife time.Duration) *InteractionMatrix {
	m := &InteractionMatrix{HalfLife: halfLife}
	for i := range m.shards {
		m.shards[i].rows = make(map[string]map[string]*matrixCell)
		m.shards[i].seen = make(map[string]map[string]bool)
	}
	return m
}

func (m *InteractionMatrix) shard(userID string) *matrixShard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return &m.shards[h.Sum32()%matrixShards]
}

func (m *InteractionMatrix) halfLife() time.Duration {
	if m.HalfLife > 0 {
		return m.HalfLife
	}
	return core.DefaultDecayHalfLife
}

// decayFactor 返回 0.5^(age/halfLife)；未来时间戳按 1.0 处理。
func (m *InteractionMatrix) decayFactor(eventTime, now time.Time) float64 {
	age := now.Sub(eventTime)
	if age <= 0 {
		return 1.0
	}
	return math.Exp2(-float64(age) / float64(m.halfLife()))
}

// Record 记录一次交互，返回是否实际计入。
// 相同事件身份 (product, type, timestamp) 重复提交不重复计权（幂等）。
func (m *InteractionMatrix) Record(userID string, in core.Interaction) bool {
	s := m.shard(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	key := in.EventKey()
	if s.seen[userID] == nil {
		s.seen[userID] = make(map[string]bool)
	}
	if s.seen[userID][key] {
		return false
	}
	s.seen[userID][key] = true

	if s.rows[userID] == nil {
		s.rows[userID] = make(map[string]*matrixCell)
	}
	cell := s.rows[userID][in.ProductID]
	if cell == nil {
		cell = &matrixCell{}
		s.rows[userID][in.ProductID] = cell
	}

	cell.weight += in.Type.BaseWeight(in.Rating)
	if cell.weight > 1.0 {
		cell.weight = 1.0 // 归一化上限，保证权重 ∈ (0, 1]
	}
	if in.Timestamp.After(cell.last) {
		cell.last = in.Timestamp
	}
	return true
}

// Row 返回用户行的衰减后快照，商品权重 ∈ (0, 1]。
// 用户不存在时返回空 map（合法的数据不足，不是错误）。
func (m *InteractionMatrix) Row(userID string, now time.Time) map[string]float64 {
	s := m.shard(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.rows[userID]
	out := make(map[string]float64, len(row))
	for productID, cell := range row {
		w := cell.weight * m.decayFactor(cell.last, now)
		if w > 0 {
			out[productID] = w
		}
	}
	return out
}

// Snapshot 返回全矩阵的衰减后快照。协同过滤按快照遍历其他用户的行，
// 读取期间的并发写入只影响后续请求（最终一致）。
func (m *InteractionMatrix) Snapshot(now time.Time) map[string]map[string]float64 {
	out := make(map[string]map[string]float64)
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		for userID, row := range s.rows {
			dst := make(map[string]float64, len(row))
			for productID, cell := range row {
				w := cell.weight * m.decayFactor(cell.last, now)
				if w > 0 {
					dst[productID] = w
				}
			}
			out[userID] = dst
		}
		s.mu.RUnlock()
	}
	return out
}

// Users 返回已有交互的用户 ID（排序，保证遍历确定性）。
func (m *InteractionMatrix) Users() []string {
	var users []string
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		for userID := range s.rows {
			users = append(users, userID)
		}
		s.mu.RUnlock()
	}
	sort.Strings(users)
	return users
}

// UserCount 返回矩阵中的用户数。
func (m *InteractionMatrix) UserCount() int {
	n := 0
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		n += len(s.rows)
		s.mu.RUnlock()
	}
	return n
}

// Reset 清空矩阵（管理动作 reset 触发）。
func (m *InteractionMatrix) Reset() {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.Lock()
		s.rows = make(map[string]map[string]*matrixCell)
		s.seen = make(map[string]map[string]bool)
		s.mu.Unlock()
	}
}
