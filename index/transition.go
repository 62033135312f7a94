package index

import (
	"sync"

	"github.com/rushteam/shoprec/core"
)

// TransitionTable 是从有序交互历史挖掘的经验转移表：
// {anchor 商品 → {下一商品 → support 计数}}。
//
// 挖掘规则：每用户维护一个近期交互滑动窗口（默认最近 5 次），
// 新事件到来时记录 (窗口尾商品 → 新商品) 这一连续对。
//
// 不变量：support 计数单调不减，只有显式 Reset 能清零。
// 每事件更新成本 O(1)，从不全量重建。
type TransitionTable struct {
	// Window 每用户滑动窗口长度；零值使用 core.DefaultTransitionWindow
	Window int

	mu      sync.RWMutex
	counts  map[string]map[string]float64 // anchor -> next -> support
	totals  map[string]float64            // anchor -> 出边 support 总和
	recents map[string][]string           // user -> 近期商品窗口（旧在前）
}

func NewTransitionTable(window int) *TransitionTable {
	return &TransitionTable{
		Window:  window,
		counts:  make(map[string]map[string]float64),
		totals:  make(map[string]float64),
		recents: make(map[string][]string),
	}
}

func (t *TransitionTable) window() int {
	if t.Window > 0 {
		return t.Window
	}
	return core.DefaultTransitionWindow
}

// Record 记录一次交互事件，更新该用户的窗口并累积连续对计数。
func (t *TransitionTable) Record(userID, productID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	win := t.recents[userID]
	if n := len(win); n > 0 {
		prev := win[n-1]
		if prev != productID { // 自环不计
			if t.counts[prev] == nil {
				t.counts[prev] = make(map[string]float64)
			}
			t.counts[prev][productID]++
			t.totals[prev]++
		}
	}

	win = append(win, productID)
	if max := t.window(); len(win) > max {
		win = win[len(win)-max:]
	}
	t.recents[userID] = win
}

// Outgoing 返回 anchor 的出边快照及出边总计数。
// anchor 无记录时返回 (nil, 0)：贡献为零，不捏造分数。
func (t *TransitionTable) Outgoing(anchor string) (map[string]float64, float64) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	edges := t.counts[anchor]
	if len(edges) == 0 {
		return nil, 0
	}
	out := make(map[string]float64, len(edges))
	for next, support := range edges {
		out[next] = support
	}
	return out, t.totals[anchor]
}

// Len 返回已有出边的 anchor 数。
func (t *TransitionTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.counts)
}

// Reset 清空转移表与所有用户窗口（管理动作 reset 触发）。
func (t *TransitionTable) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts = make(map[string]map[string]float64)
	t.totals = make(map[string]float64)
	t.recents = make(map[string][]string)
}
