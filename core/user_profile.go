package core

import (
	"context"
	"fmt"
	"time"
)

// InteractionType 是用户行为类型。权重语义：purchase > cart_add > view，
// rate 的权重由评分本身决定。
type InteractionType string

const (
	InteractionView    InteractionType = "view"
	InteractionCartAdd InteractionType = "cart_add"
	InteractionPurchase InteractionType = "purchase"
	InteractionRate    InteractionType = "rate"
)

// BaseWeight 返回行为类型的基础权重（衰减前），范围 (0, 1]。
// rate 按评分线性映射：1 星 0.2，5 星 1.0。
func (t InteractionType) BaseWeight(rating int) float64 {
	switch t {
	case InteractionPurchase:
		return 1.0
	case InteractionCartAdd:
		return 0.6
	case InteractionView:
		return 0.2
	case InteractionRate:
		if rating < 1 {
			rating = 1
		}
		if rating > 5 {
			rating = 5
		}
		return float64(rating) / 5.0
	default:
		return 0
	}
}

// Valid 检查行为类型是否属于已知集合。
func (t InteractionType) Valid() bool {
	switch t {
	case InteractionView, InteractionCartAdd, InteractionPurchase, InteractionRate:
		return true
	}
	return false
}

// Interaction 是用户交互历史中的一条记录（有序）。
type Interaction struct {
	ProductID string          `json:"product_id"`
	Type      InteractionType `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Rating    int             `json:"rating,omitempty"` // 仅 rate 类型使用，1-5
}

// EventKey 返回事件身份标识，用于幂等去重：
// 相同 (product, type, timestamp) 的事件只计一次权重。
func (i Interaction) EventKey() string {
	return fmt.Sprintf("%s|%s|%d", i.ProductID, i.Type, i.Timestamp.Unix())
}

// FeedbackEntry 是一条显式反馈记录（评分/喜欢/不喜欢/一般性意见）。
// ProductID 可为空：一般性反馈不针对具体商品。
type FeedbackEntry struct {
	Kind      string    `json:"kind"`
	ProductID string    `json:"product_id,omitempty"`
	Rating    int       `json:"rating,omitempty"`
	Comment   string    `json:"comment,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UserProfile 是用户画像：有序交互历史 + 偏好提示。
//
// 生命周期：首次交互时创建，由 Feedback Processor 写入，所有算法只读。
//
//	维度              作用
//	交互历史          矩阵/转移表的原始素材，序列算法的锚点
//	偏好类目/价格区间  规则过滤（CEL 表达式）
//	偏好算法          请求未显式指定时的默认选择
type UserProfile struct {
	UserID string

	// Interactions 按时间升序排列；追加写，引擎从不删除。
	Interactions []Interaction

	// Feedback 是显式反馈日志（评分/意见），与交互历史分开保存。
	Feedback []FeedbackEntry

	// 偏好提示（可为空）
	PreferredCategories []string
	PriceMin            float64
	PriceMax            float64 // 0 表示不限
	PreferredAlgorithm  string

	// 元数据
	UpdateTime time.Time
}

// NewUserProfile 创建一个新的用户画像。
func NewUserProfile(userID string) *UserProfile {
	return &UserProfile{
		UserID:       userID,
		Interactions: make([]Interaction, 0),
		UpdateTime:   time.Now(),
	}
}

// AddInteraction 追加交互记录，按事件身份去重（幂等）。
// 返回 false 表示重复事件，未追加。
func (p *UserProfile) AddInteraction(in Interaction) bool {
	key := in.EventKey()
	for _, exist := range p.Interactions {
		if exist.EventKey() == key {
			return false
		}
	}
	p.Interactions = append(p.Interactions, in)
	p.UpdateTime = time.Now()
	return true
}

// RecentProducts 返回最近 n 次交互的商品 ID，最新在前，按商品去重。
func (p *UserProfile) RecentProducts(n int) []string {
	if n <= 0 {
		return nil
	}
	seen := make(map[string]bool, n)
	out := make([]string, 0, n)
	for i := len(p.Interactions) - 1; i >= 0 && len(out) < n; i-- {
		id := p.Interactions[i].ProductID
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// InteractedSet 返回用户交互过的全部商品 ID 集合。
func (p *UserProfile) InteractedSet() map[string]bool {
	set := make(map[string]bool, len(p.Interactions))
	for _, in := range p.Interactions {
		set[in.ProductID] = true
	}
	return set
}

// HasHistory 检查用户是否有任何交互。
func (p *UserProfile) HasHistory() bool {
	return len(p.Interactions) > 0
}

// ProfileStore 是用户画像的读写接口。
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*UserProfile, error)
	PutProfile(ctx context.Context, p *UserProfile) error
}

// ErrUserNotFound 表示用户不存在
var ErrUserNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "profile: user not found")
