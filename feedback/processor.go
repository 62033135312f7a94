// Package feedback 实现写路径：交互事件与显式反馈的摄入。
// 读路径（agent/algo）只消费这里维护的画像、矩阵、转移表与热度。
package feedback

import (
	"context"
	"time"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/index"
)

// 显式反馈类型。
const (
	FeedbackRating  = "rating"  // 1-5 星评分
	FeedbackLike    = "like"    // 等价于 5 星
	FeedbackDislike = "dislike" // 等价于 1 星
	FeedbackGeneral = "general" // 一般性意见，不针对具体商品，只入画像日志
)

// 推荐效果反馈类型：用户对某条推荐的后续行为，归因到出具该推荐的算法。
const (
	OutcomeClick      = "click"      // 点击了推荐
	OutcomeConversion = "conversion" // 推荐转化为购买
)

// CacheInvalidator 在用户数据变更后使其推荐缓存失效。agent.Agent 实现此接口。
type CacheInvalidator interface {
	InvalidateUser(ctx context.Context, userID string)
}

// OutcomeObserver 接收按算法归因的推荐效果评分。agent.Stats 实现此接口。
type OutcomeObserver interface {
	ObserveOutcome(algorithm string, rating float64)
}

// Processor 把交互事件写入画像与各索引结构。
//
// 写入顺序：画像（幂等判重在此）→ 矩阵 → 转移表 → 热度 → 缓存失效。
// 重复事件在画像判重后整体短路，保证各结构见到同一事件集。
type Processor struct {
	Profiles    core.ProfileStore
	Catalog     core.Catalog
	Matrix      *index.InteractionMatrix
	Transitions *index.TransitionTable

	// Invalidator 可选；nil 时跳过缓存失效
	Invalidator CacheInvalidator

	// Outcomes 可选；nil 时推荐效果反馈只进画像不做算法归因
	Outcomes OutcomeObserver
}

// RecordInteraction 记录一次用户交互。
//
// 幂等：相同 (user, product, type, timestamp) 的事件只生效一次，
// 重复提交返回 nil 且不产生任何副作用。
//
// 首次交互会自动创建用户画像。
func (p *Processor) RecordInteraction(
	ctx context.Context,
	userID, productID string,
	typ core.InteractionType,
	rating int,
	at time.Time,
) error {
	if userID == "" || productID == "" {
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput, "feedback: user id and product id are required")
	}
	if !typ.Valid() {
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput, "feedback: unknown interaction type "+string(typ))
	}
	if typ == core.InteractionRate && (rating < 1 || rating > 5) {
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput, "feedback: rating must be between 1 and 5")
	}
	if at.IsZero() {
		at = time.Now()
	}

	// 商品必须存在：防止脏事件污染矩阵与热度榜
	if p.Catalog != nil {
		if _, err := p.Catalog.GetProduct(ctx, productID); err != nil {
			return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeNotFound, "feedback: unknown product "+productID)
		}
	}

	profile, err := p.Profiles.GetProfile(ctx, userID)
	if err != nil {
		if !core.IsNotFound(err) {
			return err
		}
		profile = core.NewUserProfile(userID)
	}

	in := core.Interaction{
		ProductID: productID,
		Type:      typ,
		Timestamp: at,
		Rating:    rating,
	}
	if !profile.AddInteraction(in) {
		// 重复事件：幂等 no-op
		return nil
	}
	profile.UpdateTime = time.Now()
	if err := p.Profiles.PutProfile(ctx, profile); err != nil {
		return err
	}

	if p.Matrix != nil {
		p.Matrix.Record(userID, in)
	}
	if p.Transitions != nil {
		p.Transitions.Record(userID, productID)
	}
	if p.Catalog != nil {
		_ = p.Catalog.IncrPopularity(ctx, productID, typ.BaseWeight(rating))
	}
	if p.Invalidator != nil {
		p.Invalidator.InvalidateUser(ctx, userID)
	}
	return nil
}

// RecordFeedback 记录显式反馈（评分/喜欢/不喜欢/一般性意见）。
//
// 商品反馈统一折算成一条 rate 交互进入画像与矩阵，并按偏离中位的幅度
// 微调商品热度（好评加热度，差评降热度）。一般性反馈（kind=general 或
// productID 为空）只追加到画像的反馈日志，不触碰矩阵与热度。
// 所有反馈连同 comment 都会进入画像日志。
func (p *Processor) RecordFeedback(
	ctx context.Context,
	userID, productID, kind string,
	rating int,
	comment string,
) error {
	if userID == "" {
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput, "feedback: user id is required")
	}

	switch kind {
	case FeedbackRating:
		// rating 由调用方给出
	case FeedbackLike:
		rating = 5
	case FeedbackDislike:
		rating = 1
	case FeedbackGeneral:
		// rating 可选：0 表示纯文字意见
		if rating != 0 && (rating < 1 || rating > 5) {
			return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput, "feedback: rating must be between 1 and 5")
		}
		return p.journalFeedback(ctx, userID, core.FeedbackEntry{
			Kind:      kind,
			ProductID: productID,
			Rating:    rating,
			Comment:   comment,
			Timestamp: time.Now(),
		})
	default:
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidChoice, "feedback: unknown feedback kind "+kind)
	}
	if rating < 1 || rating > 5 {
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput, "feedback: rating must be between 1 and 5")
	}
	if productID == "" {
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidInput, "feedback: product id is required for product feedback")
	}

	if err := p.RecordInteraction(ctx, userID, productID, core.InteractionRate, rating, time.Now()); err != nil {
		return err
	}
	if err := p.journalFeedback(ctx, userID, core.FeedbackEntry{
		Kind:      kind,
		ProductID: productID,
		Rating:    rating,
		Comment:   comment,
		Timestamp: time.Now(),
	}); err != nil {
		return err
	}

	// 热度微调：5 星 +1.0，3 星持平，1 星 -1.0
	if p.Catalog != nil {
		delta := (float64(rating) - 3) / 2
		if delta != 0 {
			_ = p.Catalog.IncrPopularity(ctx, productID, delta)
		}
	}
	return nil
}

// journalFeedback 把反馈记录追加到画像的反馈日志。画像不存在时自动创建。
func (p *Processor) journalFeedback(ctx context.Context, userID string, entry core.FeedbackEntry) error {
	profile, err := p.Profiles.GetProfile(ctx, userID)
	if err != nil {
		if !core.IsNotFound(err) {
			return err
		}
		profile = core.NewUserProfile(userID)
	}
	profile.Feedback = append(profile.Feedback, entry)
	profile.UpdateTime = time.Now()
	return p.Profiles.PutProfile(ctx, profile)
}

// RecordOutcome 记录一条推荐的后续效果（点击/转化），归因到出具算法。
//
// 点击折算为 view 交互 + 4 分效果，转化折算为 purchase 交互 + 5 分效果。
// 交互部分复用 RecordInteraction 的幂等与全链路更新；归因部分喂给统计注册表。
func (p *Processor) RecordOutcome(
	ctx context.Context,
	userID, productID, algorithm, kind string,
) error {
	var typ core.InteractionType
	var rating float64
	switch kind {
	case OutcomeClick:
		typ, rating = core.InteractionView, 4
	case OutcomeConversion:
		typ, rating = core.InteractionPurchase, 5
	default:
		return core.NewDomainError(core.ModuleFeedback, core.ErrorCodeInvalidChoice, "feedback: unknown outcome kind "+kind)
	}

	if err := p.RecordInteraction(ctx, userID, productID, typ, 0, time.Now()); err != nil {
		return err
	}
	if p.Outcomes != nil && algorithm != "" {
		p.Outcomes.ObserveOutcome(algorithm, rating)
	}
	return nil
}
