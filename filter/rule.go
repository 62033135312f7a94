package filter

import (
	"context"
	"fmt"
	"strings"

	"github.com/rushteam/shoprec/core"
	"github.com/rushteam/shoprec/pkg/dsl"
)

// RuleFilter 是 CEL 表达式驱动的资格过滤器。
// 表达式返回 true 表示候选合格（保留），false 表示过滤。
//
// 典型用法是把用户画像里的偏好提示翻译成规则：
//
//	f := filter.NewRuleFilter(`product.price <= 500.0 && product.category in ["electronics"]`)
type RuleFilter struct {
	// Expr 资格表达式；空表达式表示全部合格
	Expr string

	// Lookup 按 ID 解析商品，供 product.* 变量使用；nil 时 product.* 不可用
	Lookup func(ctx context.Context, productID string) (*core.Product, error)
}

// NewRuleFilter 创建一个表达式过滤器。
func NewRuleFilter(expr string) *RuleFilter {
	return &RuleFilter{Expr: expr}
}

func (f *RuleFilter) Name() string {
	return "filter.rule"
}

func (f *RuleFilter) ShouldFilter(
	ctx context.Context,
	rctx *core.RecommendContext,
	item *core.Item,
) (bool, error) {
	if f.Expr == "" || item == nil {
		return false, nil
	}

	var product *core.Product
	if f.Lookup != nil {
		p, err := f.Lookup(ctx, item.ID)
		if err == nil {
			product = p
		}
		// 商品解析失败时不做规则判断，保留候选
		if product == nil {
			return false, nil
		}
	}

	eligible, err := dsl.NewEval(item, product, rctx).Evaluate(f.Expr)
	if err != nil {
		return false, err
	}
	return !eligible, nil
}

// PreferenceRule 把用户画像的偏好提示拼成资格表达式。
// 没有任何提示时返回空串（不过滤）。
func PreferenceRule(p *core.UserProfile) string {
	if p == nil {
		return ""
	}
	var clauses []string
	if len(p.PreferredCategories) > 0 {
		quoted := make([]string, 0, len(p.PreferredCategories))
		for _, c := range p.PreferredCategories {
			quoted = append(quoted, fmt.Sprintf("%q", c))
		}
		clauses = append(clauses, fmt.Sprintf("product.category in [%s]", strings.Join(quoted, ", ")))
	}
	if p.PriceMin > 0 {
		clauses = append(clauses, fmt.Sprintf("product.price >= %v", p.PriceMin))
	}
	if p.PriceMax > 0 {
		clauses = append(clauses, fmt.Sprintf("product.price <= %v", p.PriceMax))
	}
	return strings.Join(clauses, " && ")
}
