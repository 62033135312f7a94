package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/shoprec/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量和函数
func initCELEnv() (*cel.Env, error) {
	env, err := cel.NewEnv(
		// 定义变量类型
		cel.Variable("item", cel.DynType),
		cel.Variable("label", cel.DynType),
		cel.Variable("product", cel.DynType),
		cel.Variable("rctx", cel.DynType),
	)
	return env, err
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	var err error
	celEnvOnce.Do(func() {
		celEnv, err = initCELEnv()
	})
	return celEnv, err
}

// Eval 是候选资格规则解释器，使用 CEL (Common Expression Language) 实现。
// 用户画像里的偏好提示（偏好类目、价格区间）会被翻译成 CEL 表达式做过滤。
//
// 表达式语法（CEL 标准语法）：
//   - 数值：product.price <= 500.0 / item.score > 0.7
//   - 逻辑：product.category == "electronics" && product.price >= 10.0
//   - 包含：product.category in ["books", "music"]
//   - 标签：label.algo == "content"
type Eval struct {
	item    *core.Item
	product *core.Product
	rctx    *core.RecommendContext
	env     *cel.Env
}

// NewEval 创建一个新的规则解释器。product 可为 nil（此时 product.* 不可用）。
func NewEval(item *core.Item, product *core.Product, rctx *core.RecommendContext) *Eval {
	env, _ := getCELEnv()
	return &Eval{
		item:    item,
		product: product,
		rctx:    rctx,
		env:     env,
	}
}

// Evaluate 解析并执行规则表达式，返回布尔结果。
//
// 注意：has(label.key) 可以用 label.key != null 替代
func (e *Eval) Evaluate(expr string) (bool, error) {
	if expr == "" {
		return true, nil
	}

	// 编译表达式
	ast, issues := e.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return false, fmt.Errorf("compile error: %v", issues.Err())
	}

	// 创建程序
	prg, err := e.env.Program(ast)
	if err != nil {
		return false, fmt.Errorf("program error: %v", err)
	}

	// 执行表达式
	out, _, err := prg.Eval(e.buildInput())
	if err != nil {
		// 对于不存在的 key，CEL 会返回错误
		// 应该使用 label.key != null 来检查存在性，而不是直接访问
		return false, fmt.Errorf("eval error: %v", err)
	}

	// 转换为布尔值
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}

	return result, nil
}

// buildInput 构建 CEL 表达式的输入数据
func (e *Eval) buildInput() map[string]interface{} {
	labels := make(map[string]interface{})
	labelAccessor := make(map[string]interface{})
	if e.item != nil {
		for k, v := range e.item.Labels {
			labels[k] = map[string]interface{}{
				"value":  v.Value,
				"source": v.Source,
			}
			// label.algo 直接访问 value
			labelAccessor[k] = v.Value
		}
	}

	item := map[string]interface{}{}
	if e.item != nil {
		item = map[string]interface{}{
			"id":       e.item.ID,
			"score":    e.item.Score,
			"features": e.item.Features,
			"meta":     e.item.Meta,
			"labels":   labels,
		}
	}

	product := map[string]interface{}{}
	if e.product != nil {
		product = map[string]interface{}{
			"id":         e.product.ID,
			"name":       e.product.Name,
			"category":   e.product.Category,
			"price":      e.product.Price,
			"popularity": e.product.Popularity,
			"rating":     e.product.Rating,
		}
	}

	rctx := map[string]interface{}{}
	if e.rctx != nil {
		rctx = map[string]interface{}{
			"user_id":    e.rctx.UserID,
			"scene":      e.rctx.Scene,
			"cart_items": e.rctx.CartItems,
			"params":     e.rctx.Params,
		}
	}

	return map[string]interface{}{
		"item":    item,
		"label":   labelAccessor,
		"product": product,
		"rctx":    rctx,
	}
}
