package core

import "context"

// Product 是商品目录中的一条记录。
// 引擎视角下商品近似不可变：只有 Popularity / Rating 会随交互与评分反馈演进。
type Product struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Category    string             `json:"category"`
	Price       float64            `json:"price"`
	Description string             `json:"description,omitempty"`

	// Attributes 是数值属性集（如 weight、screen_size），
	// 与 Category one-hot、归一化 Price 一起构成特征向量。
	Attributes map[string]float64 `json:"attributes,omitempty"`

	// Popularity 是交互计数派生的热度，交互事件递增；用于决胜排序与热门兜底。
	Popularity float64 `json:"popularity"`

	// Rating 是评分反馈维护的质量信号（1-5 的运行均值）。
	Rating float64 `json:"rating,omitempty"`
}

// Catalog 是商品目录的只读访问能力（外部协作方拥有存储，引擎只消费）。
// 热度递增是引擎对目录仅有的写入。
type Catalog interface {
	// GetProduct 按 ID 获取商品；不存在时返回 NOT_FOUND
	GetProduct(ctx context.Context, productID string) (*Product, error)

	// AllProducts 获取全量商品（候选全集）
	AllProducts(ctx context.Context) ([]*Product, error)

	// TopPopular 按热度降序获取前 n 个商品 ID
	TopPopular(ctx context.Context, n int) ([]string, error)

	// IncrPopularity 对商品热度做增量（交互/评分反馈触发）
	IncrPopularity(ctx context.Context, productID string, delta float64) error
}

// ErrProductNotFound 表示商品不存在
var ErrProductNotFound = NewDomainError(ModuleStore, ErrorCodeNotFound, "catalog: product not found")
