package store

import (
	"context"
	"encoding/json"

	"github.com/rushteam/shoprec/core"
)

// CatalogAdapter 是基于 core.KeyValueStore 的商品目录适配器，实现 core.Catalog。
//
// key 布局：
//   商品文档：  {KeyPrefix}:product:{productID}  （JSON）
//   商品索引：  {KeyPrefix}:products             （JSON ID 数组）
//   热度排行：  {KeyPrefix}:popularity           （zset，score 为热度）
type CatalogAdapter struct {
	store core.KeyValueStore

	// KeyPrefix 是存储 key 的前缀，默认 "catalog"
	KeyPrefix string
}

// NewCatalogAdapter 创建一个基于 KeyValueStore 的目录适配器。
func NewCatalogAdapter(s core.KeyValueStore, keyPrefix string) *CatalogAdapter {
	if keyPrefix == "" {
		keyPrefix = "catalog"
	}
	return &CatalogAdapter{
		store:     s,
		KeyPrefix: keyPrefix,
	}
}

func (a *CatalogAdapter) productKey(id string) string { return a.KeyPrefix + ":product:" + id }
func (a *CatalogAdapter) indexKey() string            { return a.KeyPrefix + ":products" }
func (a *CatalogAdapter) popularityKey() string       { return a.KeyPrefix + ":popularity" }

func (a *CatalogAdapter) GetProduct(ctx context.Context, productID string) (*core.Product, error) {
	data, err := a.store.Get(ctx, a.productKey(productID))
	if err != nil {
		if core.IsStoreNotFound(err) {
			return nil, core.ErrProductNotFound
		}
		return nil, err
	}

	var p core.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}

	// 热度以 zset 为准（交互事件增量写入 zset，不回写商品文档）
	if score, err := a.store.ZScore(ctx, a.popularityKey(), productID); err == nil {
		p.Popularity = score
	}
	return &p, nil
}

func (a *CatalogAdapter) AllProducts(ctx context.Context) ([]*core.Product, error) {
	data, err := a.store.Get(ctx, a.indexKey())
	if err != nil {
		if core.IsStoreNotFound(err) {
			return []*core.Product{}, nil
		}
		return nil, err
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, a.productKey(id))
	}
	docs, err := a.store.BatchGet(ctx, keys)
	if err != nil {
		return nil, err
	}

	// 按索引顺序返回，保证遍历确定性
	out := make([]*core.Product, 0, len(ids))
	for _, id := range ids {
		doc, ok := docs[a.productKey(id)]
		if !ok {
			continue
		}
		var p core.Product
		if err := json.Unmarshal(doc, &p); err != nil {
			continue
		}
		if score, err := a.store.ZScore(ctx, a.popularityKey(), id); err == nil {
			p.Popularity = score
		}
		out = append(out, &p)
	}
	return out, nil
}

func (a *CatalogAdapter) TopPopular(ctx context.Context, n int) ([]string, error) {
	if n <= 0 {
		n = core.DefaultLimit
	}
	return a.store.ZRange(ctx, a.popularityKey(), 0, int64(n-1))
}

func (a *CatalogAdapter) IncrPopularity(ctx context.Context, productID string, delta float64) error {
	_, err := a.store.ZIncrBy(ctx, a.popularityKey(), delta, productID)
	return err
}

// PutProduct 写入商品文档并维护索引与热度排行（用于数据导入与测试准备）。
func (a *CatalogAdapter) PutProduct(ctx context.Context, p *core.Product) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	if err := a.store.Set(ctx, a.productKey(p.ID), doc); err != nil {
		return err
	}

	// 维护索引
	var ids []string
	if data, err := a.store.Get(ctx, a.indexKey()); err == nil {
		_ = json.Unmarshal(data, &ids)
	}
	exists := false
	for _, id := range ids {
		if id == p.ID {
			exists = true
			break
		}
	}
	if !exists {
		ids = append(ids, p.ID)
		data, err := json.Marshal(ids)
		if err != nil {
			return err
		}
		if err := a.store.Set(ctx, a.indexKey(), data); err != nil {
			return err
		}
	}

	return a.store.ZAdd(ctx, a.popularityKey(), p.Popularity, p.ID)
}

var _ core.Catalog = (*CatalogAdapter)(nil)
