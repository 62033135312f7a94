package algo

import (
	"context"
	"sort"

	"github.com/rushteam/shoprec/core"
)

// stubCatalog 是测试用的内存商品目录。
type stubCatalog struct {
	products map[string]*core.Product
}

func newStubCatalog(products ...*core.Product) *stubCatalog {
	c := &stubCatalog{products: make(map[string]*core.Product, len(products))}
	for _, p := range products {
		c.products[p.ID] = p
	}
	return c
}

func (c *stubCatalog) GetProduct(_ context.Context, productID string) (*core.Product, error) {
	p, ok := c.products[productID]
	if !ok {
		return nil, core.ErrProductNotFound
	}
	return p, nil
}

func (c *stubCatalog) AllProducts(_ context.Context) ([]*core.Product, error) {
	ids := make([]string, 0, len(c.products))
	for id := range c.products {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*core.Product, 0, len(ids))
	for _, id := range ids {
		out = append(out, c.products[id])
	}
	return out, nil
}

func (c *stubCatalog) TopPopular(_ context.Context, n int) ([]string, error) {
	type entry struct {
		id  string
		pop float64
	}
	entries := make([]entry, 0, len(c.products))
	for id, p := range c.products {
		entries = append(entries, entry{id: id, pop: p.Popularity})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].pop != entries[j].pop {
			return entries[i].pop > entries[j].pop
		}
		return entries[i].id < entries[j].id
	})
	if n > 0 && len(entries) > n {
		entries = entries[:n]
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.id)
	}
	return out, nil
}

func (c *stubCatalog) IncrPopularity(_ context.Context, productID string, delta float64) error {
	if p, ok := c.products[productID]; ok {
		p.Popularity += delta
	}
	return nil
}

var _ core.Catalog = (*stubCatalog)(nil)

func itemIDs(items []*core.Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.ID)
	}
	return out
}

func containsID(items []*core.Item, id string) bool {
	for _, it := range items {
		if it.ID == id {
			return true
		}
	}
	return false
}
