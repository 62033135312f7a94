package index

import (
	"sort"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/rushteam/shoprec/core"
)

// FeatureIndex 维护商品特征向量：类目 one-hot + min-max 归一化数值属性（价格 + Attributes）。
//
// 维度布局按名称排序固定，向量按读取时刻的归一化边界现算，
// 因此余弦相似度与商品目录的遍历顺序无关（行序不变性）。
type FeatureIndex struct {
	mu sync.RWMutex

	categories []string                   // 排序后的类目维度
	numerics   []string                   // 排序后的数值维度（含 "price"）
	catIdx     map[string]int             // 类目 -> 维度下标
	numIdx     map[string]int             // 数值名 -> 相对下标
	raw        map[string]*productFeature // productID -> 原始特征
	numMin     map[string]float64
	numMax     map[string]float64
}

type productFeature struct {
	category string
	numerics map[string]float64
}

func NewFeatureIndex() *FeatureIndex {
	return &FeatureIndex{
		catIdx: make(map[string]int),
		numIdx: make(map[string]int),
		raw:    make(map[string]*productFeature),
		numMin: make(map[string]float64),
		numMax: make(map[string]float64),
	}
}

// Build 全量构建索引（启动时一次性调用；之后用 Upsert 增量维护）。
func (f *FeatureIndex) Build(products []*core.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.raw = make(map[string]*productFeature, len(products))
	f.numMin = make(map[string]float64)
	f.numMax = make(map[string]float64)
	catSet := make(map[string]bool)
	numSet := make(map[string]bool)

	for _, p := range products {
		if p == nil {
			continue
		}
		pf := featureOf(p)
		f.raw[p.ID] = pf
		catSet[pf.category] = true
		for name, v := range pf.numerics {
			numSet[name] = true
			f.updateBounds(name, v)
		}
	}

	f.categories = sortedKeys(catSet)
	f.numerics = sortedKeys(numSet)
	f.catIdx = make(map[string]int, len(f.categories))
	for i, c := range f.categories {
		f.catIdx[c] = i
	}
	f.numIdx = make(map[string]int, len(f.numerics))
	for i, n := range f.numerics {
		f.numIdx[n] = i
	}
}

// Upsert 增量写入单个商品。新类目/新数值维度会扩展布局。
func (f *FeatureIndex) Upsert(p *core.Product) {
	if p == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	pf := featureOf(p)
	f.raw[p.ID] = pf

	if _, ok := f.catIdx[pf.category]; !ok {
		f.categories = insertSorted(f.categories, pf.category)
		f.catIdx = make(map[string]int, len(f.categories))
		for i, c := range f.categories {
			f.catIdx[c] = i
		}
	}
	for name, v := range pf.numerics {
		if _, ok := f.numIdx[name]; !ok {
			f.numerics = insertSorted(f.numerics, name)
			f.numIdx = make(map[string]int, len(f.numerics))
			for i, n := range f.numerics {
				f.numIdx[n] = i
			}
		}
		f.updateBounds(name, v)
	}
}

// UpdateNumeric 仅更新商品的某个数值属性（Feast 刷新使用）。
func (f *FeatureIndex) UpdateNumeric(productID, name string, value float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pf, ok := f.raw[productID]
	if !ok {
		return
	}
	pf.numerics[name] = value
	if _, ok := f.numIdx[name]; !ok {
		f.numerics = insertSorted(f.numerics, name)
		f.numIdx = make(map[string]int, len(f.numerics))
		for i, n := range f.numerics {
			f.numIdx[n] = i
		}
	}
	f.updateBounds(name, value)
}

// Vector 返回商品的特征向量；商品不在索引时返回 (nil, false)。
func (f *FeatureIndex) Vector(productID string) (*mat.VecDense, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	pf, ok := f.raw[productID]
	if !ok {
		return nil, false
	}
	return f.vectorLocked(pf), true
}

// vectorLocked 在持有读锁的前提下计算向量。
func (f *FeatureIndex) vectorLocked(pf *productFeature) *mat.VecDense {
	dim := len(f.categories) + len(f.numerics)
	v := mat.NewVecDense(dim, nil)

	if i, ok := f.catIdx[pf.category]; ok {
		v.SetVec(i, 1.0)
	}
	base := len(f.categories)
	for name, raw := range pf.numerics {
		i, ok := f.numIdx[name]
		if !ok {
			continue
		}
		v.SetVec(base+i, f.normalizeLocked(name, raw))
	}
	return v
}

// normalizeLocked 对数值做 min-max 归一化；边界退化（min==max）时取 1.0。
func (f *FeatureIndex) normalizeLocked(name string, v float64) float64 {
	lo, hi := f.numMin[name], f.numMax[name]
	if hi <= lo {
		return 1.0
	}
	return (v - lo) / (hi - lo)
}

// TasteVector 按权重对一组商品向量求加权平均（内容算法的“口味向量”）。
// 没有任何已知商品时返回 nil。
func (f *FeatureIndex) TasteVector(weights map[string]float64) *mat.VecDense {
	f.mu.RLock()
	defer f.mu.RUnlock()

	dim := len(f.categories) + len(f.numerics)
	if dim == 0 {
		return nil
	}
	acc := mat.NewVecDense(dim, nil)
	total := 0.0
	for productID, w := range weights {
		if w <= 0 {
			continue
		}
		pf, ok := f.raw[productID]
		if !ok {
			continue
		}
		acc.AddScaledVec(acc, w, f.vectorLocked(pf))
		total += w
	}
	if total == 0 {
		return nil
	}
	acc.ScaleVec(1.0/total, acc)
	return acc
}

// Len 返回索引中的商品数。
func (f *FeatureIndex) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.raw)
}

// Cosine 计算两个向量的余弦相似度；零向量相似度为 0。
func Cosine(a, b *mat.VecDense) float64 {
	if a == nil || b == nil || a.Len() != b.Len() {
		return 0
	}
	na := mat.Norm(a, 2)
	nb := mat.Norm(b, 2)
	if na == 0 || nb == 0 {
		return 0
	}
	return mat.Dot(a, b) / (na * nb)
}

func featureOf(p *core.Product) *productFeature {
	nums := make(map[string]float64, len(p.Attributes)+1)
	nums["price"] = p.Price
	for name, v := range p.Attributes {
		nums[name] = v
	}
	return &productFeature{category: p.Category, numerics: nums}
}

func (f *FeatureIndex) updateBounds(name string, v float64) {
	if _, ok := f.numMin[name]; !ok {
		f.numMin[name] = v
		f.numMax[name] = v
		return
	}
	if v < f.numMin[name] {
		f.numMin[name] = v
	}
	if v > f.numMax[name] {
		f.numMax[name] = v
	}
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func insertSorted(s []string, v string) []string {
	i := sort.SearchStrings(s, v)
	if i < len(s) && s[i] == v {
		return s
	}
	s = append(s, "")
	copy(s[i+1:], s[i:])
	s[i] = v
	return s
}
