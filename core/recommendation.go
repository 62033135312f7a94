package core

// Recommendation 是对外可见的推荐单元：商品、来源算法、置信度、解释文案。
// 同一响应内按商品 ID 唯一。
type Recommendation struct {
	Product     *Product `json:"product"`
	Algorithm   string   `json:"algorithm"`
	Confidence  float64  `json:"confidence_score"` // [0,1]
	Explanation string   `json:"explanation"`
	BasedOnCart bool     `json:"based_on_cart"`
}

// 响应状态。空结果不是错误：调用方通过 Status 区分“暂无推荐”与“请求失败”。
const (
	StatusOK               = "success"
	StatusInsufficientData = "insufficient_data"
)

// Result 是一次推荐请求的完整响应包络。
type Result struct {
	Status          string            `json:"status"`
	Algorithm       string            `json:"algorithm"`
	BasedOnCart     bool              `json:"based_on_cart"`
	Recommendations []*Recommendation `json:"recommendations"`
}

// EmptyResult 构造带 INSUFFICIENT_DATA 标注的空响应。
func EmptyResult(algorithm string) *Result {
	return &Result{
		Status:          StatusInsufficientData,
		Algorithm:       algorithm,
		Recommendations: []*Recommendation{},
	}
}
