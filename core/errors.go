package core

// DomainError 是领域层的统一错误类型。
//
// 设计原则：
//   - 所有领域层错误都使用此类型
//   - 提供错误代码（Code）和消息（Message）
//   - 支持错误检查函数（IsXXX）
//
// 使用场景：
//   - Store 错误：NOT_FOUND, NOT_SUPPORTED
//   - Agent 错误：NOT_FOUND, INVALID_CHOICE
//   - 算法错误：INSUFFICIENT_DATA, TIMEOUT
type DomainError struct {
	Code    string // 错误代码（如 "NOT_FOUND", "INVALID_CHOICE"）
	Message string // 错误消息
	Module  string // 模块名称（如 "store", "agent", "algo"）
}

func (e *DomainError) Error() string {
	return e.Message
}

// IsDomainError 检查错误是否为 DomainError 类型
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*DomainError)
	return ok
}

// GetDomainError 获取 DomainError，如果不是则返回 nil
func GetDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	if domainErr, ok := err.(*DomainError); ok {
		return domainErr
	}
	return nil
}

// NewDomainError 创建新的领域错误
func NewDomainError(module, code, message string) *DomainError {
	return &DomainError{
		Module:  module,
		Code:    code,
		Message: message,
	}
}

// 错误代码常量
const (
	ErrorCodeNotFound         = "NOT_FOUND"          // 用户/商品不存在
	ErrorCodeNotSupported     = "NOT_SUPPORTED"      // 操作不支持
	ErrorCodeInvalidChoice    = "INVALID_CHOICE"     // 未知算法名
	ErrorCodeInsufficientData = "INSUFFICIENT_DATA"  // 数据不足的合法空结果，不是失败
	ErrorCodeTimeout          = "TIMEOUT"            // 单算法超时降级，非致命
	ErrorCodeInvalidInput     = "INVALID_INPUT"      // 输入无效
	ErrorCodeInternalError    = "INTERNAL_ERROR"     // 融合层内部错误，请求级失败
)

// 模块名称常量
const (
	ModuleStore    = "store"    // 存储模块
	ModuleIndex    = "index"    // 交互矩阵/转移表/特征索引
	ModuleAlgo     = "algo"     // 打分算法模块
	ModuleAgent    = "agent"    // 编排模块
	ModuleFeedback = "feedback" // 反馈模块
)

// IsNotFound 检查错误是否为 NOT_FOUND
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotFound
	}
	return false
}

// IsInvalidChoice 检查错误是否为未知算法名
func IsInvalidChoice(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInvalidChoice
	}
	return false
}

// IsInsufficientData 检查错误是否为数据不足。
// 注意：数据不足对调用方不是失败，算法返回空列表即可，此代码仅用于状态标注。
func IsInsufficientData(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeInsufficientData
	}
	return false
}

// IsTimeout 检查错误是否为单算法超时
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeTimeout
	}
	return false
}

// IsNotSupported 检查错误是否为 NOT_SUPPORTED
func IsNotSupported(err error) bool {
	if err == nil {
		return false
	}
	if domainErr := GetDomainError(err); domainErr != nil {
		return domainErr.Code == ErrorCodeNotSupported
	}
	return false
}
