package common

// ============================================================================
// 通用请求类型
// ============================================================================

// PaginationRequest 分页请求参数
type PaginationRequest struct {
	Page     int `json:"page" form:"page" binding:"omitempty,min=1"`           // 页码，从1开始
	PageSize int `json:"page_size" form:"page_size" binding:"omitempty,min=1"` // 每页数量
}

// DefaultPagination 返回默认分页参数
func DefaultPagination() PaginationRequest {
	return PaginationRequest{
		Page:     1,
		PageSize: 20,
	}
}

// GetOffset 计算数据库查询的偏移量
func (p PaginationRequest) GetOffset() int {
	if p.Page < 1 {
		p.Page = 1
	}
	return (p.Page - 1) * p.GetPageSize()
}

// GetPageSize 获取每页数量，提供默认值
func (p PaginationRequest) GetPageSize() int {
	if p.PageSize < 1 {
		return 20
	}
	if p.PageSize > 100 {
		return 100
	}
	return p.PageSize
}

// ============================================================================
// 通用响应类型
// ============================================================================

// APIResponse 统一API响应格式
type APIResponse struct {
	Success bool   `json:"success"`           // 是否成功
	Data    any    `json:"data,omitempty"`    // 响应数据
	Message string `json:"message,omitempty"` // 提示信息
	Code    int    `json:"code"`              // 业务状态码
	Kind    string `json:"kind,omitempty"`    // 领域错误分类，便于客户端按类处理
}

// SuccessResponse 成功响应
func SuccessResponse(data any) APIResponse {
	return APIResponse{
		Success: true,
		Data:    data,
		Code:    0,
	}
}

// ErrorResponse 错误响应
func ErrorResponse(code int, message string) APIResponse {
	return APIResponse{
		Success: false,
		Message: message,
		Code:    code,
	}
}

// PaginationMeta 分页元信息
type PaginationMeta struct {
	Page       int   `json:"page"`        // 当前页码
	PageSize   int   `json:"page_size"`   // 每页数量
	Total      int64 `json:"total"`       // 总记录数
	TotalPages int   `json:"total_pages"` // 总页数
}

// NewPaginationMeta 创建分页元信息
func NewPaginationMeta(page, pageSize int, total int64) PaginationMeta {
	meta := PaginationMeta{
		Page:     page,
		PageSize: pageSize,
		Total:    total,
	}
	if pageSize > 0 {
		meta.TotalPages = int((total + int64(pageSize) - 1) / int64(pageSize))
	}
	return meta
}

// ListResponse 列表响应（包含分页信息）
type ListResponse struct {
	Items      any            `json:"items"`      // 数据列表
	Pagination PaginationMeta `json:"pagination"` // 分页信息
}

// NewListResponse 创建列表响应
func NewListResponse(items any, page, pageSize int, total int64) ListResponse {
	return ListResponse{
		Items:      items,
		Pagination: NewPaginationMeta(page, pageSize, total),
	}
}

// ============================================================================
// 业务状态码定义
// ============================================================================

const (
	// 成功状态码
	CodeSuccess = 0

	// 通用错误码 (1000-1999)
	CodeInvalidRequest = 1000 // 请求参数错误
	CodeUnauthorized   = 1001 // 未授权
	CodeForbidden      = 1002 // 禁止访问
	CodeNotFound       = 1003 // 资源不存在
	CodeConflict       = 1004 // 资源冲突
	CodeInternalError  = 1005 // 内部错误

	// 工作流定义相关错误码 (5000-5099)
	CodeWorkflowNotFound     = 5000 // 工作流不存在
	CodeWorkflowConfigError  = 5001 // 工作流定义校验失败
	CodeWorkflowNotAvailable = 5002 // 工作流未发布或已停用

	// 工作流实例相关错误码 (5100-5199)
	CodeInstanceNotFound     = 5100 // 实例不存在
	CodeInstanceValidation   = 5101 // 实例数据校验失败
	CodeInstancePrecondition = 5102 // 操作前置条件不满足
	CodeInstanceConflict     = 5103 // 实例并发修改冲突

	// 表达式相关错误码 (5200-5299)
	CodeExpressionSyntax     = 5200 // 表达式语法错误
	CodeExpressionEvaluation = 5201 // 表达式求值失败
)

// ErrorMessages 错误码对应的默认消息
var ErrorMessages = map[int]string{
	CodeSuccess:        "操作成功",
	CodeInvalidRequest: "请求参数错误",
	CodeUnauthorized:   "未授权，请先登录",
	CodeForbidden:      "无权限访问",
	CodeNotFound:       "资源不存在",
	CodeConflict:       "资源冲突",
	CodeInternalError:  "系统内部错误",

	CodeWorkflowNotFound:     "工作流不存在",
	CodeWorkflowConfigError:  "工作流定义校验失败",
	CodeWorkflowNotAvailable: "工作流未发布或已停用",

	CodeInstanceNotFound:     "工作流实例不存在",
	CodeInstanceValidation:   "实例数据校验失败",
	CodeInstancePrecondition: "操作前置条件不满足",
	CodeInstanceConflict:     "实例已被其他人修改，请刷新后重试",

	CodeExpressionSyntax:     "表达式语法错误",
	CodeExpressionEvaluation: "表达式求值失败",
}

// GetErrorMessage 获取错误码对应的消息
func GetErrorMessage(code int) string {
	if msg, ok := ErrorMessages[code]; ok {
		return msg
	}
	return "未知错误"
}
