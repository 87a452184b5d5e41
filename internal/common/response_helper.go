package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ResponseSuccess 返回成功响应
func ResponseSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, SuccessResponse(data))
}

// ResponseCreated 返回创建成功响应（201）
func ResponseCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, SuccessResponse(data))
}

// ResponseNoContent 返回无内容响应（204）
func ResponseNoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// ResponseList 返回分页列表响应
func ResponseList(c *gin.Context, items any, total int64, req *PaginationRequest) {
	if req == nil {
		defaultReq := DefaultPagination()
		req = &defaultReq
	}
	c.JSON(http.StatusOK, SuccessResponse(NewListResponse(items, req.Page, req.GetPageSize(), total)))
}

// ResponseError 返回错误响应
func ResponseError(c *gin.Context, code int, message string) {
	if message == "" {
		message = GetErrorMessage(code)
	}
	c.JSON(httpStatusFor(code), ErrorResponse(code, message))
}

// ResponseDomainError 将领域错误按分类映射为业务码和HTTP状态返回
func ResponseDomainError(c *gin.Context, err error) {
	code := CodeInternalError
	switch KindOf(err) {
	case KindValidation:
		code = CodeInstanceValidation
	case KindEvaluation:
		code = CodeExpressionEvaluation
	case KindPrecondition:
		code = CodeInstancePrecondition
	case KindConcurrentModification:
		code = CodeInstanceConflict
	case KindConfiguration:
		code = CodeWorkflowConfigError
	case KindNotFound:
		code = CodeNotFound
	}

	resp := ErrorResponse(code, err.Error())
	if kind := KindOf(err); kind != "" {
		resp.Kind = string(kind)
	}
	c.JSON(httpStatusFor(code), resp)
}

// ResponseBadRequest 返回参数错误响应
func ResponseBadRequest(c *gin.Context, message string) {
	ResponseError(c, CodeInvalidRequest, message)
}

// ResponseUnauthorized 返回未认证响应
func ResponseUnauthorized(c *gin.Context, message string) {
	ResponseError(c, CodeUnauthorized, message)
}

// ResponseNotFound 返回资源不存在响应
func ResponseNotFound(c *gin.Context, message string) {
	ResponseError(c, CodeNotFound, message)
}

// ResponseServerError 返回服务器错误响应
func ResponseServerError(c *gin.Context, message string) {
	ResponseError(c, CodeInternalError, message)
}

// httpStatusFor 业务码到HTTP状态码的映射
func httpStatusFor(code int) int {
	switch code {
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeWorkflowNotFound, CodeInstanceNotFound:
		return http.StatusNotFound
	case CodeInvalidRequest, CodeInstanceValidation, CodeWorkflowConfigError, CodeExpressionSyntax:
		return http.StatusBadRequest
	case CodeInstanceConflict:
		return http.StatusConflict
	case CodeInstancePrecondition, CodeWorkflowNotAvailable, CodeExpressionEvaluation:
		return http.StatusUnprocessableEntity
	case CodeInternalError:
		return http.StatusInternalServerError
	}
	return http.StatusOK
}
