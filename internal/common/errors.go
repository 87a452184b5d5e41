package common

import (
	"errors"
	"fmt"
)

// ErrorKind 领域错误分类
// 调用方通过 Kind 分支处理，不允许裸字符串错误穿透到 API 层
type ErrorKind string

const (
	KindValidation             ErrorKind = "VALIDATION"              // 提交数据不合法（必填缺失、唯一冲突、表达式语法错误）
	KindEvaluation             ErrorKind = "EVALUATION"              // 表达式求值失败（未知函数、参数错误、除零、LOOKUP 失败）
	KindPrecondition           ErrorKind = "PRECONDITION"            // 操作前置条件不满足（非当前审批人、状态不兼容）
	KindConcurrentModification ErrorKind = "CONCURRENT_MODIFICATION" // 乐观锁冲突，调用方需重新加载后重试
	KindConfiguration          ErrorKind = "CONFIGURATION"           // 工作流定义不变量被破坏，保存被阻止
	KindNotFound               ErrorKind = "NOT_FOUND"               // 资源不存在
)

// Error 结构化领域错误（分类 + 上下文）
type Error struct {
	Kind    ErrorKind
	Message string
	Context map[string]any
	Cause   error
}

// Error 实现 error 接口
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap 支持 errors.Is / errors.As 链式匹配
func (e *Error) Unwrap() error {
	return e.Cause
}

// With 附加上下文键值，返回自身便于链式调用
func (e *Error) With(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Wrap 记录底层错误
func (e *Error) Wrap(cause error) *Error {
	e.Cause = cause
	return e
}

// NewError 创建领域错误
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// NewErrorf 创建带格式化消息的领域错误
func NewErrorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf 提取错误分类，非领域错误返回空串
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// IsKind 判断错误是否属于指定分类
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
