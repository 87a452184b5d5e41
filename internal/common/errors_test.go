package common

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessageIncludesKindAndCause(t *testing.T) {
	err := NewError(KindValidation, "必填字段缺失")
	if !strings.Contains(err.Error(), "VALIDATION") {
		t.Errorf("错误文本应包含分类: %s", err.Error())
	}

	wrapped := NewError(KindEvaluation, "求值失败").Wrap(errors.New("除数为零"))
	if !strings.Contains(wrapped.Error(), "除数为零") {
		t.Errorf("错误文本应包含底层原因: %s", wrapped.Error())
	}
}

func TestKindOfUnwrapsChain(t *testing.T) {
	inner := NewError(KindEvaluation, "求值失败")
	outer := fmt.Errorf("外层包装: %w", inner)

	if KindOf(outer) != KindEvaluation {
		t.Errorf("经 fmt.Errorf 包装后仍应解出分类，得到 %s", KindOf(outer))
	}
	if !IsKind(outer, KindEvaluation) {
		t.Error("IsKind 应匹配包装链中的分类")
	}
}

func TestKindOfOutermostWins(t *testing.T) {
	inner := NewError(KindNotFound, "条目不存在")
	outer := NewError(KindEvaluation, "LOOKUP 失败").Wrap(inner)

	if KindOf(outer) != KindEvaluation {
		t.Errorf("多层领域错误应取最外层分类，得到 %s", KindOf(outer))
	}
}

func TestKindOfPlainError(t *testing.T) {
	if KindOf(errors.New("普通错误")) != "" {
		t.Error("非领域错误应返回空分类")
	}
	if KindOf(nil) != "" {
		t.Error("nil 应返回空分类")
	}
}

func TestWithAccumulatesContext(t *testing.T) {
	err := NewError(KindPrecondition, "非当班审批人").
		With("instance_id", "i-1").
		With("due_approver", "u-2")

	if err.Context["instance_id"] != "i-1" || err.Context["due_approver"] != "u-2" {
		t.Errorf("上下文键值未累积: %v", err.Context)
	}
}
