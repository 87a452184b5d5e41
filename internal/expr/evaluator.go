package expr

import (
	"encoding/json"
	"errors"
	"regexp"
	"sort"
	"strings"

	"github.com/Knetic/govaluate"

	"backend/internal/common"
)

// Evaluator 表达式求值引擎
// 基于 govaluate，注入约 65 个具名函数（字符串、数值、日期、逻辑、工具五类）
type Evaluator struct{}

// NewEvaluator 创建求值引擎
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// callPattern 提取形如 NAME( 的函数调用，用于预检未知函数
var callPattern = regexp.MustCompile(`([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// functions 构建完整函数表，闭包捕获求值上下文
func (e *Evaluator) functions(ctx *Context) map[string]govaluate.ExpressionFunction {
	fns := make(map[string]govaluate.ExpressionFunction, 72)
	registerStringFunctions(fns)
	registerNumberFunctions(fns)
	registerDateFunctions(fns, ctx)
	registerLogicFunctions(fns)
	registerUtilFunctions(fns, ctx)
	return fns
}

// FunctionNames 返回全部已注册函数名（字典序），供文档接口使用
func (e *Evaluator) FunctionNames() []string {
	fns := e.functions(&Context{})
	names := make([]string, 0, len(fns))
	for name := range fns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// stripStringLiterals 去掉单双引号字符串字面量的内容，保留引号外的文本
// 字面量里的 "FOO(" 不是函数调用，预检不应误伤
func stripStringLiterals(expression string) string {
	var b strings.Builder
	b.Grow(len(expression))
	var quote byte
	for i := 0; i < len(expression); i++ {
		c := expression[i]
		if quote != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == quote {
				quote = 0
			}
			continue
		}
		if c == '\'' || c == '"' {
			quote = c
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}

// checkFunctions 预扫描表达式中的函数调用，引用未注册函数直接拒绝
// govaluate 对未知函数报的是语法错误，这里提前拦截给出明确错误
func (e *Evaluator) checkFunctions(expression string, fns map[string]govaluate.ExpressionFunction) error {
	for _, m := range callPattern.FindAllStringSubmatch(stripStringLiterals(expression), -1) {
		name := m[1]
		if _, ok := fns[name]; !ok {
			return errUnknownFunction(name)
		}
	}
	return nil
}

// Evaluate 求值表达式
// 字段值作为裸参数暴露给表达式（如 amount > 5000 中的 amount）
func (e *Evaluator) Evaluate(expression string, ctx *Context) (any, error) {
	if ctx == nil {
		ctx = &Context{}
	}
	if strings.TrimSpace(expression) == "" {
		return nil, common.NewError(common.KindValidation, "表达式不能为空")
	}

	fns := e.functions(ctx)
	if err := e.checkFunctions(expression, fns); err != nil {
		return nil, err
	}

	parsed, err := govaluate.NewEvaluableExpressionWithFunctions(expression, fns)
	if err != nil {
		return nil, common.NewErrorf(common.KindValidation, "表达式语法错误: %v", err).
			With("expression", expression)
	}

	params := make(map[string]any, len(ctx.FieldValues))
	for name, value := range ctx.FieldValues {
		params[name] = normalizeParam(value)
	}

	result, err := parsed.Evaluate(params)
	if err != nil {
		// 函数内部抛出的领域错误原样上抛
		var domainErr *common.Error
		if errors.As(err, &domainErr) {
			return nil, err
		}
		// govaluate 对缺失参数报 "No parameter 'xxx' found"
		if strings.Contains(err.Error(), "No parameter") {
			return nil, common.NewErrorf(common.KindEvaluation, "表达式引用了未定义的字段: %v", err).
				With("expression", expression)
		}
		return nil, common.NewErrorf(common.KindEvaluation, "表达式求值失败: %v", err).
			With("expression", expression)
	}
	return result, nil
}

// EvaluateBool 求值并要求布尔结果，用于条件判断场景
func (e *Evaluator) EvaluateBool(expression string, ctx *Context) (bool, error) {
	result, err := e.Evaluate(expression, ctx)
	if err != nil {
		return false, err
	}
	b, ok := toBool(result)
	if !ok {
		return false, common.NewErrorf(common.KindEvaluation, "表达式结果不是布尔值: %v", result).
			With("expression", expression)
	}
	return b, nil
}

// CheckSyntax 静态校验表达式：语法可解析且不引用未知函数
// 不求值，不访问字段
func (e *Evaluator) CheckSyntax(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return common.NewError(common.KindValidation, "表达式不能为空")
	}
	fns := e.functions(&Context{})
	if err := e.checkFunctions(expression, fns); err != nil {
		return err
	}
	if _, err := govaluate.NewEvaluableExpressionWithFunctions(expression, fns); err != nil {
		return common.NewErrorf(common.KindValidation, "表达式语法错误: %v", err).
			With("expression", expression)
	}
	return nil
}

// normalizeParam 统一参数类型：整型与 json.Number 转 float64，避免 govaluate 比较时类型不一致
func normalizeParam(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case float32:
		return float64(n)
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
	}
	return v
}
