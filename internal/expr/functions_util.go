package expr

import (
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/google/uuid"

	"backend/internal/common"
)

// groupThousands 整数部分加千分位分隔符
func groupThousands(intPart string) string {
	negative := strings.HasPrefix(intPart, "-")
	if negative {
		intPart = intPart[1:]
	}
	var sb strings.Builder
	for i, digit := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(digit)
	}
	if negative {
		return "-" + sb.String()
	}
	return sb.String()
}

// formatGrouped 按小数位格式化数字并加千分位
func formatGrouped(value float64, decimals int) string {
	formatted := strconv.FormatFloat(value, 'f', decimals, 64)
	intPart, fracPart, hasFrac := strings.Cut(formatted, ".")
	if hasFrac {
		return groupThousands(intPart) + "." + fracPart
	}
	return groupThousands(intPart)
}

// registerUtilFunctions 工具函数：格式化、转换、上下文取值、外部查找
func registerUtilFunctions(fns map[string]govaluate.ExpressionFunction, ctx *Context) {
	// COALESCE 返回第一个非空值
	fns["COALESCE"] = func(args ...any) (any, error) {
		if len(args) < 1 {
			return nil, errArityAtLeast("COALESCE", 1, len(args))
		}
		for _, a := range args {
			if !isEmptyValue(a) {
				return a, nil
			}
		}
		return nil, nil
	}

	// DEFAULT(value, fallback) value 为空时取 fallback
	fns["DEFAULT"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("DEFAULT", 2, len(args))
		}
		if isEmptyValue(args[0]) {
			return args[1], nil
		}
		return args[0], nil
	}

	// FORMAT_CURRENCY(value) 或 FORMAT_CURRENCY(value, symbol)
	fns["FORMAT_CURRENCY"] = func(args ...any) (any, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, errArityRange("FORMAT_CURRENCY", 1, 2, len(args))
		}
		n, ok := toNumber(args[0])
		if !ok {
			return nil, errType("FORMAT_CURRENCY", 1, "数字", args[0])
		}
		symbol := "$"
		if len(args) == 2 {
			symbol = toString(args[1])
		}
		return symbol + formatGrouped(n, 2), nil
	}

	// FORMAT_NUMBER(value, decimals)
	fns["FORMAT_NUMBER"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("FORMAT_NUMBER", 2, len(args))
		}
		n, ok := toNumber(args[0])
		if !ok {
			return nil, errType("FORMAT_NUMBER", 1, "数字", args[0])
		}
		decimals, ok := toNumber(args[1])
		if !ok {
			return nil, errType("FORMAT_NUMBER", 2, "数字", args[1])
		}
		return formatGrouped(n, int(decimals)), nil
	}

	fns["TO_NUMBER"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("TO_NUMBER", 1, len(args))
		}
		n, ok := toNumber(args[0])
		if !ok {
			return nil, errType("TO_NUMBER", 1, "数字", args[0])
		}
		return n, nil
	}

	fns["TO_TEXT"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("TO_TEXT", 1, len(args))
		}
		return toString(args[0]), nil
	}

	// UUID 每次调用生成新值
	fns["UUID"] = func(args ...any) (any, error) {
		if len(args) != 0 {
			return nil, errArity("UUID", 0, len(args))
		}
		return uuid.NewString(), nil
	}

	// SEQUENCE(prefix) 通过注入的序列生成器取号
	fns["SEQUENCE"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("SEQUENCE", 1, len(args))
		}
		if ctx.Sequence == nil {
			return nil, common.NewError(common.KindEvaluation, "SEQUENCE 未配置序列生成器")
		}
		next, err := ctx.Sequence.Next(toString(args[0]))
		if err != nil {
			return nil, common.NewErrorf(common.KindEvaluation, "SEQUENCE 取号失败: %v", err)
		}
		return next, nil
	}

	fns["CURRENT_USER"] = func(args ...any) (any, error) {
		if len(args) != 0 {
			return nil, errArity("CURRENT_USER", 0, len(args))
		}
		return ctx.UserName, nil
	}

	fns["CURRENT_USER_EMAIL"] = func(args ...any) (any, error) {
		if len(args) != 0 {
			return nil, errArity("CURRENT_USER_EMAIL", 0, len(args))
		}
		return ctx.UserEmail, nil
	}

	// FIELD_VALUE(name) 按名取字段值，不存在返回 nil
	fns["FIELD_VALUE"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("FIELD_VALUE", 1, len(args))
		}
		if ctx.FieldValues == nil {
			return nil, nil
		}
		return normalizeParam(ctx.FieldValues[toString(args[0])]), nil
	}

	// LOOKUP(key, source) 外部数据源查找
	fns["LOOKUP"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("LOOKUP", 2, len(args))
		}
		if ctx.Lookup == nil {
			return nil, common.NewError(common.KindEvaluation, "LOOKUP 未配置查找数据源")
		}
		key := toString(args[0])
		source := toString(args[1])
		value, err := ctx.Lookup.Lookup(source, key)
		if err != nil {
			return nil, common.NewErrorf(common.KindEvaluation, "LOOKUP 查找失败 (source=%s, key=%s): %v", source, key, err)
		}
		return value, nil
	}
}
