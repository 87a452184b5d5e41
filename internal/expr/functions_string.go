package expr

import (
	"strings"

	"github.com/Knetic/govaluate"
)

// registerStringFunctions 字符串函数
func registerStringFunctions(fns map[string]govaluate.ExpressionFunction) {
	fns["UPPER"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("UPPER", 1, len(args))
		}
		return strings.ToUpper(toString(args[0])), nil
	}

	fns["LOWER"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("LOWER", 1, len(args))
		}
		return strings.ToLower(toString(args[0])), nil
	}

	fns["TRIM"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("TRIM", 1, len(args))
		}
		return strings.TrimSpace(toString(args[0])), nil
	}

	fns["CONCAT"] = func(args ...any) (any, error) {
		if len(args) < 1 {
			return nil, errArityAtLeast("CONCAT", 1, len(args))
		}
		var sb strings.Builder
		for _, a := range args {
			sb.WriteString(toString(a))
		}
		return sb.String(), nil
	}

	// CONCAT_WS(separator, v1, v2, ...) 跳过空值
	fns["CONCAT_WS"] = func(args ...any) (any, error) {
		if len(args) < 2 {
			return nil, errArityAtLeast("CONCAT_WS", 2, len(args))
		}
		sep := toString(args[0])
		parts := make([]string, 0, len(args)-1)
		for _, a := range args[1:] {
			if isEmptyValue(a) {
				continue
			}
			parts = append(parts, toString(a))
		}
		return strings.Join(parts, sep), nil
	}

	fns["LEFT"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("LEFT", 2, len(args))
		}
		s := toString(args[0])
		n, ok := toNumber(args[1])
		if !ok {
			return nil, errType("LEFT", 2, "数字", args[1])
		}
		runes := []rune(s)
		count := int(n)
		if count < 0 {
			count = 0
		}
		if count > len(runes) {
			count = len(runes)
		}
		return string(runes[:count]), nil
	}

	fns["RIGHT"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("RIGHT", 2, len(args))
		}
		s := toString(args[0])
		n, ok := toNumber(args[1])
		if !ok {
			return nil, errType("RIGHT", 2, "数字", args[1])
		}
		runes := []rune(s)
		count := int(n)
		if count < 0 {
			count = 0
		}
		if count > len(runes) {
			count = len(runes)
		}
		return string(runes[len(runes)-count:]), nil
	}

	// SUBSTRING(text, start, length) start 从 1 开始计
	fns["SUBSTRING"] = func(args ...any) (any, error) {
		if len(args) != 3 {
			return nil, errArity("SUBSTRING", 3, len(args))
		}
		s := []rune(toString(args[0]))
		start, ok := toNumber(args[1])
		if !ok {
			return nil, errType("SUBSTRING", 2, "数字", args[1])
		}
		length, ok := toNumber(args[2])
		if !ok {
			return nil, errType("SUBSTRING", 3, "数字", args[2])
		}
		from := int(start) - 1
		if from < 0 {
			from = 0
		}
		if from >= len(s) {
			return "", nil
		}
		to := from + int(length)
		if to > len(s) {
			to = len(s)
		}
		if to < from {
			to = from
		}
		return string(s[from:to]), nil
	}

	fns["LENGTH"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("LENGTH", 1, len(args))
		}
		return float64(len([]rune(toString(args[0])))), nil
	}

	// REPLACE 只替换首次出现
	fns["REPLACE"] = func(args ...any) (any, error) {
		if len(args) != 3 {
			return nil, errArity("REPLACE", 3, len(args))
		}
		return strings.Replace(toString(args[0]), toString(args[1]), toString(args[2]), 1), nil
	}

	fns["REPLACE_ALL"] = func(args ...any) (any, error) {
		if len(args) != 3 {
			return nil, errArity("REPLACE_ALL", 3, len(args))
		}
		return strings.ReplaceAll(toString(args[0]), toString(args[1]), toString(args[2])), nil
	}

	fns["CONTAINS"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("CONTAINS", 2, len(args))
		}
		return strings.Contains(toString(args[0]), toString(args[1])), nil
	}

	fns["STARTS_WITH"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("STARTS_WITH", 2, len(args))
		}
		return strings.HasPrefix(toString(args[0]), toString(args[1])), nil
	}

	fns["ENDS_WITH"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("ENDS_WITH", 2, len(args))
		}
		return strings.HasSuffix(toString(args[0]), toString(args[1])), nil
	}
}
