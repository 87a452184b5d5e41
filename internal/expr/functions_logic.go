package expr

import (
	"github.com/Knetic/govaluate"
)

// registerLogicFunctions 逻辑与比较函数
func registerLogicFunctions(fns map[string]govaluate.ExpressionFunction) {
	// IF(condition, whenTrue, whenFalse)
	fns["IF"] = func(args ...any) (any, error) {
		if len(args) != 3 {
			return nil, errArity("IF", 3, len(args))
		}
		cond, ok := toBool(args[0])
		if !ok {
			return nil, errType("IF", 1, "布尔值", args[0])
		}
		if cond {
			return args[1], nil
		}
		return args[2], nil
	}

	fns["AND"] = func(args ...any) (any, error) {
		if len(args) < 2 {
			return nil, errArityAtLeast("AND", 2, len(args))
		}
		for i, a := range args {
			b, ok := toBool(a)
			if !ok {
				return nil, errType("AND", i+1, "布尔值", a)
			}
			if !b {
				return false, nil
			}
		}
		return true, nil
	}

	fns["OR"] = func(args ...any) (any, error) {
		if len(args) < 2 {
			return nil, errArityAtLeast("OR", 2, len(args))
		}
		for i, a := range args {
			b, ok := toBool(a)
			if !ok {
				return nil, errType("OR", i+1, "布尔值", a)
			}
			if b {
				return true, nil
			}
		}
		return false, nil
	}

	fns["NOT"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("NOT", 1, len(args))
		}
		b, ok := toBool(args[0])
		if !ok {
			return nil, errType("NOT", 1, "布尔值", args[0])
		}
		return !b, nil
	}

	fns["IS_EMPTY"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("IS_EMPTY", 1, len(args))
		}
		return isEmptyValue(args[0]), nil
	}

	fns["IS_NOT_EMPTY"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("IS_NOT_EMPTY", 1, len(args))
		}
		return !isEmptyValue(args[0]), nil
	}

	fns["EQUALS"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("EQUALS", 2, len(args))
		}
		return valuesEqual(args[0], args[1]), nil
	}

	fns["NOT_EQUALS"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("NOT_EQUALS", 2, len(args))
		}
		return !valuesEqual(args[0], args[1]), nil
	}

	fns["GREATER_THAN"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("GREATER_THAN", 2, len(args))
		}
		return compareValues(args[0], args[1]) > 0, nil
	}

	fns["LESS_THAN"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("LESS_THAN", 2, len(args))
		}
		return compareValues(args[0], args[1]) < 0, nil
	}

	// BETWEEN(value, low, high) 闭区间
	fns["BETWEEN"] = func(args ...any) (any, error) {
		if len(args) != 3 {
			return nil, errArity("BETWEEN", 3, len(args))
		}
		return compareValues(args[0], args[1]) >= 0 && compareValues(args[0], args[2]) <= 0, nil
	}

	// IN(value, c1, c2, ...) 值是否在候选集合中
	fns["IN"] = func(args ...any) (any, error) {
		if len(args) < 2 {
			return nil, errArityAtLeast("IN", 2, len(args))
		}
		for _, candidate := range args[1:] {
			if valuesEqual(args[0], candidate) {
				return true, nil
			}
		}
		return false, nil
	}
}
