package expr

import (
	"math"

	"github.com/Knetic/govaluate"
)

// numericArgs 全部参数转数字，任一失败返回错误
func numericArgs(name string, args []any) ([]float64, error) {
	nums := make([]float64, len(args))
	for i, a := range args {
		n, ok := toNumber(a)
		if !ok {
			return nil, errType(name, i+1, "数字", a)
		}
		nums[i] = n
	}
	return nums, nil
}

// registerNumberFunctions 数值函数
func registerNumberFunctions(fns map[string]govaluate.ExpressionFunction) {
	fns["SUM"] = func(args ...any) (any, error) {
		if len(args) < 1 {
			return nil, errArityAtLeast("SUM", 1, len(args))
		}
		nums, err := numericArgs("SUM", args)
		if err != nil {
			return nil, err
		}
		total := 0.0
		for _, n := range nums {
			total += n
		}
		return total, nil
	}

	fns["SUBTRACT"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("SUBTRACT", 2, len(args))
		}
		nums, err := numericArgs("SUBTRACT", args)
		if err != nil {
			return nil, err
		}
		return nums[0] - nums[1], nil
	}

	fns["MULTIPLY"] = func(args ...any) (any, error) {
		if len(args) < 2 {
			return nil, errArityAtLeast("MULTIPLY", 2, len(args))
		}
		nums, err := numericArgs("MULTIPLY", args)
		if err != nil {
			return nil, err
		}
		product := 1.0
		for _, n := range nums {
			product *= n
		}
		return product, nil
	}

	fns["DIVIDE"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("DIVIDE", 2, len(args))
		}
		nums, err := numericArgs("DIVIDE", args)
		if err != nil {
			return nil, err
		}
		if nums[1] == 0 {
			return nil, errDivZero("DIVIDE")
		}
		return nums[0] / nums[1], nil
	}

	// ROUND(value) 或 ROUND(value, decimals)
	fns["ROUND"] = func(args ...any) (any, error) {
		if len(args) < 1 || len(args) > 2 {
			return nil, errArityRange("ROUND", 1, 2, len(args))
		}
		nums, err := numericArgs("ROUND", args)
		if err != nil {
			return nil, err
		}
		decimals := 0.0
		if len(nums) == 2 {
			decimals = nums[1]
		}
		factor := math.Pow(10, decimals)
		return math.Round(nums[0]*factor) / factor, nil
	}

	fns["FLOOR"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("FLOOR", 1, len(args))
		}
		nums, err := numericArgs("FLOOR", args)
		if err != nil {
			return nil, err
		}
		return math.Floor(nums[0]), nil
	}

	fns["CEIL"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("CEIL", 1, len(args))
		}
		nums, err := numericArgs("CEIL", args)
		if err != nil {
			return nil, err
		}
		return math.Ceil(nums[0]), nil
	}

	fns["ABS"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("ABS", 1, len(args))
		}
		nums, err := numericArgs("ABS", args)
		if err != nil {
			return nil, err
		}
		return math.Abs(nums[0]), nil
	}

	fns["MIN"] = func(args ...any) (any, error) {
		if len(args) < 1 {
			return nil, errArityAtLeast("MIN", 1, len(args))
		}
		nums, err := numericArgs("MIN", args)
		if err != nil {
			return nil, err
		}
		min := nums[0]
		for _, n := range nums[1:] {
			if n < min {
				min = n
			}
		}
		return min, nil
	}

	fns["MAX"] = func(args ...any) (any, error) {
		if len(args) < 1 {
			return nil, errArityAtLeast("MAX", 1, len(args))
		}
		nums, err := numericArgs("MAX", args)
		if err != nil {
			return nil, err
		}
		max := nums[0]
		for _, n := range nums[1:] {
			if n > max {
				max = n
			}
		}
		return max, nil
	}

	fns["AVERAGE"] = func(args ...any) (any, error) {
		if len(args) < 1 {
			return nil, errArityAtLeast("AVERAGE", 1, len(args))
		}
		nums, err := numericArgs("AVERAGE", args)
		if err != nil {
			return nil, err
		}
		total := 0.0
		for _, n := range nums {
			total += n
		}
		return total / float64(len(nums)), nil
	}

	// PERCENTAGE(value, total) = value / total * 100
	fns["PERCENTAGE"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("PERCENTAGE", 2, len(args))
		}
		nums, err := numericArgs("PERCENTAGE", args)
		if err != nil {
			return nil, err
		}
		if nums[1] == 0 {
			return nil, errDivZero("PERCENTAGE")
		}
		return nums[0] / nums[1] * 100, nil
	}

	fns["MOD"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("MOD", 2, len(args))
		}
		nums, err := numericArgs("MOD", args)
		if err != nil {
			return nil, err
		}
		if nums[1] == 0 {
			return nil, errDivZero("MOD")
		}
		return math.Mod(nums[0], nums[1]), nil
	}

	fns["POWER"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("POWER", 2, len(args))
		}
		nums, err := numericArgs("POWER", args)
		if err != nil {
			return nil, err
		}
		return math.Pow(nums[0], nums[1]), nil
	}
}
