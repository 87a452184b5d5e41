package expr

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"backend/internal/common"
)

// errUnknownFunction 表达式引用了不存在的函数
func errUnknownFunction(name string) error {
	return common.NewErrorf(common.KindEvaluation, "未知函数 %s", name).With("function", name)
}

// errArity 参数个数不匹配
func errArity(name string, want, got int) error {
	return common.NewErrorf(common.KindEvaluation, "函数 %s 需要 %d 个参数，实际 %d 个", name, want, got).
		With("function", name)
}

// errArityAtLeast 参数个数不足
func errArityAtLeast(name string, want, got int) error {
	return common.NewErrorf(common.KindEvaluation, "函数 %s 至少需要 %d 个参数，实际 %d 个", name, want, got).
		With("function", name)
}

// errArityRange 参数个数超出允许区间
func errArityRange(name string, min, max, got int) error {
	return common.NewErrorf(common.KindEvaluation, "函数 %s 需要 %d-%d 个参数，实际 %d 个", name, min, max, got).
		With("function", name)
}

// errType 参数类型不匹配
func errType(name string, pos int, want string, v any) error {
	return common.NewErrorf(common.KindEvaluation, "函数 %s 第 %d 个参数无法转换为%s: %v", name, pos, want, v).
		With("function", name)
}

// errDivZero 除零
func errDivZero(name string) error {
	return common.NewErrorf(common.KindEvaluation, "函数 %s 除数为零", name).With("function", name)
}

// ============================================================================
// 类型转换
// ============================================================================

// toString 任意值转字符串，nil 视为空串
func toString(v any) string {
	if v == nil {
		return ""
	}
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case time.Time:
		return s.Format("2006-01-02 15:04:05")
	case bool:
		if s {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}

// toNumber 任意值转数字
func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		// 容忍货币格式（千分位、货币符号）
		cleaned := strings.TrimSpace(strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				return r
			}
			return -1
		}, n))
		if cleaned == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(cleaned, 64)
		return f, err == nil
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// toBool 任意值转布尔
func toBool(v any) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1":
			return true, true
		case "false", "no", "0", "":
			return false, true
		}
		return false, false
	case float64:
		return b != 0, true
	case nil:
		return false, true
	}
	return false, false
}

// dateLayouts 字符串日期的可识别格式
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// toTime 任意值转时间
// govaluate 会把形如日期的字符串字面量转成 Unix 秒的 float64，这里一并兼容
func toTime(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case float64:
		return time.Unix(int64(d), 0).UTC(), true
	case string:
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, strings.TrimSpace(d)); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// isEmptyValue 空值判定：nil、空串、纯空白串
func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	return false
}

// compareValues 通用比较：优先数值，再时间，最后字符串
// 返回 -1/0/1
func compareValues(a, b any) int {
	if an, ok := toNumber(a); ok {
		if bn, ok := toNumber(b); ok {
			switch {
			case an < bn:
				return -1
			case an > bn:
				return 1
			default:
				return 0
			}
		}
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok2 := toTime(b); ok2 {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}
	return strings.Compare(toString(a), toString(b))
}

// valuesEqual 宽松相等：数值相等或字符串形式相等
func valuesEqual(a, b any) bool {
	if an, ok := toNumber(a); ok {
		if bn, ok := toNumber(b); ok {
			return an == bn
		}
	}
	return toString(a) == toString(b)
}
