package expr

import (
	"strings"
	"time"

	"github.com/Knetic/govaluate"
)

// formatReplacer 日期格式记号映射到 Go 布局
// 支持 YYYY-MM-DD HH:mm:ss 风格的格式串
var formatReplacer = strings.NewReplacer(
	"YYYY", "2006",
	"MM", "01",
	"DD", "02",
	"HH", "15",
	"mm", "04",
	"ss", "05",
)

// weekdayNames 星期名
var weekdayNames = [...]string{
	"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday",
}

// addDateUnit 按单位在日期上加减
func addDateUnit(t time.Time, amount int, unit string) (time.Time, bool) {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "years", "year":
		return t.AddDate(amount, 0, 0), true
	case "months", "month":
		return t.AddDate(0, amount, 0), true
	case "weeks", "week":
		return t.AddDate(0, 0, amount*7), true
	case "days", "day":
		return t.AddDate(0, 0, amount), true
	case "hours", "hour":
		return t.Add(time.Duration(amount) * time.Hour), true
	case "minutes", "minute":
		return t.Add(time.Duration(amount) * time.Minute), true
	case "seconds", "second":
		return t.Add(time.Duration(amount) * time.Second), true
	}
	return t, false
}

// registerDateFunctions 日期函数
// TODAY/NOW 每次调用读取上下文时钟，不缓存
func registerDateFunctions(fns map[string]govaluate.ExpressionFunction, ctx *Context) {
	fns["TODAY"] = func(args ...any) (any, error) {
		if len(args) != 0 {
			return nil, errArity("TODAY", 0, len(args))
		}
		now := ctx.now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}

	fns["NOW"] = func(args ...any) (any, error) {
		if len(args) != 0 {
			return nil, errArity("NOW", 0, len(args))
		}
		return ctx.now(), nil
	}

	// DATE_FORMAT(date, "YYYY-MM-DD")
	fns["DATE_FORMAT"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("DATE_FORMAT", 2, len(args))
		}
		t, ok := toTime(args[0])
		if !ok {
			return nil, errType("DATE_FORMAT", 1, "日期", args[0])
		}
		return t.Format(formatReplacer.Replace(toString(args[1]))), nil
	}

	// DATE_ADD(date, amount, unit) unit: years/months/weeks/days/hours/minutes/seconds
	fns["DATE_ADD"] = func(args ...any) (any, error) {
		if len(args) != 3 {
			return nil, errArity("DATE_ADD", 3, len(args))
		}
		t, ok := toTime(args[0])
		if !ok {
			return nil, errType("DATE_ADD", 1, "日期", args[0])
		}
		amount, ok := toNumber(args[1])
		if !ok {
			return nil, errType("DATE_ADD", 2, "数字", args[1])
		}
		result, ok := addDateUnit(t, int(amount), toString(args[2]))
		if !ok {
			return nil, errType("DATE_ADD", 3, "时间单位", args[2])
		}
		return result, nil
	}

	fns["DATE_SUBTRACT"] = func(args ...any) (any, error) {
		if len(args) != 3 {
			return nil, errArity("DATE_SUBTRACT", 3, len(args))
		}
		t, ok := toTime(args[0])
		if !ok {
			return nil, errType("DATE_SUBTRACT", 1, "日期", args[0])
		}
		amount, ok := toNumber(args[1])
		if !ok {
			return nil, errType("DATE_SUBTRACT", 2, "数字", args[1])
		}
		result, ok := addDateUnit(t, -int(amount), toString(args[2]))
		if !ok {
			return nil, errType("DATE_SUBTRACT", 3, "时间单位", args[2])
		}
		return result, nil
	}

	// DATE_DIFF(end, start) 相差天数（按日历日截断）
	fns["DATE_DIFF"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("DATE_DIFF", 2, len(args))
		}
		end, ok := toTime(args[0])
		if !ok {
			return nil, errType("DATE_DIFF", 1, "日期", args[0])
		}
		start, ok := toTime(args[1])
		if !ok {
			return nil, errType("DATE_DIFF", 2, "日期", args[1])
		}
		endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
		startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		return endDay.Sub(startDay).Hours() / 24, nil
	}

	fns["YEAR"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("YEAR", 1, len(args))
		}
		t, ok := toTime(args[0])
		if !ok {
			return nil, errType("YEAR", 1, "日期", args[0])
		}
		return float64(t.Year()), nil
	}

	fns["MONTH"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("MONTH", 1, len(args))
		}
		t, ok := toTime(args[0])
		if !ok {
			return nil, errType("MONTH", 1, "日期", args[0])
		}
		return float64(t.Month()), nil
	}

	fns["DAY"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("DAY", 1, len(args))
		}
		t, ok := toTime(args[0])
		if !ok {
			return nil, errType("DAY", 1, "日期", args[0])
		}
		return float64(t.Day()), nil
	}

	// WEEKDAY 返回星期名（Monday..Sunday）
	fns["WEEKDAY"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("WEEKDAY", 1, len(args))
		}
		t, ok := toTime(args[0])
		if !ok {
			return nil, errType("WEEKDAY", 1, "日期", args[0])
		}
		return weekdayNames[int(t.Weekday())], nil
	}

	fns["START_OF_MONTH"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("START_OF_MONTH", 1, len(args))
		}
		t, ok := toTime(args[0])
		if !ok {
			return nil, errType("START_OF_MONTH", 1, "日期", args[0])
		}
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()), nil
	}

	fns["END_OF_MONTH"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("END_OF_MONTH", 1, len(args))
		}
		t, ok := toTime(args[0])
		if !ok {
			return nil, errType("END_OF_MONTH", 1, "日期", args[0])
		}
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, 1, -1), nil
	}

	fns["IS_WEEKEND"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, errArity("IS_WEEKEND", 1, len(args))
		}
		t, ok := toTime(args[0])
		if !ok {
			return nil, errType("IS_WEEKEND", 1, "日期", args[0])
		}
		wd := t.Weekday()
		return wd == time.Saturday || wd == time.Sunday, nil
	}

	// BUSINESS_DAYS(start, end) 两日期间的工作日数（周一到周五，含两端）
	fns["BUSINESS_DAYS"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, errArity("BUSINESS_DAYS", 2, len(args))
		}
		start, ok := toTime(args[0])
		if !ok {
			return nil, errType("BUSINESS_DAYS", 1, "日期", args[0])
		}
		end, ok := toTime(args[1])
		if !ok {
			return nil, errType("BUSINESS_DAYS", 2, "日期", args[1])
		}
		startDay := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		endDay := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)
		if startDay.After(endDay) {
			startDay, endDay = endDay, startDay
		}
		count := 0.0
		for d := startDay; !d.After(endDay); d = d.AddDate(0, 0, 1) {
			wd := d.Weekday()
			if wd != time.Saturday && wd != time.Sunday {
				count++
			}
		}
		return count, nil
	}
}
