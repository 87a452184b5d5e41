package expr

import "time"

// LookupProvider 外部查找数据源
// LOOKUP(key, source) 通过该接口取值，失败以 EvaluationError 上抛
type LookupProvider interface {
	Lookup(source, key string) (any, error)
}

// SequenceProvider 序列号生成器，SEQUENCE(prefix) 使用
type SequenceProvider interface {
	Next(prefix string) (string, error)
}

// Context 一次求值的环境：字段值映射 + 环境量（当前时间、当前用户）+ 注入的外部能力
type Context struct {
	FieldValues map[string]any
	UserName    string
	UserEmail   string
	Now         func() time.Time
	Lookup      LookupProvider
	Sequence    SequenceProvider
}

// now 当前时间，未注入时取系统时间
// TODAY/NOW 每次调用重新取值，不做缓存
func (c *Context) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
