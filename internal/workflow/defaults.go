package workflow

import (
	"go.uber.org/zap"

	"backend/internal/common"
	"backend/internal/expr"
	"backend/internal/logger"
)

// ApplyDefaults 对未填写的字段求默认值表达式，写入 values 后返回
// 求值失败只记警告并跳过该字段，默认值永远不阻断创建
func ApplyDefaults(def *WorkflowDefinition, values map[string]any, evalCtx *expr.Context) map[string]any {
	if values == nil {
		values = make(map[string]any)
	}
	evaluator := expr.NewEvaluator()
	for _, f := range def.Fields {
		if f.DefaultValueExpression == "" {
			continue
		}
		if v, ok := values[f.Name]; ok && v != nil && v != "" {
			continue // 用户已填写
		}
		ctx := *evalCtx
		ctx.FieldValues = values
		result, err := evaluator.Evaluate(f.DefaultValueExpression, &ctx)
		if err != nil {
			logger.Warn("字段默认值求值失败，留空",
				zap.String("field", f.Name),
				zap.String("expression", f.DefaultValueExpression),
				zap.String("kind", string(common.KindOf(err))),
				zap.Error(err),
			)
			continue
		}
		values[f.Name] = result
	}
	return values
}
