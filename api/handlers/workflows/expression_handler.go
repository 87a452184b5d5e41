package workflows

import (
	"github.com/gin-gonic/gin"

	"backend/internal/auth"
	"backend/internal/common"
	"backend/internal/expr"
)

// ExpressionHandler 表达式测试面板 Handler
// 给表单设计器提供求值与语法检查的试验接口
type ExpressionHandler struct {
	evaluator *expr.Evaluator
	lookup    expr.LookupProvider
	sequence  expr.SequenceProvider
}

// NewExpressionHandler 创建 ExpressionHandler 实例
func NewExpressionHandler(lookup expr.LookupProvider, sequence expr.SequenceProvider) *ExpressionHandler {
	return &ExpressionHandler{
		evaluator: expr.NewEvaluator(),
		lookup:    lookup,
		sequence:  sequence,
	}
}

// Evaluate 求值表达式
// @Summary 对给定字段值求值表达式
// @Tags Expressions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body EvaluateBody true "表达式与字段值"
// @Success 200 {object} common.APIResponse
// @Failure 400 {object} common.APIResponse
// @Router /api/expressions/evaluate [post]
func (h *ExpressionHandler) Evaluate(c *gin.Context) {
	var body EvaluateBody
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ResponseBadRequest(c, "请求体格式错误: "+err.Error())
		return
	}

	result, err := h.evaluator.Evaluate(body.Expression, &expr.Context{
		FieldValues: body.FieldValues,
		UserName:    c.GetString(auth.ContextUserName),
		UserEmail:   c.GetString(auth.ContextUserEmail),
		Lookup:      h.lookup,
		Sequence:    h.sequence,
	})
	if err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, gin.H{"result": result})
}

// CheckSyntax 语法检查
// @Summary 静态校验表达式语法
// @Tags Expressions
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param body body CheckSyntaxBody true "表达式"
// @Success 200 {object} common.APIResponse
// @Router /api/expressions/check [post]
func (h *ExpressionHandler) CheckSyntax(c *gin.Context) {
	var body CheckSyntaxBody
	if err := c.ShouldBindJSON(&body); err != nil {
		common.ResponseBadRequest(c, "请求体格式错误: "+err.Error())
		return
	}
	if err := h.evaluator.CheckSyntax(body.Expression); err != nil {
		common.ResponseDomainError(c, err)
		return
	}
	common.ResponseSuccess(c, gin.H{"valid": true})
}

// ListFunctions 可用函数列表
// @Summary 表达式引擎可用函数名列表
// @Tags Expressions
// @Security BearerAuth
// @Produce json
// @Success 200 {object} common.APIResponse
// @Router /api/expressions/functions [get]
func (h *ExpressionHandler) ListFunctions(c *gin.Context) {
	common.ResponseSuccess(c, gin.H{"functions": h.evaluator.FunctionNames()})
}
