package workflow

import (
	"strings"

	"backend/internal/common"
	"backend/internal/expr"
)

// Validator 定义校验器：保存/发布前执行，违规返回 ConfigurationError
type Validator struct {
	evaluator *expr.Evaluator
}

// NewValidator 创建校验器
func NewValidator() *Validator {
	return &Validator{evaluator: expr.NewEvaluator()}
}

func configErr(message string) error {
	return common.NewError(common.KindConfiguration, message)
}

// Validate 校验整棵定义树
func (v *Validator) Validate(def *WorkflowDefinition) error {
	if def == nil {
		return configErr("工作流定义不能为空")
	}
	if err := v.validateFields(def); err != nil {
		return err
	}
	if err := v.validateHierarchy(def); err != nil {
		return err
	}
	if err := v.validateReferences(def); err != nil {
		return err
	}
	if err := v.validateApprovers(def); err != nil {
		return err
	}
	return v.validateExpressions(def)
}

// validateFields 字段基础校验：名称唯一、类型合法、金额字段至多一个
func (v *Validator) validateFields(def *WorkflowDefinition) error {
	seen := make(map[string]bool, len(def.Fields))
	limitedCount := 0
	for _, f := range def.Fields {
		name := strings.TrimSpace(f.Name)
		if name == "" {
			return configErr("字段名称不能为空")
		}
		if seen[name] {
			return common.NewErrorf(common.KindConfiguration, "字段名称重复: %s", name).
				With("field", name)
		}
		seen[name] = true

		if !validFieldTypes[f.Type] {
			return common.NewErrorf(common.KindConfiguration, "字段 %s 类型非法: %s", name, f.Type).
				With("field", name)
		}
		if f.IsLimited {
			limitedCount++
		}
	}
	if limitedCount > 1 {
		return configErr("金额字段（isLimited）每个定义最多一个")
	}
	return nil
}

// validateHierarchy 父子层级校验：父字段必须是容器类型，且层级最多两层
func (v *Validator) validateHierarchy(def *WorkflowDefinition) error {
	byID := make(map[string]*Field, len(def.Fields))
	for i := range def.Fields {
		byID[def.Fields[i].ID] = &def.Fields[i]
	}
	for _, f := range def.Fields {
		if f.ParentFieldID == "" {
			continue
		}
		parent, ok := byID[f.ParentFieldID]
		if !ok {
			return common.NewErrorf(common.KindConfiguration, "字段 %s 的父字段不存在: %s", f.Name, f.ParentFieldID).
				With("field", f.Name)
		}
		if !parent.Type.IsContainer() {
			return common.NewErrorf(common.KindConfiguration, "字段 %s 的父字段 %s 不是容器类型", f.Name, parent.Name).
				With("field", f.Name)
		}
		if parent.ParentFieldID != "" {
			return common.NewErrorf(common.KindConfiguration, "字段 %s 嵌套超过两层", f.Name).
				With("field", f.Name)
		}
	}
	return nil
}

// validateReferences 分组与页面引用校验
func (v *Validator) validateReferences(def *WorkflowDefinition) error {
	screens := make(map[string]bool, len(def.Screens))
	for _, s := range def.Screens {
		screens[s.ID] = true
	}
	groups := make(map[string]bool, len(def.FieldGroups))
	for _, g := range def.FieldGroups {
		groups[g.ID] = true
		if g.ScreenID != "" && !screens[g.ScreenID] {
			return common.NewErrorf(common.KindConfiguration, "分组 %s 引用的页面不存在: %s", g.Title, g.ScreenID)
		}
	}
	for _, f := range def.Fields {
		if f.FieldGroupID != "" && !groups[f.FieldGroupID] {
			return common.NewErrorf(common.KindConfiguration, "字段 %s 引用的分组不存在: %s", f.Name, f.FieldGroupID).
				With("field", f.Name)
		}
		if f.ScreenID != "" && !screens[f.ScreenID] {
			return common.NewErrorf(common.KindConfiguration, "字段 %s 引用的页面不存在: %s", f.Name, f.ScreenID).
				With("field", f.Name)
		}
	}
	return nil
}

// validateApprovers 审批链校验
func (v *Validator) validateApprovers(def *WorkflowDefinition) error {
	for _, a := range def.ApproverLevels {
		if strings.TrimSpace(a.ApproverID) == "" {
			return configErr("审批人 ID 不能为空")
		}
		if a.Level < 1 {
			return common.NewErrorf(common.KindConfiguration, "审批级别必须 >= 1: %d", a.Level).
				With("approver", a.ApproverID)
		}
	}
	return nil
}

// validateExpressions 默认值表达式必须可解析
// 非金额类工作流上的 isLimited/限额配置不报错，运行时忽略
func (v *Validator) validateExpressions(def *WorkflowDefinition) error {
	for _, f := range def.Fields {
		if f.DefaultValueExpression == "" {
			continue
		}
		if err := v.evaluator.CheckSyntax(f.DefaultValueExpression); err != nil {
			return common.NewErrorf(common.KindConfiguration, "字段 %s 默认值表达式无效: %v", f.Name, err).
				With("field", f.Name).Wrap(err)
		}
	}
	return nil
}
