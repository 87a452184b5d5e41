package instance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"backend/internal/common"
	"backend/internal/expr"
	"backend/internal/sequence"
	"backend/internal/workflow"
	"backend/internal/workflow/approval"
)

// systemActorID 系统动作（金额自动升级）在历史中的执行者标识
const systemActorID = "system"

// Actor 执行动作的用户身份，由 JWT 中间件注入
type Actor struct {
	ID        string
	Name      string
	Email     string
	SuperUser bool // 超级用户可代任何当班审批人执行动作
}

// Settings 实例状态机的行为配置
type Settings struct {
	// 金额超限时是否自动跳过无权限审批人
	SkipUnauthorizedApprovers bool
	// 参考号时间戳格式，空则用默认格式
	ReferenceTimeFormat string
}

// DefaultSettings 默认行为
func DefaultSettings() Settings {
	return Settings{
		SkipUnauthorizedApprovers: true,
		ReferenceTimeFormat:       sequence.DefaultReferenceTimeFormat,
	}
}

// Service 审批流实例状态机服务
// 每个命令一个事务，乐观锁（version 列）保证同一实例的变迁串行化
type Service struct {
	db        *gorm.DB
	sequences *sequence.Generator
	lookup    expr.LookupProvider // 可选，供默认值表达式的 LOOKUP 使用
	settings  Settings
}

// NewService 创建实例服务
func NewService(db *gorm.DB) *Service {
	return &Service{db: db, sequences: sequence.NewGenerator(db), settings: DefaultSettings()}
}

// SetLookupProvider 注入 LOOKUP 数据源
func (s *Service) SetLookupProvider(p expr.LookupProvider) {
	s.lookup = p
}

// SetSettings 覆盖行为配置
func (s *Service) SetSettings(settings Settings) {
	s.settings = settings
}

// evalContext 构造表达式求值环境
func (s *Service) evalContext(actor Actor, values map[string]any) *expr.Context {
	return &expr.Context{
		FieldValues: values,
		UserName:    actor.Name,
		UserEmail:   actor.Email,
		Lookup:      s.lookup,
		Sequence:    s.sequences,
	}
}

// GetInstance 按 ID 查询实例
func (s *Service) GetInstance(ctx context.Context, instanceID string) (*Instance, error) {
	var inst Instance
	if err := s.db.WithContext(ctx).
		Where("id = ? AND is_active = ?", instanceID, true).
		First(&inst).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewErrorf(common.KindNotFound, "审批实例不存在: %s", instanceID)
		}
		return nil, fmt.Errorf("查询审批实例失败: %w", err)
	}
	return &inst, nil
}

// loadWorkflow 加载实例所属的已发布定义
func (s *Service) loadWorkflow(ctx context.Context, workflowID string) (*workflow.Workflow, error) {
	var wf workflow.Workflow
	if err := s.db.WithContext(ctx).
		Scopes(common.NotDeleted()).
		Where("id = ?", workflowID).
		First(&wf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, common.NewErrorf(common.KindNotFound, "工作流不存在: %s", workflowID)
		}
		return nil, fmt.Errorf("查询工作流失败: %w", err)
	}
	return &wf, nil
}

// CreateRequest 创建实例请求
type CreateRequest struct {
	WorkflowID  string
	FieldValues map[string]any
	Submit      bool // true 时创建后立即提交
}

// Create 创建实例（草稿或直接提交）
func (s *Service) Create(ctx context.Context, actor Actor, req *CreateRequest) (*Instance, error) {
	wf, err := s.loadWorkflow(ctx, req.WorkflowID)
	if err != nil {
		return nil, err
	}
	if !wf.IsPublished || !wf.IsActive {
		return nil, common.NewErrorf(common.KindPrecondition, "工作流未发布或已停用: %s", wf.Code)
	}

	// 默认值表达式：失败只降级，不阻断
	values := workflow.ApplyDefaults(&wf.Definition, req.FieldValues, s.evalContext(actor, req.FieldValues))

	// 参考号在创建时即分配，唯一索引不接受空值草稿
	now := time.Now().UTC()
	inst := &Instance{
		ID:              uuid.New().String(),
		WorkflowID:      wf.ID,
		ReferenceNumber: sequence.Reference(wf.Code, now, s.settings.ReferenceTimeFormat),
		Status:          StatusDraft,
		InitiatorID:     actor.ID,
		InitiatorName:   actor.Name,
		InitiatorEmail:  actor.Email,
		FieldValues:     datatypes.JSONMap(values),
		Version:         0,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.db.WithContext(ctx).Create(inst).Error; err != nil {
		return nil, fmt.Errorf("创建审批实例失败: %w", err)
	}

	if req.Submit {
		return s.Submit(ctx, actor, inst.ID)
	}
	return inst, nil
}

// UpdateDraft 编辑草稿字段值（仅发起人、仅 DRAFT，不记历史）
func (s *Service) UpdateDraft(ctx context.Context, actor Actor, instanceID string, values map[string]any) (*Instance, error) {
	inst, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status != StatusDraft {
		return nil, common.NewErrorf(common.KindPrecondition, "只有草稿可以编辑，当前状态: %s", inst.Status)
	}
	if inst.InitiatorID != actor.ID && !actor.SuperUser {
		return nil, common.NewError(common.KindPrecondition, "只有发起人可以编辑草稿")
	}

	merged := map[string]any(inst.FieldValues)
	if merged == nil {
		merged = make(map[string]any)
	}
	for k, v := range values {
		merged[k] = v
	}

	if err := s.write(ctx, s.db, inst, map[string]any{
		"field_values": datatypes.JSONMap(merged),
	}); err != nil {
		return nil, err
	}
	return s.GetInstance(ctx, instanceID)
}

// Submit 提交草稿进入审批链
// 提交本身不记历史，历史只记录审批动作
func (s *Service) Submit(ctx context.Context, actor Actor, instanceID string) (*Instance, error) {
	inst, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status != StatusDraft {
		return nil, common.NewErrorf(common.KindPrecondition, "只有草稿可以提交，当前状态: %s", inst.Status)
	}
	if inst.InitiatorID != actor.ID && !actor.SuperUser {
		return nil, common.NewError(common.KindPrecondition, "只有发起人可以提交")
	}
	wf, err := s.loadWorkflow(ctx, inst.WorkflowID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates, err := s.submission(ctx, tx, wf, inst)
		if err != nil {
			return err
		}
		return s.write(ctx, tx, inst, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInstance(ctx, instanceID)
}

// submission 提交/重新提交共用的计算：校验、标题、金额、参考号、入链位置
func (s *Service) submission(ctx context.Context, tx *gorm.DB, wf *workflow.Workflow, inst *Instance) (map[string]any, error) {
	def := &wf.Definition
	values := map[string]any(inst.FieldValues)

	if err := s.validateRequired(def, values); err != nil {
		return nil, err
	}
	if err := s.validateUnique(ctx, tx, def, inst, values); err != nil {
		return nil, err
	}

	// 入链位置：最小级别，不做限额检查（升级只发生在审批之后）
	entry, ok := approval.EntryLevel(def.ApproverLevels)
	if !ok {
		return nil, common.NewError(common.KindConfiguration, "审批链为空，无法提交")
	}
	due, ok := approval.Due(def.ApproverLevels, entry.Level, entry.Order)
	if !ok {
		return nil, common.NewError(common.KindConfiguration, "入链级别没有审批人")
	}

	now := time.Now().UTC()
	updates := map[string]any{
		"status":                 StatusPending,
		"title":                  buildTitle(def, values),
		"current_level":          entry.Level,
		"current_approver_order": entry.Order,
		"current_approver_id":    due.ApproverID,
		"current_approver_name":  due.ApproverName,
		"current_approver_email": due.ApproverEmail,
		"submitted_at":           now,
		"completed_at":           nil,
	}

	// 金额：仅金额类工作流从 isLimited 字段捕获，未填写则不做限额检查
	if def.IsFinancial() {
		if limited, ok := def.LimitedField(); ok {
			if v, present := values[limited.Name]; present && v != nil && fmt.Sprint(v) != "" {
				amount, err := parseAmount(v)
				if err != nil {
					return nil, common.NewErrorf(common.KindValidation, "金额字段 %s 的值无法解析: %v", limited.Name, v).
						With("field", limited.Name)
				}
				updates["amount"] = amount
			}
		}
	}

	if inst.ReferenceNumber == "" {
		updates["reference_number"] = sequence.Reference(wf.Code, now, s.settings.ReferenceTimeFormat)
	}
	return updates, nil
}

// validateRequired 必填字段校验（隐藏字段与容器字段除外）
func (s *Service) validateRequired(def *workflow.WorkflowDefinition, values map[string]any) error {
	var missing []string
	for _, f := range def.Fields {
		if !f.Required || f.Hidden || f.Type.IsContainer() {
			continue
		}
		v, ok := values[f.Name]
		if !ok || v == nil || fmt.Sprint(v) == "" {
			missing = append(missing, f.Name)
		}
	}
	if len(missing) > 0 {
		return common.NewErrorf(common.KindValidation, "必填字段缺失: %s", strings.Join(missing, ", ")).
			With("fields", missing)
	}
	return nil
}

// validateUnique 唯一字段跨实例查重（JSON 列内取值比较）
func (s *Service) validateUnique(ctx context.Context, tx *gorm.DB, def *workflow.WorkflowDefinition, inst *Instance, values map[string]any) error {
	for _, f := range def.Fields {
		if !f.IsUnique {
			continue
		}
		v, ok := values[f.Name]
		if !ok || v == nil || fmt.Sprint(v) == "" {
			continue
		}
		var count int64
		if err := tx.WithContext(ctx).
			Model(&Instance{}).
			Where("workflow_id = ? AND id <> ? AND is_active = ?", inst.WorkflowID, inst.ID, true).
			Where(datatypes.JSONQuery("field_values").Equals(v, f.Name)).
			Count(&count).Error; err != nil {
			return fmt.Errorf("唯一字段查重失败: %w", err)
		}
		if count > 0 {
			return common.NewErrorf(common.KindValidation, "字段 %s 的值已存在: %v", f.Name, v).
				With("field", f.Name)
		}
	}
	return nil
}

// Approve 当班审批人批准
// 批准后按并行规则/下一级规则推进；金额类工作流在新位置上连环升级
func (s *Service) Approve(ctx context.Context, actor Actor, instanceID, comments string) (*Instance, error) {
	inst, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status != StatusPending {
		return nil, common.NewErrorf(common.KindPrecondition, "实例不在审批中，当前状态: %s", inst.Status)
	}
	wf, err := s.loadWorkflow(ctx, inst.WorkflowID)
	if err != nil {
		return nil, err
	}
	def := &wf.Definition

	due, ok := approval.Due(def.ApproverLevels, inst.CurrentLevel, inst.CurrentApproverOrder)
	if !ok {
		return nil, common.NewErrorf(common.KindConfiguration, "级别 %d 上没有待批审批人", inst.CurrentLevel)
	}
	if due.ApproverID != actor.ID && !actor.SuperUser {
		return nil, common.NewErrorf(common.KindPrecondition, "当前待批审批人是 %s，无权执行此操作", due.ApproverName).
			With("due_approver", due.ApproverID)
	}
	if (def.CommentsMandatory || due.RequireComment) && strings.TrimSpace(comments) == "" {
		return nil, common.NewError(common.KindValidation, "该审批必须填写意见")
	}

	cascade := def.IsFinancial() && s.settings.SkipUnauthorizedApprovers
	adv := approval.AfterApproval(def.ApproverLevels, inst.CurrentLevel, inst.CurrentApproverOrder, inst.Amount, cascade)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 人工批准
		if err := s.appendHistory(tx, &HistoryEntry{
			InstanceID:    inst.ID,
			ApproverID:    due.ApproverID,
			ApproverName:  due.ApproverName,
			ApproverEmail: due.ApproverEmail,
			Level:         inst.CurrentLevel,
			Action:        ActionApproved,
			ActionSource:  SourceUser,
			Comments:      comments,
		}); err != nil {
			return err
		}

		// 系统升级：每跳过一级记一条
		for _, esc := range adv.Escalations {
			detail := fmt.Sprintf("金额超出级别 %d 审批人 %s 的限额，自动升级", esc.FromLevel, esc.Approver.ApproverName)
			if esc.ToLevel > 0 {
				detail = fmt.Sprintf("%s至级别 %d", detail, esc.ToLevel)
			}
			if err := s.appendHistory(tx, &HistoryEntry{
				InstanceID:   inst.ID,
				ApproverID:   systemActorID,
				ApproverName: "System",
				Level:        esc.FromLevel,
				Action:       ActionEscalated,
				ActionSource: SourceSystem,
				Comments:     detail,
			}); err != nil {
				return err
			}
		}

		if adv.Result == approval.ResultApproved {
			return s.write(ctx, tx, inst, s.terminalUpdates(StatusApproved))
		}
		nextDue, ok := approval.Due(def.ApproverLevels, adv.Level, adv.Order)
		if !ok {
			return common.NewErrorf(common.KindConfiguration, "级别 %d 上没有审批人", adv.Level)
		}
		return s.write(ctx, tx, inst, map[string]any{
			"current_level":          adv.Level,
			"current_approver_order": adv.Order,
			"current_approver_id":    nextDue.ApproverID,
			"current_approver_name":  nextDue.ApproverName,
			"current_approver_email": nextDue.ApproverEmail,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetInstance(ctx, instanceID)
}

// Reject 当班审批人驳回：立即终态，并行级别也不等其他人
func (s *Service) Reject(ctx context.Context, actor Actor, instanceID, comments string) (*Instance, error) {
	inst, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status != StatusPending {
		return nil, common.NewErrorf(common.KindPrecondition, "实例不在审批中，当前状态: %s", inst.Status)
	}
	wf, err := s.loadWorkflow(ctx, inst.WorkflowID)
	if err != nil {
		return nil, err
	}
	def := &wf.Definition

	due, ok := approval.Due(def.ApproverLevels, inst.CurrentLevel, inst.CurrentApproverOrder)
	if !ok {
		return nil, common.NewErrorf(common.KindConfiguration, "级别 %d 上没有待批审批人", inst.CurrentLevel)
	}
	if due.ApproverID != actor.ID && !actor.SuperUser {
		return nil, common.NewErrorf(common.KindPrecondition, "当前待批审批人是 %s，无权执行此操作", due.ApproverName)
	}
	if (def.CommentsMandatory || def.CommentsMandatoryOnReject) && strings.TrimSpace(comments) == "" {
		return nil, common.NewError(common.KindValidation, "驳回必须填写意见")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.appendHistory(tx, &HistoryEntry{
			InstanceID:    inst.ID,
			ApproverID:    due.ApproverID,
			ApproverName:  due.ApproverName,
			ApproverEmail: due.ApproverEmail,
			Level:         inst.CurrentLevel,
			Action:        ActionRejected,
			ActionSource:  SourceUser,
			Comments:      comments,
		}); err != nil {
			return err
		}
		return s.write(ctx, tx, inst, s.terminalUpdates(StatusRejected))
	})
	if err != nil {
		return nil, err
	}
	return s.GetInstance(ctx, instanceID)
}

// Escalate 当班审批人手动升级：只上移一级，不做金额连跳
func (s *Service) Escalate(ctx context.Context, actor Actor, instanceID, comments string) (*Instance, error) {
	inst, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status != StatusPending {
		return nil, common.NewErrorf(common.KindPrecondition, "实例不在审批中，当前状态: %s", inst.Status)
	}
	wf, err := s.loadWorkflow(ctx, inst.WorkflowID)
	if err != nil {
		return nil, err
	}
	def := &wf.Definition

	due, ok := approval.Due(def.ApproverLevels, inst.CurrentLevel, inst.CurrentApproverOrder)
	if !ok {
		return nil, common.NewErrorf(common.KindConfiguration, "级别 %d 上没有待批审批人", inst.CurrentLevel)
	}
	if due.ApproverID != actor.ID && !actor.SuperUser {
		return nil, common.NewErrorf(common.KindPrecondition, "当前待批审批人是 %s，无权执行此操作", due.ApproverName)
	}
	if !due.CanEscalate {
		return nil, common.NewError(common.KindPrecondition, "当前审批人没有升级权限")
	}
	if (def.CommentsMandatory || def.CommentsMandatoryOnEscalate) && strings.TrimSpace(comments) == "" {
		return nil, common.NewError(common.KindValidation, "升级必须填写意见")
	}
	next, ok := approval.NextLevelAfter(def.ApproverLevels, inst.CurrentLevel)
	if !ok {
		return nil, common.NewError(common.KindPrecondition, "已是最高审批级别，无法升级")
	}
	nextDue, ok := approval.Due(def.ApproverLevels, next, 0)
	if !ok {
		return nil, common.NewErrorf(common.KindConfiguration, "级别 %d 上没有审批人", next)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.appendHistory(tx, &HistoryEntry{
			InstanceID:    inst.ID,
			ApproverID:    due.ApproverID,
			ApproverName:  due.ApproverName,
			ApproverEmail: due.ApproverEmail,
			Level:         inst.CurrentLevel,
			Action:        ActionEscalated,
			ActionSource:  SourceUser,
			Comments:      comments,
		}); err != nil {
			return err
		}
		return s.write(ctx, tx, inst, map[string]any{
			"current_level":          next,
			"current_approver_order": 0,
			"current_approver_id":    nextDue.ApproverID,
			"current_approver_name":  nextDue.ApproverName,
			"current_approver_email": nextDue.ApproverEmail,
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetInstance(ctx, instanceID)
}

// Recall 发起人撤回：仅当提交后尚无任何审批动作
func (s *Service) Recall(ctx context.Context, actor Actor, instanceID string) (*Instance, error) {
	inst, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status != StatusPending {
		return nil, common.NewErrorf(common.KindPrecondition, "只有审批中的实例可以撤回，当前状态: %s", inst.Status)
	}
	if inst.InitiatorID != actor.ID && !actor.SuperUser {
		return nil, common.NewError(common.KindPrecondition, "只有发起人可以撤回")
	}

	// 提交之后已有审批动作则不可撤回
	var acted int64
	query := s.db.WithContext(ctx).
		Model(&HistoryEntry{}).
		Where("instance_id = ? AND action IN ?", inst.ID, []Action{ActionApproved, ActionEscalated})
	if inst.SubmittedAt != nil {
		query = query.Where("action_date >= ?", *inst.SubmittedAt)
	}
	if err := query.Count(&acted).Error; err != nil {
		return nil, fmt.Errorf("查询审批历史失败: %w", err)
	}
	if acted > 0 {
		return nil, common.NewError(common.KindPrecondition, "已有审批动作，无法撤回")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.appendHistory(tx, &HistoryEntry{
			InstanceID:    inst.ID,
			ApproverID:    actor.ID,
			ApproverName:  actor.Name,
			ApproverEmail: actor.Email,
			Level:         inst.CurrentLevel,
			Action:        ActionRecalled,
			ActionSource:  SourceUser,
		}); err != nil {
			return err
		}
		return s.write(ctx, tx, inst, map[string]any{
			"status":                 StatusRecalled,
			"current_level":          0,
			"current_approver_order": 0,
			"current_approver_id":    "",
			"current_approver_name":  "",
			"current_approver_email": "",
		})
	})
	if err != nil {
		return nil, err
	}
	return s.GetInstance(ctx, instanceID)
}

// Resubmit 驳回或撤回后重新提交：回到最小级别，历史保留
func (s *Service) Resubmit(ctx context.Context, actor Actor, instanceID string, values map[string]any) (*Instance, error) {
	inst, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	if inst.Status != StatusRejected && inst.Status != StatusRecalled {
		return nil, common.NewErrorf(common.KindPrecondition, "只有已驳回或已撤回的实例可以重新提交，当前状态: %s", inst.Status)
	}
	if inst.InitiatorID != actor.ID && !actor.SuperUser {
		return nil, common.NewError(common.KindPrecondition, "只有发起人可以重新提交")
	}
	wf, err := s.loadWorkflow(ctx, inst.WorkflowID)
	if err != nil {
		return nil, err
	}

	// 重新提交前允许修改表单
	if len(values) > 0 {
		merged := map[string]any(inst.FieldValues)
		if merged == nil {
			merged = make(map[string]any)
		}
		for k, v := range values {
			merged[k] = v
		}
		inst.FieldValues = datatypes.JSONMap(merged)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates, err := s.submission(ctx, tx, wf, inst)
		if err != nil {
			return err
		}
		updates["field_values"] = inst.FieldValues
		if err := s.appendHistory(tx, &HistoryEntry{
			InstanceID:    inst.ID,
			ApproverID:    actor.ID,
			ApproverName:  actor.Name,
			ApproverEmail: actor.Email,
			Action:        ActionResubmitted,
			ActionSource:  SourceUser,
		}); err != nil {
			return err
		}
		return s.write(ctx, tx, inst, updates)
	})
	if err != nil {
		return nil, err
	}
	return s.GetInstance(ctx, instanceID)
}

// Cancel 取消：草稿、审批中或挂起的实例可取消
// 已撤回的实例走重新提交或删除，不走取消
func (s *Service) Cancel(ctx context.Context, actor Actor, instanceID, comments string) (*Instance, error) {
	inst, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	switch inst.Status {
	case StatusDraft, StatusPending, StatusOnHold:
	default:
		return nil, common.NewErrorf(common.KindPrecondition, "状态 %s 的实例不可取消", inst.Status)
	}
	if inst.InitiatorID != actor.ID && !actor.SuperUser {
		return nil, common.NewError(common.KindPrecondition, "只有发起人可以取消")
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.appendHistory(tx, &HistoryEntry{
			InstanceID:    inst.ID,
			ApproverID:    actor.ID,
			ApproverName:  actor.Name,
			ApproverEmail: actor.Email,
			Level:         inst.CurrentLevel,
			Action:        ActionCancelled,
			ActionSource:  SourceUser,
			Comments:      comments,
		}); err != nil {
			return err
		}
		return s.write(ctx, tx, inst, s.terminalUpdates(StatusCancelled))
	})
	if err != nil {
		return nil, err
	}
	return s.GetInstance(ctx, instanceID)
}

// Delete 删除实例：仅 DRAFT / RECALLED / CANCELLED，软删除
// 已通过的实例永远不可删除
func (s *Service) Delete(ctx context.Context, actor Actor, instanceID string) error {
	inst, err := s.GetInstance(ctx, instanceID)
	if err != nil {
		return err
	}
	switch inst.Status {
	case StatusDraft, StatusRecalled, StatusCancelled:
	default:
		return common.NewErrorf(common.KindPrecondition, "状态 %s 的实例不可删除", inst.Status)
	}
	if inst.InitiatorID != actor.ID && !actor.SuperUser {
		return common.NewError(common.KindPrecondition, "只有发起人可以删除")
	}
	return s.write(ctx, s.db, inst, map[string]any{"is_active": false})
}

// terminalUpdates 终态写入：清空当班审批人并盖完成时间
func (s *Service) terminalUpdates(status Status) map[string]any {
	return map[string]any{
		"status":                 status,
		"completed_at":           time.Now().UTC(),
		"current_approver_id":    "",
		"current_approver_name":  "",
		"current_approver_email": "",
	}
}

// write 乐观锁写入：版本不匹配说明实例已被并发修改
func (s *Service) write(ctx context.Context, tx *gorm.DB, inst *Instance, updates map[string]any) error {
	updates["version"] = inst.Version + 1
	updates["updated_at"] = time.Now().UTC()
	result := tx.WithContext(ctx).
		Model(&Instance{}).
		Where("id = ? AND version = ?", inst.ID, inst.Version).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("更新审批实例失败: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return common.NewErrorf(common.KindConcurrentModification, "实例已被并发修改，请刷新后重试: %s", inst.ID).
			With("instance_id", inst.ID).With("version", inst.Version)
	}
	inst.Version++
	return nil
}

// appendHistory 追加历史条目（只增不改）
func (s *Service) appendHistory(tx *gorm.DB, entry *HistoryEntry) error {
	entry.ID = uuid.New().String()
	entry.ActionDate = time.Now().UTC()
	if err := tx.Create(entry).Error; err != nil {
		return fmt.Errorf("写入审批历史失败: %w", err)
	}
	return nil
}

// buildTitle 由标题字段值按 DisplayOrder 以 "_" 拼接
func buildTitle(def *workflow.WorkflowDefinition, values map[string]any) string {
	var parts []string
	for _, f := range def.TitleFields() {
		if v, ok := values[f.Name]; ok && v != nil && fmt.Sprint(v) != "" {
			parts = append(parts, fmt.Sprint(v))
		}
	}
	return strings.Join(parts, "_")
}

// parseAmount 从字段值解析金额，容忍货币符号与千分位
// JSONB 列回读的数值是 json.Number，需与原生数值同样对待
func parseAmount(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		cleaned := strings.Map(func(r rune) rune {
			if (r >= '0' && r <= '9') || r == '.' || r == '-' {
				return r
			}
			return -1
		}, n)
		if cleaned == "" {
			return 0, fmt.Errorf("金额为空")
		}
		return strconv.ParseFloat(cleaned, 64)
	case nil:
		return 0, fmt.Errorf("金额为空")
	default:
		return 0, fmt.Errorf("不支持的金额类型 %T", v)
	}
}
