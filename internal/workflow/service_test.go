package workflow

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"backend/internal/common"
)

func setupWorkflowServiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:workflow_service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	if err := db.AutoMigrate(&Workflow{}); err != nil {
		t.Fatalf("迁移 schema 失败: %v", err)
	}
	return db
}

func limit(v float64) *float64 { return &v }

func sampleDefinition() WorkflowDefinition {
	return WorkflowDefinition{
		Category: CategoryFinancial,
		Screens: []Screen{
			{ID: "scr-1", Title: "基本信息", DisplayOrder: 1},
		},
		FieldGroups: []FieldGroup{
			{ID: "grp-1", Title: "采购明细", ScreenID: "scr-1", DisplayOrder: 1},
		},
		Fields: []Field{
			{ID: "f-1", Name: "vendor", Label: "供应商", Type: FieldTypeText, Required: true, IsTitle: true, DisplayOrder: 1, FieldGroupID: "grp-1", ScreenID: "scr-1"},
			{ID: "f-2", Name: "amount", Label: "金额", Type: FieldTypeCurrency, Required: true, IsLimited: true, DisplayOrder: 2, ScreenID: "scr-1"},
			{ID: "f-3", Name: "po_number", Label: "采购单号", Type: FieldTypeText, IsUnique: true, IsTitle: true, DisplayOrder: 3},
		},
		ApproverLevels: []ApproverLevel{
			{ID: "a-1", Level: 1, ApproverID: "u-mgr", ApproverName: "经理", ApproverEmail: "mgr@example.com", AmountLimit: limit(1000), DisplayOrder: 1},
			{ID: "a-2", Level: 2, ApproverID: "u-dir", ApproverName: "总监", ApproverEmail: "dir@example.com", IsUnlimited: true, CanEscalate: true, DisplayOrder: 1},
		},
	}
}

func TestCreateGetAndListWorkflow(t *testing.T) {
	ctx := context.Background()
	svc := NewWorkflowService(setupWorkflowServiceTestDB(t))

	created, err := svc.CreateWorkflow(ctx, &CreateWorkflowRequest{
		Code:       "po",
		Name:       "采购审批",
		Category:   CategoryFinancial,
		Definition: sampleDefinition(),
		CreatedBy:  "user-1",
	})
	if err != nil {
		t.Fatalf("创建工作流失败: %v", err)
	}
	if created.Code != "PO" {
		t.Errorf("编码应转大写, 实际 %s", created.Code)
	}
	if created.IsPublished {
		t.Error("新建工作流不应处于已发布状态")
	}

	byCode, err := svc.GetWorkflowByCode(ctx, "PO")
	if err != nil {
		t.Fatalf("按编码查询失败: %v", err)
	}
	if byCode.ID != created.ID {
		t.Errorf("按编码查询结果不一致")
	}

	resp, err := svc.ListWorkflows(ctx, &ListWorkflowsRequest{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("查询列表失败: %v", err)
	}
	if resp.Total != 1 || len(resp.Workflows) != 1 {
		t.Fatalf("列表结果不正确: %+v", resp)
	}
}

func TestDuplicateCodeRejected(t *testing.T) {
	ctx := context.Background()
	svc := NewWorkflowService(setupWorkflowServiceTestDB(t))

	req := &CreateWorkflowRequest{Code: "PO", Name: "采购审批", Definition: sampleDefinition()}
	if _, err := svc.CreateWorkflow(ctx, req); err != nil {
		t.Fatalf("创建工作流失败: %v", err)
	}
	_, err := svc.CreateWorkflow(ctx, &CreateWorkflowRequest{Code: "po", Name: "另一个", Definition: sampleDefinition()})
	if !common.IsKind(err, common.KindValidation) {
		t.Fatalf("编码重复期望校验错误, 实际 %v", err)
	}
}

func TestDefinitionRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := setupWorkflowServiceTestDB(t)
	svc := NewWorkflowService(db)

	def := sampleDefinition()
	created, err := svc.CreateWorkflow(ctx, &CreateWorkflowRequest{
		Code: "RT", Name: "往返测试", Category: CategoryFinancial, Definition: def,
	})
	if err != nil {
		t.Fatalf("创建工作流失败: %v", err)
	}

	loaded, err := svc.GetWorkflow(ctx, created.ID)
	if err != nil {
		t.Fatalf("查询工作流失败: %v", err)
	}
	if !reflect.DeepEqual(loaded.Definition, created.Definition) {
		t.Errorf("定义经 JSONB 往返后不一致:\n存入 %+v\n读出 %+v", created.Definition, loaded.Definition)
	}
}

func TestPublishWorkflow(t *testing.T) {
	ctx := context.Background()
	svc := NewWorkflowService(setupWorkflowServiceTestDB(t))

	created, err := svc.CreateWorkflow(ctx, &CreateWorkflowRequest{
		Code: "PUB", Name: "发布测试", Definition: sampleDefinition(),
	})
	if err != nil {
		t.Fatalf("创建工作流失败: %v", err)
	}
	published, err := svc.PublishWorkflow(ctx, created.ID)
	if err != nil {
		t.Fatalf("发布失败: %v", err)
	}
	if !published.IsPublished {
		t.Error("发布后 IsPublished 应为 true")
	}

	// 空审批链不可发布
	emptyDef := sampleDefinition()
	emptyDef.ApproverLevels = nil
	noChain, err := svc.CreateWorkflow(ctx, &CreateWorkflowRequest{
		Code: "NOCHAIN", Name: "无审批链", Definition: emptyDef,
	})
	if err != nil {
		t.Fatalf("创建工作流失败: %v", err)
	}
	if _, err := svc.PublishWorkflow(ctx, noChain.ID); !common.IsKind(err, common.KindConfiguration) {
		t.Errorf("空审批链发布期望配置错误, 实际 %v", err)
	}
}

func TestUpdateAndDeleteWorkflow(t *testing.T) {
	ctx := context.Background()
	svc := NewWorkflowService(setupWorkflowServiceTestDB(t))

	created, err := svc.CreateWorkflow(ctx, &CreateWorkflowRequest{
		Code: "UPD", Name: "原名", Definition: sampleDefinition(),
	})
	if err != nil {
		t.Fatalf("创建工作流失败: %v", err)
	}

	newName := "新名"
	updated, err := svc.UpdateWorkflow(ctx, created.ID, &UpdateWorkflowRequest{Name: &newName})
	if err != nil {
		t.Fatalf("更新失败: %v", err)
	}
	if updated.Name != "新名" {
		t.Errorf("名称未更新: %s", updated.Name)
	}

	if err := svc.DeleteWorkflow(ctx, created.ID); err != nil {
		t.Fatalf("删除失败: %v", err)
	}
	if _, err := svc.GetWorkflow(ctx, created.ID); !common.IsKind(err, common.KindNotFound) {
		t.Errorf("删除后查询期望 NotFound, 实际 %v", err)
	}
}

func TestGetWorkflowNotFound(t *testing.T) {
	svc := NewWorkflowService(setupWorkflowServiceTestDB(t))
	_, err := svc.GetWorkflow(context.Background(), "no-such-id")
	if !common.IsKind(err, common.KindNotFound) {
		t.Fatalf("期望 NotFound, 实际 %v", err)
	}
}
