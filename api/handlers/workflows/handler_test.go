package workflows

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"backend/internal/attachment"
	"backend/internal/audit"
	"backend/internal/auth"
	"backend/internal/lookup"
	"backend/internal/sequence"
	"backend/internal/workflow"
	"backend/internal/workflow/instance"
)

// testEnv 完整 HTTP 测试环境：真实服务 + 内存数据库 + 伪造认证
type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
}

// fakeAuthMiddleware 从请求头取身份，代替 JWT 中间件
func fakeAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(auth.ContextUserID, c.GetHeader("X-Test-User"))
		c.Set(auth.ContextUserName, c.GetHeader("X-Test-Name"))
		c.Set(auth.ContextUserEmail, c.GetHeader("X-Test-Email"))
		c.Set(auth.ContextSuperUser, c.GetHeader("X-Test-Super") == "true")
		c.Next()
	}
}

func setupHandlerTest(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err, "打开 sqlite 失败")
	require.NoError(t, db.AutoMigrate(
		&workflow.Workflow{},
		&instance.Instance{},
		&instance.HistoryEntry{},
		&attachment.Attachment{},
		&audit.Log{},
		&lookup.Entry{},
		&sequence.Counter{},
	), "迁移 schema 失败")

	instSvc := instance.NewService(db)
	instSvc.SetLookupProvider(lookup.NewProvider(db))

	wfHandler := NewWorkflowHandler(workflow.NewWorkflowService(db))
	instHandler := NewInstanceHandler(instSvc, audit.NewService(db))
	exprHandler := NewExpressionHandler(lookup.NewProvider(db), sequence.NewGenerator(db))

	router := gin.New()
	api := router.Group("/api")
	api.Use(fakeAuthMiddleware())

	api.GET("/workflows", wfHandler.ListWorkflows)
	api.POST("/workflows", wfHandler.CreateWorkflow)
	api.GET("/workflows/:id", wfHandler.GetWorkflow)
	api.POST("/workflows/:id/publish", wfHandler.PublishWorkflow)

	api.POST("/instances", instHandler.CreateInstance)
	api.GET("/instances/:id", instHandler.GetInstance)
	api.POST("/instances/:id/approve", instHandler.ApproveInstance)
	api.POST("/instances/:id/reject", instHandler.RejectInstance)
	api.GET("/instances/:id/history", instHandler.InstanceHistory)

	api.POST("/expressions/evaluate", exprHandler.Evaluate)
	api.POST("/expressions/check", exprHandler.CheckSyntax)
	api.GET("/expressions/functions", exprHandler.ListFunctions)

	return &testEnv{router: router, db: db}
}

// do 发送一个带身份的 JSON 请求
func (e *testEnv) do(t *testing.T, method, path, userID, userName string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Test-User", userID)
	req.Header.Set("X-Test-Name", userName)
	req.Header.Set("X-Test-Email", userID+"@example.com")

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// dataOf 解出响应的 data 字段
func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func limitOf(v float64) *float64 { return &v }

func purchaseWorkflowBody(code string) map[string]any {
	return map[string]any{
		"code":     code,
		"name":     "采购审批",
		"category": workflow.CategoryFinancial,
		"definition": workflow.WorkflowDefinition{
			Fields: []workflow.Field{
				{ID: "f-1", Name: "vendor", Label: "供应商", Type: workflow.FieldTypeText, Required: true, IsTitle: true, DisplayOrder: 1},
				{ID: "f-2", Name: "amount", Label: "金额", Type: workflow.FieldTypeCurrency, Required: true, IsLimited: true, DisplayOrder: 2},
			},
			ApproverLevels: []workflow.ApproverLevel{
				{ID: "a-1", Level: 1, ApproverID: "u-mgr", ApproverName: "经理", ApproverEmail: "mgr@example.com", AmountLimit: limitOf(1000), DisplayOrder: 1},
				{ID: "a-2", Level: 2, ApproverID: "u-dir", ApproverName: "总监", ApproverEmail: "dir@example.com", IsUnlimited: true, DisplayOrder: 1},
			},
		},
	}
}

// publishWorkflow 建好并发布一个采购审批流，返回定义 ID
// 编码全库唯一，各用例传各自的编码避免互相撞唯一索引
func publishWorkflow(t *testing.T, env *testEnv, code string) string {
	t.Helper()
	w := env.do(t, http.MethodPost, "/api/workflows", "u-admin", "管理员", purchaseWorkflowBody(code))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := dataOf(t, w)["id"].(string)

	w = env.do(t, http.MethodPost, "/api/workflows/"+id+"/publish", "u-admin", "管理员", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return id
}

func TestWorkflowHandler_CreateAndPublish(t *testing.T) {
	env := setupHandlerTest(t)

	t.Run("创建成功返回201且编码大写", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/workflows", "u-admin", "管理员", purchaseWorkflowBody("po"))
		assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		data := dataOf(t, w)
		assert.Equal(t, "PO", data["code"])
		assert.Equal(t, false, data["isPublished"])
		assert.Equal(t, "u-admin", data["createdBy"])
	})

	t.Run("缺少必填字段返回400", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/workflows", "u-admin", "管理员", map[string]any{"name": "没有编码"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("发布后可查到已发布状态", func(t *testing.T) {
		id := publishWorkflow(t, env, "po2")
		w := env.do(t, http.MethodGet, "/api/workflows/"+id, "u-admin", "管理员", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, true, dataOf(t, w)["isPublished"])
	})
}

func TestInstanceHandler_ApprovalFlow(t *testing.T) {
	env := setupHandlerTest(t)
	wfID := publishWorkflow(t, env, "po")

	// 发起并提交
	w := env.do(t, http.MethodPost, "/api/instances", "u-init", "发起人", map[string]any{
		"workflow_id":  wfID,
		"field_values": map[string]any{"vendor": "Acme", "amount": 200},
		"submit":       true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := dataOf(t, w)
	instID := data["id"].(string)
	assert.Equal(t, string(instance.StatusPending), data["status"])
	assert.Equal(t, "u-mgr", data["currentApproverId"])

	t.Run("非当班审批人批准返回422", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/instances/"+instID+"/approve", "u-dir", "总监", ActionBody{Comments: "抢批"})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	})

	t.Run("当班审批人逐级批准到终态", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/instances/"+instID+"/approve", "u-mgr", "经理", ActionBody{Comments: "同意"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "u-dir", dataOf(t, w)["currentApproverId"])

		w = env.do(t, http.MethodPost, "/api/instances/"+instID+"/approve", "u-dir", "总监", ActionBody{Comments: "同意"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, string(instance.StatusApproved), dataOf(t, w)["status"])
	})

	t.Run("历史按时间升序返回两条批准", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/instances/"+instID+"/history", "u-init", "发起人", nil)
		require.Equal(t, http.StatusOK, w.Code)
		var resp struct {
			Data []instance.HistoryEntry `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 2)
		assert.Equal(t, instance.ActionApproved, resp.Data[0].Action)
		assert.Equal(t, 1, resp.Data[0].Level)
		assert.Equal(t, 2, resp.Data[1].Level)
	})

	t.Run("审批记录写入审计日志", func(t *testing.T) {
		var count int64
		require.NoError(t, env.db.Model(&audit.Log{}).
			Where("target_id = ? AND action = ?", instID, "instance.approve").
			Count(&count).Error)
		assert.Equal(t, int64(2), count)
	})
}

func TestInstanceHandler_RejectReturnsTerminal(t *testing.T) {
	env := setupHandlerTest(t)
	wfID := publishWorkflow(t, env, "po")

	w := env.do(t, http.MethodPost, "/api/instances", "u-init", "发起人", map[string]any{
		"workflow_id":  wfID,
		"field_values": map[string]any{"vendor": "Acme", "amount": 80},
		"submit":       true,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	instID := dataOf(t, w)["id"].(string)

	w = env.do(t, http.MethodPost, "/api/instances/"+instID+"/reject", "u-mgr", "经理", ActionBody{Comments: "预算不足"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, string(instance.StatusRejected), dataOf(t, w)["status"])
}

func TestExpressionHandler_Endpoints(t *testing.T) {
	env := setupHandlerTest(t)

	t.Run("求值返回结果", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/expressions/evaluate", "u-1", "张三", EvaluateBody{
			Expression:  "CONCAT(UPPER(vendor), '-', TO_TEXT(SUM(1, 2)))",
			FieldValues: map[string]any{"vendor": "acme"},
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "ACME-3", dataOf(t, w)["result"])
	})

	t.Run("未知函数返回422", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/expressions/evaluate", "u-1", "张三", EvaluateBody{
			Expression: "NO_SUCH_FUNC(1)",
		})
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	})

	t.Run("语法错误返回400", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/expressions/check", "u-1", "张三", CheckSyntaxBody{
			Expression: "SUM(1,",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	})

	t.Run("函数列表非空", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/api/expressions/functions", "u-1", "张三", nil)
		require.Equal(t, http.StatusOK, w.Code)
		funcs, ok := dataOf(t, w)["functions"].([]any)
		require.True(t, ok)
		assert.GreaterOrEqual(t, len(funcs), 60)
	})

	t.Run("CURRENT_USER取自认证身份", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/api/expressions/evaluate", "u-1", "张三", EvaluateBody{
			Expression: "CURRENT_USER()",
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "张三", dataOf(t, w)["result"])
	})
}
