package instance

import (
	"time"

	"gorm.io/datatypes"
)

// Status 实例状态枚举
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusEscalated Status = "ESCALATED" // 仅出现在历史中，实例本身停留 PENDING
	StatusRecalled  Status = "RECALLED"
	StatusCancelled Status = "CANCELLED"
	StatusOnHold    Status = "ON_HOLD"
)

// IsTerminal 是否终态（不再接受任何审批动作）
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// Action 历史动作枚举
type Action string

const (
	ActionSubmitted   Action = "SUBMITTED"
	ActionApproved    Action = "APPROVED"
	ActionRejected    Action = "REJECTED"
	ActionEscalated   Action = "ESCALATED"
	ActionRecalled    Action = "RECALLED"
	ActionCancelled   Action = "CANCELLED"
	ActionResubmitted Action = "RESUBMITTED"
)

// ActionSource 动作来源
type ActionSource string

const (
	SourceUser   ActionSource = "USER"
	SourceSystem ActionSource = "SYSTEM" // 金额自动升级等系统动作
)

// Instance 审批流实例
type Instance struct {
	ID         string `json:"id" gorm:"primaryKey;type:uuid"`
	WorkflowID string `json:"workflowId" gorm:"type:uuid;not null;index"`

	// 参考号：CODE-时间戳-随机，全局唯一
	ReferenceNumber string `json:"referenceNumber" gorm:"size:100;not null;uniqueIndex"`
	// 标题：由 isTitle 字段值按 DisplayOrder 以 "_" 拼接
	Title string `json:"title" gorm:"size:500"`

	Status Status `json:"status" gorm:"size:50;not null;default:DRAFT;index"`

	// 发起人
	InitiatorID    string `json:"initiatorId" gorm:"size:100;not null;index"`
	InitiatorName  string `json:"initiatorName" gorm:"size:255"`
	InitiatorEmail string `json:"initiatorEmail" gorm:"size:255"`

	// 审批位置（仅 PENDING 有意义）
	CurrentLevel         int `json:"currentLevel" gorm:"default:0"`
	CurrentApproverOrder int `json:"currentApproverOrder" gorm:"default:0"`
	// 当班审批人冗余，供待办查询
	CurrentApproverID    string `json:"currentApproverId" gorm:"size:100;index"`
	CurrentApproverName  string `json:"currentApproverName" gorm:"size:255"`
	CurrentApproverEmail string `json:"currentApproverEmail" gorm:"size:255"`

	// 金额：提交时从 isLimited 字段捕获，非金额类为 nil
	Amount *float64 `json:"amount,omitempty"`

	// 表单数据
	FieldValues datatypes.JSONMap `json:"fieldValues" gorm:"type:jsonb"`

	// 乐观锁
	Version int `json:"version" gorm:"not null;default:0"`

	IsActive bool `json:"isActive" gorm:"default:true"`

	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`

	CreatedAt time.Time `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updatedAt" gorm:"not null;autoUpdateTime"`
}

// TableName 指定表名
func (Instance) TableName() string {
	return "workflow_instances"
}

// HistoryEntry 审批历史，只追加不修改
type HistoryEntry struct {
	ID         string `json:"id" gorm:"primaryKey;type:uuid"`
	InstanceID string `json:"instanceId" gorm:"type:uuid;not null;index"`

	ApproverID    string `json:"approverId" gorm:"size:100"`
	ApproverName  string `json:"approverName" gorm:"size:255"`
	ApproverEmail string `json:"approverEmail" gorm:"size:255"`

	Level        int          `json:"level"`
	Action       Action       `json:"action" gorm:"size:50;not null"`
	ActionSource ActionSource `json:"actionSource" gorm:"size:20;not null;default:USER"`
	Comments     string       `json:"comments" gorm:"type:text"`

	ActionDate time.Time `json:"actionDate" gorm:"not null;autoCreateTime;index"`
}

// TableName 指定表名
func (HistoryEntry) TableName() string {
	return "workflow_approval_history"
}
