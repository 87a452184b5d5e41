package workflow

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"
)

// FieldType 字段类型枚举
type FieldType string

const (
	FieldTypeText          FieldType = "TEXT"
	FieldTypeTextarea      FieldType = "TEXTAREA"
	FieldTypeNumber        FieldType = "NUMBER"
	FieldTypeCurrency      FieldType = "CURRENCY"
	FieldTypeDate          FieldType = "DATE"
	FieldTypeDatetime      FieldType = "DATETIME"
	FieldTypeSelect        FieldType = "SELECT"
	FieldTypeMultiselect   FieldType = "MULTISELECT"
	FieldTypeRadio         FieldType = "RADIO"
	FieldTypeCheckboxGroup FieldType = "CHECKBOX_GROUP"
	FieldTypeFile          FieldType = "FILE"
	FieldTypeTable         FieldType = "TABLE"
	FieldTypeAccordion     FieldType = "ACCORDION"
	FieldTypeCollapsible   FieldType = "COLLAPSIBLE"
	FieldTypeSQLSelect     FieldType = "SQL_SELECT"
	FieldTypeSQLTable      FieldType = "SQL_TABLE"
)

// validFieldTypes 合法字段类型集合
var validFieldTypes = map[FieldType]bool{
	FieldTypeText: true, FieldTypeTextarea: true, FieldTypeNumber: true,
	FieldTypeCurrency: true, FieldTypeDate: true, FieldTypeDatetime: true,
	FieldTypeSelect: true, FieldTypeMultiselect: true, FieldTypeRadio: true,
	FieldTypeCheckboxGroup: true, FieldTypeFile: true, FieldTypeTable: true,
	FieldTypeAccordion: true, FieldTypeCollapsible: true,
	FieldTypeSQLSelect: true, FieldTypeSQLTable: true,
}

// IsContainer 该类型能否作为子字段的父容器
func (t FieldType) IsContainer() bool {
	return t == FieldTypeAccordion || t == FieldTypeCollapsible
}

// Category 工作流类别
type Category string

const (
	CategoryFinancial    Category = "FINANCIAL"     // 金额驱动审批升级
	CategoryNonFinancial Category = "NON_FINANCIAL" // 不做金额检查
)

// FieldOption 选择类字段的候选项
type FieldOption struct {
	Value        string `json:"value"`
	Label        string `json:"label"`
	DisplayOrder int    `json:"displayOrder"`
}

// Field 表单字段定义
type Field struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"` // 定义内唯一，表达式中以此名引用
	Label string    `json:"label"`
	Type  FieldType `json:"type"`

	// 行为开关
	Required  bool `json:"required"`
	ReadOnly  bool `json:"readOnly"`
	Hidden    bool `json:"hidden"`
	IsUnique  bool `json:"isUnique"`  // 跨实例值唯一
	IsTitle   bool `json:"isTitle"`   // 参与实例标题拼接
	IsLimited bool `json:"isLimited"` // 金额字段，驱动审批限额

	// 默认值表达式
	DefaultValueExpression string `json:"defaultValueExpression,omitempty"`

	// 层级与布局
	ParentFieldID string `json:"parentFieldId,omitempty"` // 仅允许指向 ACCORDION/COLLAPSIBLE
	FieldGroupID  string `json:"fieldGroupId,omitempty"`
	ScreenID      string `json:"screenId,omitempty"`
	ColumnSpan    int    `json:"columnSpan,omitempty"`
	DisplayOrder  int    `json:"displayOrder"`

	// 展示与校验
	Placeholder       string        `json:"placeholder,omitempty"`
	Tooltip           string        `json:"tooltip,omitempty"`
	MinLength         int           `json:"minLength,omitempty"`
	MaxLength         int           `json:"maxLength,omitempty"`
	ValidationRegex   string        `json:"validationRegex,omitempty"`
	ValidationMessage string        `json:"validationMessage,omitempty"`
	Options           []FieldOption `json:"options,omitempty"`
}

// FieldGroup 字段分组
type FieldGroup struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Collapsible  bool   `json:"collapsible"`
	ScreenID     string `json:"screenId,omitempty"`
	DisplayOrder int    `json:"displayOrder"`
}

// Screen 表单页
type Screen struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	DisplayOrder int    `json:"displayOrder"`
}

// ApproverLevel 审批链条目：一个级别可有多个并行审批人
type ApproverLevel struct {
	ID            string   `json:"id"`
	Level         int      `json:"level"` // 从 1 起
	ApproverID    string   `json:"approverId"`
	ApproverName  string   `json:"approverName"`
	ApproverEmail string   `json:"approverEmail"`
	AmountLimit   *float64 `json:"amountLimit,omitempty"` // nil 且非无限额 = 0
	IsUnlimited   bool     `json:"isUnlimited"`
	CanEscalate   bool     `json:"canEscalate"`
	RequireComment    bool `json:"requireComment"`
	EmailNotification bool `json:"emailNotification"`
	DisplayOrder      int  `json:"displayOrder"` // 同级并行审批人的顺序
}

// Limit 审批人金额上限，无限额返回 (0, true)
func (a ApproverLevel) Limit() (limit float64, unlimited bool) {
	if a.IsUnlimited {
		return 0, true
	}
	if a.AmountLimit != nil {
		return *a.AmountLimit, false
	}
	return 0, false
}

// CanApprove 该审批人是否有权限批准指定金额
func (a ApproverLevel) CanApprove(amount float64) bool {
	limit, unlimited := a.Limit()
	return unlimited || amount <= limit
}

// WorkflowDefinition 工作流定义结构体（整棵定义树存为一个 JSONB 列）
type WorkflowDefinition struct {
	Fields         []Field         `json:"fields,omitempty"`
	FieldGroups    []FieldGroup    `json:"fieldGroups,omitempty"`
	Screens        []Screen        `json:"screens,omitempty"`
	ApproverLevels []ApproverLevel `json:"approverLevels,omitempty"`

	Category                    Category `json:"category,omitempty"`
	CommentsMandatory           bool     `json:"commentsMandatory"`
	CommentsMandatoryOnReject   bool     `json:"commentsMandatoryOnReject"`
	CommentsMandatoryOnEscalate bool     `json:"commentsMandatoryOnEscalate"`
}

// Value 实现 driver.Valuer 接口，用于 GORM 存储 JSONB
func (w WorkflowDefinition) Value() (driver.Value, error) {
	return json.Marshal(w)
}

// Scan 实现 sql.Scanner 接口，用于 GORM 读取 JSONB
func (w *WorkflowDefinition) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, w)
	case string:
		return json.Unmarshal([]byte(v), w)
	default:
		return errors.New("type assertion to []byte failed")
	}
}

// FieldByName 按名称查字段
func (w *WorkflowDefinition) FieldByName(name string) (*Field, bool) {
	for i := range w.Fields {
		if w.Fields[i].Name == name {
			return &w.Fields[i], true
		}
	}
	return nil, false
}

// FieldByID 按 ID 查字段
func (w *WorkflowDefinition) FieldByID(id string) (*Field, bool) {
	for i := range w.Fields {
		if w.Fields[i].ID == id {
			return &w.Fields[i], true
		}
	}
	return nil, false
}

// TitleFields 标题字段，按 DisplayOrder 排序
func (w *WorkflowDefinition) TitleFields() []Field {
	var fields []Field
	for _, f := range w.Fields {
		if f.IsTitle {
			fields = append(fields, f)
		}
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].DisplayOrder < fields[j].DisplayOrder
	})
	return fields
}

// LimitedField 金额字段（最多一个，由校验保证）
func (w *WorkflowDefinition) LimitedField() (*Field, bool) {
	for i := range w.Fields {
		if w.Fields[i].IsLimited {
			return &w.Fields[i], true
		}
	}
	return nil, false
}

// IsFinancial 是否金额驱动
func (w *WorkflowDefinition) IsFinancial() bool {
	return w.Category == CategoryFinancial
}

// Workflow 审批流定义聚合
type Workflow struct {
	ID          string   `json:"id" gorm:"primaryKey;type:uuid"`
	Code        string   `json:"code" gorm:"size:50;not null;uniqueIndex"` // 参考号前缀
	Name        string   `json:"name" gorm:"size:255;not null"`
	Description string   `json:"description" gorm:"type:text"`
	Category    Category `json:"category" gorm:"size:50;not null;default:NON_FINANCIAL"`

	// 定义（结构化）
	Definition WorkflowDefinition `json:"definition" gorm:"type:jsonb;not null"`

	// 状态
	IsPublished bool `json:"isPublished" gorm:"default:false"` // 发布后才能发起实例
	IsActive    bool `json:"isActive" gorm:"default:true"`

	// 创建人
	CreatedBy string `json:"createdBy" gorm:"size:100"`

	// 时间戳
	CreatedAt time.Time  `json:"createdAt" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time  `json:"updatedAt" gorm:"not null;autoUpdateTime"`
	DeletedAt *time.Time `json:"deletedAt,omitempty" gorm:"index"`
}

// TableName 指定表名
func (Workflow) TableName() string {
	return "workflows"
}

// String 调试输出
func (w *Workflow) String() string {
	return fmt.Sprintf("Workflow{Code: %s, Name: %s, Published: %v}", w.Code, w.Name, w.IsPublished)
}
