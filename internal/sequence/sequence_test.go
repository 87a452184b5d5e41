package sequence

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupSequenceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:sequence_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	if err := db.AutoMigrate(&Counter{}); err != nil {
		t.Fatalf("迁移 schema 失败: %v", err)
	}
	return db
}

func TestNextIncrementsPerPrefix(t *testing.T) {
	db := setupSequenceTestDB(t)
	gen := NewGenerator(db)

	first, err := gen.Next("INV")
	if err != nil {
		t.Fatalf("取号失败: %v", err)
	}
	if first != "INV-000001" {
		t.Errorf("首个序列号应为 INV-000001，得到 %s", first)
	}

	second, err := gen.Next("INV")
	if err != nil {
		t.Fatalf("取号失败: %v", err)
	}
	if second != "INV-000002" {
		t.Errorf("第二个序列号应为 INV-000002，得到 %s", second)
	}

	// 不同前缀各自独立计数
	other, err := gen.Next("PO")
	if err != nil {
		t.Fatalf("取号失败: %v", err)
	}
	if other != "PO-000001" {
		t.Errorf("新前缀应从 1 开始，得到 %s", other)
	}
}

func TestNextEmptyPrefixFallsBack(t *testing.T) {
	db := setupSequenceTestDB(t)
	gen := NewGenerator(db)

	got, err := gen.Next("")
	if err != nil {
		t.Fatalf("取号失败: %v", err)
	}
	if !strings.HasPrefix(got, "SEQ-") {
		t.Errorf("空前缀应回退为 SEQ，得到 %s", got)
	}
}

func TestReferenceFormat(t *testing.T) {
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	ref := Reference("PO", now, "")
	if !strings.HasPrefix(ref, "PO-20240315103000-") {
		t.Errorf("参考号前缀不符: %s", ref)
	}
	parts := strings.Split(ref, "-")
	if len(parts) != 3 || len(parts[2]) != 4 {
		t.Errorf("参考号应为 CODE-时间戳-4 位随机数: %s", ref)
	}

	custom := Reference("PO", now, "20060102")
	if !strings.HasPrefix(custom, "PO-20240315-") {
		t.Errorf("自定义时间格式未生效: %s", custom)
	}
}
