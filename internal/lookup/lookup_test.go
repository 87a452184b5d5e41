package lookup

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"

	"backend/internal/common"
)

func setupLookupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:lookup_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("打开 sqlite 失败: %v", err)
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		t.Fatalf("迁移 schema 失败: %v", err)
	}
	return db
}

func TestUpsertAndLookup(t *testing.T) {
	db := setupLookupTestDB(t)
	p := NewProvider(db)
	ctx := context.Background()

	if err := p.Upsert(ctx, "departments", "D01", "采购部"); err != nil {
		t.Fatalf("写入条目失败: %v", err)
	}

	got, err := p.Lookup("departments", "D01")
	if err != nil {
		t.Fatalf("查找失败: %v", err)
	}
	if got != "采购部" {
		t.Errorf("查找结果不符，得到 %v", got)
	}

	// 覆盖写
	if err := p.Upsert(ctx, "departments", "D01", "财务部"); err != nil {
		t.Fatalf("覆盖条目失败: %v", err)
	}
	got, err = p.Lookup("departments", "D01")
	if err != nil {
		t.Fatalf("查找失败: %v", err)
	}
	if got != "财务部" {
		t.Errorf("覆盖后应返回新值，得到 %v", got)
	}
}

func TestLookupMissReturnsNotFound(t *testing.T) {
	db := setupLookupTestDB(t)
	p := NewProvider(db)

	_, err := p.Lookup("departments", "NOPE")
	if err == nil {
		t.Fatal("未命中应返回错误")
	}
	if !common.IsKind(err, common.KindNotFound) {
		t.Errorf("错误分类应为 NOT_FOUND，得到 %s", common.KindOf(err))
	}
}

func TestLookupSourcesAreIsolated(t *testing.T) {
	db := setupLookupTestDB(t)
	p := NewProvider(db)
	ctx := context.Background()

	if err := p.Upsert(ctx, "departments", "K", "部门值"); err != nil {
		t.Fatalf("写入条目失败: %v", err)
	}
	if err := p.Upsert(ctx, "cost_centers", "K", "成本中心值"); err != nil {
		t.Fatalf("写入条目失败: %v", err)
	}

	got, err := p.Lookup("cost_centers", "K")
	if err != nil {
		t.Fatalf("查找失败: %v", err)
	}
	if got != "成本中心值" {
		t.Errorf("同键不同源应互不干扰，得到 %v", got)
	}
}
