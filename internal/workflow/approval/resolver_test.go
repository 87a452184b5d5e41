package approval

import (
	"testing"

	"backend/internal/workflow"
)

func amt(v float64) *float64 { return &v }

func entry(level int, id string, limit *float64, unlimited bool, order int) workflow.ApproverLevel {
	return workflow.ApproverLevel{
		ID: id, Level: level, ApproverID: id,
		AmountLimit: limit, IsUnlimited: unlimited, DisplayOrder: order,
	}
}

// 三级链：限额 100 / 500 / 无限
func threeLevelChain() []workflow.ApproverLevel {
	return []workflow.ApproverLevel{
		entry(1, "lvl1", amt(100), false, 1),
		entry(2, "lvl2", amt(500), false, 1),
		entry(3, "lvl3", nil, true, 1),
	}
}

func TestEntriesAtSortedByDisplayOrder(t *testing.T) {
	levels := []workflow.ApproverLevel{
		entry(1, "b", nil, true, 2),
		entry(1, "a", nil, true, 1),
		entry(2, "c", nil, true, 1),
	}
	entries := EntriesAt(levels, 1)
	if len(entries) != 2 || entries[0].ApproverID != "a" || entries[1].ApproverID != "b" {
		t.Fatalf("级别 1 条目排序不正确: %+v", entries)
	}
	if RequiredApprovals(levels, 1) != 2 {
		t.Errorf("级别 1 应有 2 个并行审批人")
	}
}

func TestLevelNavigation(t *testing.T) {
	levels := []workflow.ApproverLevel{
		entry(2, "a", nil, true, 1),
		entry(5, "b", nil, true, 1),
		entry(9, "c", nil, true, 1),
	}
	if min, ok := MinLevel(levels); !ok || min != 2 {
		t.Errorf("最小级别应为 2, 实际 %d", min)
	}
	if max, ok := MaxLevel(levels); !ok || max != 9 {
		t.Errorf("最大级别应为 9, 实际 %d", max)
	}
	// 级别不连续时取严格更大的最小级别
	if next, ok := NextLevelAfter(levels, 2); !ok || next != 5 {
		t.Errorf("级别 2 之后应为 5, 实际 %d", next)
	}
	if _, ok := NextLevelAfter(levels, 9); ok {
		t.Error("级别 9 之后不应有级别")
	}
	if _, ok := MinLevel(nil); ok {
		t.Error("空链不应有最小级别")
	}
}

func TestEntryLevel(t *testing.T) {
	adv, ok := EntryLevel(threeLevelChain())
	if !ok {
		t.Fatal("入链失败")
	}
	if adv.Level != 1 || adv.Order != 0 || adv.Result != ResultPending {
		t.Errorf("入链位置应为级别 1 游标 0: %+v", adv)
	}
	// 入链不检查限额：金额再大也停在最小级别
	if _, ok := EntryLevel(nil); ok {
		t.Error("空链不应可入链")
	}
}

func TestParallelLevelAdvance(t *testing.T) {
	levels := []workflow.ApproverLevel{
		entry(1, "a", nil, true, 1),
		entry(1, "b", nil, true, 2),
		entry(2, "c", nil, true, 1),
	}

	// 第一位批准后停在本级第二位
	adv := AfterApproval(levels, 1, 0, nil, false)
	if adv.Result != ResultPending || adv.Level != 1 || adv.Order != 1 {
		t.Fatalf("并行级别未批完不应推进: %+v", adv)
	}

	// 第二位批准后进入级别 2
	adv = AfterApproval(levels, 1, 1, nil, false)
	if adv.Result != ResultPending || adv.Level != 2 || adv.Order != 0 {
		t.Fatalf("并行级别批完应进入下一级: %+v", adv)
	}

	// 级别 2 批准后整单通过
	adv = AfterApproval(levels, 2, 0, nil, false)
	if adv.Result != ResultApproved {
		t.Fatalf("最后一级批完应为 APPROVED: %+v", adv)
	}
}

// 金额 1000 超过级别 1(100) 与级别 2(500)：
// 级别 1 的人工批准之后连跳两级，落在级别 3，产生两条升级记录
func TestAmountCascade(t *testing.T) {
	adv := AfterApproval(threeLevelChain(), 1, 0, amt(1000), true)
	if adv.Result != ResultPending || adv.Level != 3 || adv.Order != 0 {
		t.Fatalf("应停在级别 3: %+v", adv)
	}
	if len(adv.Escalations) != 2 {
		t.Fatalf("应产生 2 条升级记录, 实际 %d: %+v", len(adv.Escalations), adv.Escalations)
	}
	if adv.Escalations[0].FromLevel != 1 || adv.Escalations[0].ToLevel != 2 {
		t.Errorf("第一条升级应为 1→2: %+v", adv.Escalations[0])
	}
	if adv.Escalations[1].FromLevel != 2 || adv.Escalations[1].ToLevel != 3 {
		t.Errorf("第二条升级应为 2→3: %+v", adv.Escalations[1])
	}
}

// 金额在限额内时不升级
func TestNoCascadeWithinLimit(t *testing.T) {
	adv := AfterApproval(threeLevelChain(), 1, 0, amt(50), true)
	if adv.Result != ResultPending || adv.Level != 2 || len(adv.Escalations) != 0 {
		t.Fatalf("限额内不应升级: %+v", adv)
	}
}

// 非金额类工作流忽略限额
func TestNonFinancialIgnoresLimits(t *testing.T) {
	adv := AfterApproval(threeLevelChain(), 1, 0, amt(99999), false)
	if adv.Result != ResultPending || adv.Level != 2 || len(adv.Escalations) != 0 {
		t.Fatalf("非金额类不应做限额检查: %+v", adv)
	}
}

// 最高级别也无权限：链走完按通过处理
func TestCascadePastTopApproves(t *testing.T) {
	levels := []workflow.ApproverLevel{
		entry(1, "lvl1", amt(100), false, 1),
		entry(2, "lvl2", amt(500), false, 1),
	}
	adv := AfterApproval(levels, 1, 0, amt(1000), true)
	if adv.Result != ResultApproved {
		t.Fatalf("链走完应为 APPROVED: %+v", adv)
	}
	if len(adv.Escalations) != 2 {
		t.Fatalf("应产生 2 条升级记录: %+v", adv.Escalations)
	}
}

// 并行级别内每个审批人独立做限额检查：
// 下一位并行审批人超限时跳过本级剩余部分
func TestParallelOverLimitSkipsRemainder(t *testing.T) {
	levels := []workflow.ApproverLevel{
		entry(1, "a", nil, true, 1),
		entry(1, "b", amt(100), false, 2),
		entry(2, "c", nil, true, 1),
	}
	adv := AfterApproval(levels, 1, 0, amt(1000), true)
	if adv.Result != ResultPending || adv.Level != 2 {
		t.Fatalf("并行候选人超限应跳过整级剩余: %+v", adv)
	}
	if len(adv.Escalations) != 1 || adv.Escalations[0].Approver.ApproverID != "b" {
		t.Fatalf("应记录被跳过的审批人 b: %+v", adv.Escalations)
	}
}

func TestDue(t *testing.T) {
	levels := threeLevelChain()
	due, ok := Due(levels, 1, 0)
	if !ok || due.ApproverID != "lvl1" {
		t.Fatalf("级别 1 当班审批人不正确: %+v", due)
	}
	if _, ok := Due(levels, 1, 1); ok {
		t.Error("游标越界不应命中")
	}
	if _, ok := Due(levels, 7, 0); ok {
		t.Error("不存在的级别不应命中")
	}
}
