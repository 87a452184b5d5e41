// Package approval 审批链解析：纯函数，不触数据库
// 输入审批链定义 + 当前位置 + 金额，输出下一个位置与需要补记的系统升级动作
package approval

import (
	"sort"

	"backend/internal/workflow"
)

// Result 推进结果状态
type Result string

const (
	ResultPending  Result = "PENDING"  // 仍需审批，停在 Level/Order
	ResultApproved Result = "APPROVED" // 审批链走完，实例终态通过
)

// Escalation 一次金额自动升级记录（整级被跳过）
// ToLevel 为 0 表示链上已无更高级别
type Escalation struct {
	FromLevel int
	ToLevel   int
	Approver  workflow.ApproverLevel // 被跳过级别的当班审批人
}

// Advance 推进结果
type Advance struct {
	Result      Result
	Level       int // Result 为 PENDING 时的停留级别
	Order       int // 级别内并行审批人游标（从 0 起）
	Escalations []Escalation
}

// EntriesAt 指定级别的条目，按 DisplayOrder 排序
func EntriesAt(levels []workflow.ApproverLevel, level int) []workflow.ApproverLevel {
	var entries []workflow.ApproverLevel
	for _, a := range levels {
		if a.Level == level {
			entries = append(entries, a)
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DisplayOrder < entries[j].DisplayOrder
	})
	return entries
}

// MinLevel 最小级别，空链返回 (0, false)
func MinLevel(levels []workflow.ApproverLevel) (int, bool) {
	found := false
	min := 0
	for _, a := range levels {
		if !found || a.Level < min {
			min = a.Level
			found = true
		}
	}
	return min, found
}

// MaxLevel 最大级别，空链返回 (0, false)
func MaxLevel(levels []workflow.ApproverLevel) (int, bool) {
	found := false
	max := 0
	for _, a := range levels {
		if !found || a.Level > max {
			max = a.Level
			found = true
		}
	}
	return max, found
}

// NextLevelAfter 严格大于 after 的最小有条目级别
func NextLevelAfter(levels []workflow.ApproverLevel, after int) (int, bool) {
	found := false
	next := 0
	for _, a := range levels {
		if a.Level <= after {
			continue
		}
		if !found || a.Level < next {
			next = a.Level
			found = true
		}
	}
	return next, found
}

// Due 当前应审批的条目
func Due(levels []workflow.ApproverLevel, level, order int) (workflow.ApproverLevel, bool) {
	entries := EntriesAt(levels, level)
	if order < 0 || order >= len(entries) {
		return workflow.ApproverLevel{}, false
	}
	return entries[order], true
}

// RequiredApprovals 级别内必须全部批准的并行审批人数
func RequiredApprovals(levels []workflow.ApproverLevel, level int) int {
	return len(EntriesAt(levels, level))
}

// AfterApproval 一次人工批准之后的推进
//
// 规则：
//  1. 刚批准的审批人自身限额不足 → 其批准照记，但本级剩余并行审批人整体跳过，
//     记一条系统升级，直接升到下一级；
//  2. 同级还有未批准的并行审批人 → 停在本级，游标后移；
//  3. 本级批完 → 进入严格更高的下一个有条目级别；没有更高级别 → APPROVED；
//  4. 新位置上的审批人限额不足 → 跳过其整个级别并记一条系统升级，
//     继续向上找，直到遇到有权限的审批人或链走完（走完 → APPROVED）。
//
// amount 为 nil 或非金额类时不做限额检查。
func AfterApproval(levels []workflow.ApproverLevel, level, order int, amount *float64, financial bool) Advance {
	limited := financial && amount != nil

	// 超限批准：整级升级
	if limited {
		if actor, ok := Due(levels, level, order); ok && !actor.CanApprove(*amount) {
			next, hasNext := NextLevelAfter(levels, level)
			if !hasNext {
				return Advance{
					Result:      ResultApproved,
					Escalations: []Escalation{{FromLevel: level, Approver: actor}},
				}
			}
			adv := Advance{
				Result: ResultPending, Level: next, Order: 0,
				Escalations: []Escalation{{FromLevel: level, ToLevel: next, Approver: actor}},
			}
			return escalatePastUnauthorized(levels, adv, *amount)
		}
	}

	// 并行审批：同级下一位
	entries := EntriesAt(levels, level)
	if order+1 < len(entries) {
		adv := Advance{Result: ResultPending, Level: level, Order: order + 1}
		if limited {
			return escalatePastUnauthorized(levels, adv, *amount)
		}
		return adv
	}

	// 本级完成，进入下一级
	next, ok := NextLevelAfter(levels, level)
	if !ok {
		return Advance{Result: ResultApproved}
	}
	adv := Advance{Result: ResultPending, Level: next, Order: 0}
	if limited {
		return escalatePastUnauthorized(levels, adv, *amount)
	}
	return adv
}

// EntryLevel 提交时的入链位置：最小级别、游标 0
// 入链不做限额检查，升级只发生在审批动作之后
func EntryLevel(levels []workflow.ApproverLevel) (Advance, bool) {
	min, ok := MinLevel(levels)
	if !ok {
		return Advance{}, false
	}
	return Advance{Result: ResultPending, Level: min, Order: 0}, true
}

// escalatePastUnauthorized 待批位置上的审批人限额不足时整级跳过
// 每跳过一级记一条升级，链走完则整单通过
func escalatePastUnauthorized(levels []workflow.ApproverLevel, adv Advance, amount float64) Advance {
	for {
		due, ok := Due(levels, adv.Level, adv.Order)
		if !ok {
			return Advance{Result: ResultApproved, Escalations: adv.Escalations}
		}
		if due.CanApprove(amount) {
			return adv
		}
		next, ok := NextLevelAfter(levels, adv.Level)
		if !ok {
			// 最高级别也无权限：链走完，按通过处理
			adv.Escalations = append(adv.Escalations, Escalation{FromLevel: adv.Level, Approver: due})
			return Advance{Result: ResultApproved, Escalations: adv.Escalations}
		}
		adv.Escalations = append(adv.Escalations, Escalation{FromLevel: adv.Level, ToLevel: next, Approver: due})
		adv.Level = next
		adv.Order = 0
	}
}
