package engine

import (
	"fmt"
	"strings"
)

type TaskType string

const (
	TaskDaily    TaskType = "Daily"
	TaskWeekly   TaskType = "Weekly"
	TaskSemester TaskType = "Semester"
	TaskCustom   TaskType = "Custom"
)

func (t TaskType) IsValid() bool {
	switch t {
	case TaskDaily, TaskWeekly, TaskSemester, TaskCustom:
		return true
	default:
		return false
	}
}

func ParseTaskType(input string) (TaskType, error) {
	switch strings.TrimSpace(strings.ToLower(input)) {
	case "daily":
		return TaskDaily, nil
	case "weekly":
		return TaskWeekly, nil
	case "semester":
		return TaskSemester, nil
	case "custom":
		return TaskCustom, nil
	default:
		return "", fmt.Errorf("invalid task type: %q", input)
	}
}

// TaskCategory buckets tasks for the ledger's progress counters.
type TaskCategory string

const (
	CategoryAcademic TaskCategory = "Academic"
	CategorySocial   TaskCategory = "Social"
	CategoryPersonal TaskCategory = "Personal"
)

// CategoryForTaskType maps a task type to its counter bucket.
func CategoryForTaskType(t TaskType) TaskCategory {
	switch t {
	case TaskWeekly:
		return CategorySocial
	case TaskCustom:
		return CategoryPersonal
	default:
		return CategoryAcademic
	}
}

type AchievementType string

const (
	AchievementSystem AchievementType = "System"
	AchievementCustom AchievementType = "Custom"
)

type RewardType string

const (
	WithReward RewardType = "WithReward"
	NoReward   RewardType = "NoReward"
)

type ProgressMode string

const (
	ProgressMilestone   ProgressMode = "Milestone"
	ProgressIncremental ProgressMode = "Incremental"
)

type ConditionType string

const (
	CondTaskCompleted ConditionType = "task-completed"
	CondTaskTypeCount ConditionType = "task-type-completed"
	CondLevel         ConditionType = "level"
	CondPride         ConditionType = "pride"
	CondCoins         ConditionType = "coins"
	CondCounter       ConditionType = "custom-counter"
)

// CounterChannel is the typed tag for custom-counter conditions, replacing
// the loose string metadata matching the condition filter used to rely on.
type CounterChannel string

const (
	ChannelNone         CounterChannel = ""
	ChannelTaskProgress CounterChannel = "task-progress"
)

type ItemType string

const (
	ItemPhysical ItemType = "Physical"
	ItemProp     ItemType = "Prop"
	ItemLuckyBag ItemType = "LuckyBag"
)

func (t ItemType) IsValid() bool {
	switch t {
	case ItemPhysical, ItemProp, ItemLuckyBag:
		return true
	default:
		return false
	}
}

type PropEffectType string

const (
	EffectNone              PropEffectType = "None"
	EffectRestDay           PropEffectType = "RestDay"
	EffectForgivenessCoupon PropEffectType = "ForgivenessCoupon"
	EffectDoubleExpCard     PropEffectType = "DoubleExpCard"
)

type UsageStatus string

const (
	StatusUnused   UsageStatus = "Unused"
	StatusActive   UsageStatus = "Active"
	StatusConsumed UsageStatus = "Consumed"
	StatusExpired  UsageStatus = "Expired"
)

type LuckyRewardType string

const (
	LuckyCoins    LuckyRewardType = "Coins"
	LuckyGrowth   LuckyRewardType = "Growth"
	LuckyShopItem LuckyRewardType = "ShopItem"
)
