package rollup

import (
	"sort"

	"cityetl/records"
)

// LabelAmount агрегат одной подписи: сумма всех записей с этой подписью
type LabelAmount struct {
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// RankedGroup группа рейтинга с долей от суммы всех положительных групп
type RankedGroup struct {
	Label      string  `json:"label"`
	Amount     float64 `json:"amount"`
	Percentage float64 `json:"percentage"`
}

// GroupSet верхние и нижние группы одного потока с общей суммой
type GroupSet struct {
	Total        float64       `json:"total"`
	TopGroups    []RankedGroup `json:"topGroups"`
	BottomGroups []RankedGroup `json:"bottomGroups"`
}

// AggregateFactsByLabel сворачивает канонические записи по подписи, суммируя
// суммы. Пустая подпись заменяется описанием строки; записи без того и
// другого пропускаются. Порядок — порядок первого появления подписи.
func AggregateFactsByLabel(facts []records.Fact) []LabelAmount {
	totals := map[string]int{}
	var items []LabelAmount

	for _, fact := range facts {
		label := fact.Label
		if label == "" {
			label = fact.DimensionOr("line_description", "")
		}
		if label == "" {
			continue
		}
		if idx, ok := totals[label]; ok {
			items[idx].Amount += fact.Amount
			continue
		}
		totals[label] = len(items)
		items = append(items, LabelAmount{Label: label, Amount: fact.Amount})
	}
	return items
}

// BuildTopBottomGroups строит верхние и нижние k групп из агрегатов.
// Учитываются только строго положительные суммы. Нижние группы исключают
// подписи, уже попавшие в верхние, и отсортированы по возрастанию.
// Доля каждой группы считается от суммы всех положительных агрегатов.
// k усекается до числа доступных групп.
func BuildTopBottomGroups(items []LabelAmount, k int) GroupSet {
	positive := make([]LabelAmount, 0, len(items))
	total := 0.0
	for _, item := range items {
		if item.Amount > 0 {
			positive = append(positive, item)
			total += item.Amount
		}
	}

	sort.SliceStable(positive, func(i, j int) bool {
		return positive[i].Amount > positive[j].Amount
	})

	if k > len(positive) {
		k = len(positive)
	}
	if k < 0 {
		k = 0
	}

	top := positive[:k]
	topLabels := make(map[string]struct{}, len(top))
	for _, group := range top {
		topLabels[group.Label] = struct{}{}
	}

	var bottom []LabelAmount
	for _, group := range positive[len(positive)-k:] {
		if _, taken := topLabels[group.Label]; taken {
			continue
		}
		bottom = append(bottom, group)
	}
	sort.SliceStable(bottom, func(i, j int) bool {
		return bottom[i].Amount < bottom[j].Amount
	})

	return GroupSet{
		Total:        total,
		TopGroups:    rankGroups(top, total),
		BottomGroups: rankGroups(bottom, total),
	}
}

func rankGroups(groups []LabelAmount, total float64) []RankedGroup {
	ranked := make([]RankedGroup, 0, len(groups))
	for _, group := range groups {
		percentage := 0.0
		if total > 0 {
			percentage = group.Amount / total * 100
		}
		ranked = append(ranked, RankedGroup{Label: group.Label, Amount: group.Amount, Percentage: percentage})
	}
	return ranked
}
