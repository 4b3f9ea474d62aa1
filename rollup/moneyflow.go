package rollup

import (
	"time"

	"cityetl/extract"
	"cityetl/records"
)

// Число групп по умолчанию в сводке денежных потоков
const MoneyFlowGroupLimit = 7

// Balance баланс года: доходы минус расходы
type Balance struct {
	Amount              float64 `json:"amount"`
	IsSurplus           bool    `json:"isSurplus"`
	PercentageOfRevenue float64 `json:"percentageOfRevenue"`
}

// MoneyFlowSummary годовая сводка денежных потоков для клиента
type MoneyFlowSummary struct {
	Year           int      `json:"year"`
	AvailableYears []int    `json:"availableYears"`
	Revenue        GroupSet `json:"revenue"`
	Expenditure    GroupSet `json:"expenditure"`
	Balance        Balance  `json:"balance"`
	Timestamp      string   `json:"timestamp"`
}

// AggregateByLabel сворачивает финансовые агрегаты по подписи. Пустая подпись
// заменяется описанием строки; агрегаты без подписи пропускаются.
func AggregateByLabel(aggs []records.FinancialAggregate) []LabelAmount {
	totals := map[string]int{}
	var items []LabelAmount

	for _, agg := range aggs {
		label := agg.Label
		if label == "" {
			label = agg.LineDescription
		}
		if label == "" {
			continue
		}
		if idx, ok := totals[label]; ok {
			items[idx].Amount += agg.Amount
			continue
		}
		totals[label] = len(items)
		items = append(items, LabelAmount{Label: label, Amount: agg.Amount})
	}
	return items
}

// BuildMoneyFlowSummary строит годовую сводку денежных потоков: верхние и
// нижние группы доходов и расходов с долями и баланс года
func BuildMoneyFlowSummary(year int, aggs []records.FinancialAggregate, availableYears []int, now time.Time) MoneyFlowSummary {
	var revenue, expense []records.FinancialAggregate
	for _, agg := range aggs {
		if agg.FiscalYear != year {
			continue
		}
		switch agg.FlowType {
		case extract.FlowRevenue:
			revenue = append(revenue, agg)
		case extract.FlowExpenditure:
			expense = append(expense, agg)
		}
	}

	revenueGroups := BuildTopBottomGroups(AggregateByLabel(revenue), MoneyFlowGroupLimit)
	expenseGroups := BuildTopBottomGroups(AggregateByLabel(expense), MoneyFlowGroupLimit)

	balanceAmount := revenueGroups.Total - expenseGroups.Total
	percentage := 0.0
	if revenueGroups.Total > 0 {
		percentage = balanceAmount / revenueGroups.Total * 100
	}

	return MoneyFlowSummary{
		Year:           year,
		AvailableYears: availableYears,
		Revenue:        revenueGroups,
		Expenditure:    expenseGroups,
		Balance: Balance{
			Amount:              balanceAmount,
			IsSurplus:           balanceAmount >= 0,
			PercentageOfRevenue: percentage,
		},
		Timestamp: now.UTC().Format(time.RFC3339),
	}
}
