package extract

import (
	"math"
	"sort"
	"strings"

	"cityetl/etlerrors"
	"cityetl/normalize"
	"cityetl/records"
	"cityetl/schema"
)

// Типы потока финансового отчёта
const (
	FlowRevenue     = "revenue"
	FlowExpenditure = "expenditure"
)

// Фразы, маркирующие итоговые строки: они дублируют детальные строки и при
// извлечении пропускаются, чтобы не удваивать суммы
var summaryPhrases = []string{
	"plus: total",
	"less: total",
	"annual surplus",
	"annual deficit",
	"accumulated surplus",
	"restated accumulated surplus",
	"recognized in the year",
	"continuity of",
	"government business enterprise equity",
	"plus: net income",
	"less: dividends",
}

// IsSummaryRow определяет, является ли описание строкой итога или подытога
func IsSummaryRow(description string) bool {
	lowered := strings.ToLower(strings.TrimSpace(description))
	if strings.Contains(lowered, "subtotal") {
		return true
	}
	if lowered == "total" || strings.HasPrefix(lowered, "total ") {
		return true
	}
	for _, phrase := range summaryPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

// ExtractFinancialSheet извлекает детальные строки одного листа финансового
// отчёта (доходы или расходы) в канонические записи. Итоговые строки и
// строки с нулевой/пустой суммой пропускаются.
func ExtractFinancialSheet(sheet schema.Sheet, flowType string, fiscalYear, amountCol, descCol int, prov records.Provenance, ingestedAt string) []records.Fact {
	var facts []records.Fact

	for _, row := range sheet.Rows {
		description := strings.TrimSpace(schema.Cell(row, descCol))
		if description == "" {
			continue
		}

		label := normalize.CleanLabel(description)
		if label == "" || IsSummaryRow(label) {
			continue
		}

		amount, ok := normalize.ParseAmount(schema.Cell(row, amountCol))
		if !ok || amount == 0 {
			continue
		}

		facts = append(facts, records.Fact{
			FiscalYear: fiscalYear,
			Dimensions: []records.Dimension{
				{Key: "flow_type", Value: flowType},
				{Key: "line_description", Value: description},
			},
			Amount:     amount,
			Label:      label,
			Provenance: prov,
			IngestedAt: ingestedAt,
		})
	}

	return facts
}

// Ключи итоговых показателей финансового отчёта
const (
	TotalReportedRevenue = "reported_revenue_total"
	TotalReportedExpense = "reported_expense_total"
	TotalAnnualSurplus   = "annual_surplus"
)

// SummaryTotals извлекает отчётные итоги листа (совокупные доходы, расходы,
// годовой профицит). При повторных совпадениях сохраняется значение с
// максимальным модулем: листы дублируют итог в нескольких секциях.
func SummaryTotals(sheet schema.Sheet, descCol, amountCol int) map[string]float64 {
	totals := map[string]float64{}

	update := func(key string, amount float64) {
		current, seen := totals[key]
		if !seen || math.Abs(amount) > math.Abs(current) {
			totals[key] = amount
		}
	}

	for _, row := range sheet.Rows {
		description := strings.TrimSpace(schema.Cell(row, descCol))
		if description == "" {
			continue
		}
		cleaned := normalize.CleanLabel(description)
		if cleaned == "" {
			continue
		}
		lowered := strings.ToLower(cleaned)

		amount, ok := normalize.ParseAmount(schema.Cell(row, amountCol))
		if !ok {
			continue
		}

		switch {
		case strings.Contains(lowered, "plus: total revenues") || lowered == "total revenues":
			update(TotalReportedRevenue, amount)
		case strings.Contains(lowered, "less: total expenses") || lowered == "total expenses":
			update(TotalReportedExpense, amount)
		case strings.Contains(lowered, "annual surplus") || strings.Contains(lowered, "annual deficit"):
			update(TotalAnnualSurplus, amount)
		}
	}

	return totals
}

// AggregateFinancial сворачивает канонические финансовые записи по ключу
// (год, поток, подпись), суммируя суммы и объединяя происхождение.
// Исходные записи не изменяются. Порядок агрегатов — порядок первого
// появления ключа; внутри агрегата источники отсортированы.
func AggregateFinancial(facts []records.Fact, packageID, ingestedAt string) ([]records.FinancialAggregate, error) {
	if len(facts) == 0 {
		return nil, etlerrors.NewAggregationError("no financial facts to aggregate")
	}

	type aggKey struct {
		year  int
		flow  string
		label string
	}

	type accumulator struct {
		aggregate records.FinancialAggregate
		files     map[string]struct{}
		ids       map[string]struct{}
		names     map[string]struct{}
	}

	totals := map[aggKey]*accumulator{}
	var order []aggKey

	for _, fact := range facts {
		flow := fact.DimensionOr("flow_type", "")
		key := aggKey{year: fact.FiscalYear, flow: flow, label: fact.Label}

		acc, seen := totals[key]
		if !seen {
			acc = &accumulator{
				aggregate: records.FinancialAggregate{
					FiscalYear:      fact.FiscalYear,
					FlowType:        flow,
					Label:           fact.Label,
					LineDescription: fact.DimensionOr("line_description", fact.Label),
					SourcePackageID: packageID,
					IngestedAt:      ingestedAt,
				},
				files: map[string]struct{}{},
				ids:   map[string]struct{}{},
				names: map[string]struct{}{},
			}
			totals[key] = acc
			order = append(order, key)
		}

		acc.aggregate.Amount += fact.Amount
		if fact.Provenance.SourceFile != "" {
			acc.files[fact.Provenance.SourceFile] = struct{}{}
		}
		if fact.Provenance.ResourceID != "" {
			acc.ids[fact.Provenance.ResourceID] = struct{}{}
		}
		if fact.Provenance.ResourceName != "" {
			acc.names[fact.Provenance.ResourceName] = struct{}{}
		}
	}

	aggregates := make([]records.FinancialAggregate, 0, len(order))
	for _, key := range order {
		acc := totals[key]
		acc.aggregate.SourceFiles = sortedKeys(acc.files)
		acc.aggregate.SourceResourceIDs = sortedKeys(acc.ids)
		acc.aggregate.SourceResourceNames = sortedKeys(acc.names)
		aggregates = append(aggregates, acc.aggregate)
	}
	return aggregates, nil
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// MergeSummaryTotals вливает итоги одного документа в годовую сводку,
// сохраняя для каждого ключа значение с максимальным модулем
func MergeSummaryTotals(byYear map[int]map[string]float64, year int, totals map[string]float64) {
	if len(totals) == 0 {
		return
	}
	yearTotals, ok := byYear[year]
	if !ok {
		yearTotals = map[string]float64{}
		byYear[year] = yearTotals
	}
	for key, value := range totals {
		current, seen := yearTotals[key]
		if !seen || math.Abs(value) > math.Abs(current) {
			yearTotals[key] = value
		}
	}
}
