package rollup

import (
	"encoding/json"
	"testing"
	"time"

	"cityetl/records"
)

func TestBuildTopBottomGroups(t *testing.T) {
	items := []LabelAmount{
		{Label: "A", Amount: 50},
		{Label: "B", Amount: 30},
		{Label: "C", Amount: 20},
	}

	groups := BuildTopBottomGroups(items, 2)

	if groups.Total != 100 {
		t.Errorf("total = %v, want 100", groups.Total)
	}
	if len(groups.TopGroups) != 2 {
		t.Fatalf("got %d top groups, want 2", len(groups.TopGroups))
	}
	if groups.TopGroups[0].Label != "A" || groups.TopGroups[0].Percentage != 50 {
		t.Errorf("top[0] = %+v", groups.TopGroups[0])
	}
	if groups.TopGroups[1].Label != "B" || groups.TopGroups[1].Percentage != 30 {
		t.Errorf("top[1] = %+v", groups.TopGroups[1])
	}

	// Нижние группы не содержат подписей из верхних
	for _, group := range groups.BottomGroups {
		if group.Label == "A" || group.Label == "B" {
			t.Errorf("bottom group duplicates top label %q", group.Label)
		}
	}
	if len(groups.BottomGroups) != 1 || groups.BottomGroups[0].Label != "C" {
		t.Errorf("bottom groups = %+v", groups.BottomGroups)
	}
}

func TestBuildTopBottomGroupsFiltersNonPositive(t *testing.T) {
	items := []LabelAmount{
		{Label: "A", Amount: 10},
		{Label: "B", Amount: 0},
		{Label: "C", Amount: -5},
	}

	groups := BuildTopBottomGroups(items, 3)
	if groups.Total != 10 {
		t.Errorf("total = %v, want 10", groups.Total)
	}
	if len(groups.TopGroups) != 1 {
		t.Errorf("top groups = %+v", groups.TopGroups)
	}
}

func TestBuildTopBottomGroupsClampsLimit(t *testing.T) {
	items := []LabelAmount{{Label: "Only", Amount: 42}}

	groups := BuildTopBottomGroups(items, 7)
	if len(groups.TopGroups) != 1 {
		t.Fatalf("top groups = %+v", groups.TopGroups)
	}
	// Единственная группа уже в верхних — нижние пусты, а не дублируют её
	if len(groups.BottomGroups) != 0 {
		t.Errorf("bottom groups = %+v", groups.BottomGroups)
	}
	if groups.TopGroups[0].Percentage != 100 {
		t.Errorf("percentage = %v, want 100", groups.TopGroups[0].Percentage)
	}
}

func TestBuildTopBottomGroupsEmpty(t *testing.T) {
	groups := BuildTopBottomGroups(nil, 5)
	if groups.Total != 0 || len(groups.TopGroups) != 0 || len(groups.BottomGroups) != 0 {
		t.Errorf("groups = %+v", groups)
	}
}

func TestAggregateFactsByLabel(t *testing.T) {
	facts := []records.Fact{
		{FiscalYear: 2023, Label: "Parks", Amount: 10},
		{FiscalYear: 2023, Label: "Parks", Amount: 5},
		{FiscalYear: 2023, Dimensions: []records.Dimension{{Key: "line_description", Value: "Transit"}}, Amount: 7},
		{FiscalYear: 2023, Amount: 99},
	}

	items := AggregateFactsByLabel(facts)
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Label != "Parks" || items[0].Amount != 15 {
		t.Errorf("items[0] = %+v", items[0])
	}
	if items[1].Label != "Transit" || items[1].Amount != 7 {
		t.Errorf("items[1] = %+v", items[1])
	}
}

func TestGroupingIdempotence(t *testing.T) {
	facts := []records.Fact{
		{FiscalYear: 2023, Label: "A", Amount: 50},
		{FiscalYear: 2023, Label: "B", Amount: 30},
		{FiscalYear: 2023, Label: "C", Amount: 30},
		{FiscalYear: 2023, Label: "D", Amount: 20},
	}

	first, err := json.Marshal(BuildTopBottomGroups(AggregateFactsByLabel(facts), 2))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := json.Marshal(BuildTopBottomGroups(AggregateFactsByLabel(facts), 2))
		if err != nil {
			t.Fatal(err)
		}
		if string(first) != string(again) {
			t.Fatalf("grouping not deterministic:\n%s\n%s", first, again)
		}
	}
}

func TestBuildMoneyFlowSummary(t *testing.T) {
	aggs := []records.FinancialAggregate{
		{FiscalYear: 2023, FlowType: "revenue", Label: "Property taxation", Amount: 600},
		{FiscalYear: 2023, FlowType: "revenue", Label: "User charges", Amount: 400},
		{FiscalYear: 2023, FlowType: "expenditure", Label: "Transit", Amount: 700},
		{FiscalYear: 2022, FlowType: "revenue", Label: "Old year", Amount: 999},
	}

	summary := BuildMoneyFlowSummary(2023, aggs, []int{2022, 2023}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	if summary.Revenue.Total != 1000 || summary.Expenditure.Total != 700 {
		t.Errorf("totals = %v/%v", summary.Revenue.Total, summary.Expenditure.Total)
	}
	if summary.Balance.Amount != 300 || !summary.Balance.IsSurplus {
		t.Errorf("balance = %+v", summary.Balance)
	}
	if summary.Balance.PercentageOfRevenue != 30 {
		t.Errorf("percentage of revenue = %v, want 30", summary.Balance.PercentageOfRevenue)
	}
	if len(summary.AvailableYears) != 2 {
		t.Errorf("available years = %v", summary.AvailableYears)
	}
	if summary.Timestamp != "2026-01-01T00:00:00Z" {
		t.Errorf("timestamp = %q", summary.Timestamp)
	}
}

func TestBuildTrendSeriesTotals(t *testing.T) {
	// Сто записей за три года: итог ряда по каждому году обязан совпадать
	// с прямой суммой записей этого года
	var facts []records.Fact
	direct := map[int]float64{}
	years := []int{2022, 2023, 2024}
	for i := 0; i < 100; i++ {
		year := years[i%3]
		amount := float64(i + 1)
		direct[year] += amount
		facts = append(facts, records.Fact{
			FiscalYear: year,
			Dimensions: []records.Dimension{{Key: "category", Value: []string{"X", "Y"}[i%2]}},
			Amount:     amount,
		})
	}

	series := BuildTrendSeries(facts, "category", time.Now())

	for year, want := range direct {
		if got := series.TotalByYear[year]; got != want {
			t.Errorf("totalByYear[%d] = %v, want %v", year, got, want)
		}
	}
	if len(series.Years) != 3 || series.Years[0] != 2022 || series.Years[2] != 2024 {
		t.Errorf("years = %v", series.Years)
	}

	// Сумма разбивки по оси равна годовому итогу
	for year := range direct {
		sum := series.ByDimension["X"][year] + series.ByDimension["Y"][year]
		if sum != direct[year] {
			t.Errorf("dimension breakdown for %d sums to %v, want %v", year, sum, direct[year])
		}
	}
}

func TestBuildGoldIndex(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	index := BuildGoldIndex([]int{2023, 2021, 2022}, "https://example.com/gold/money-flow", now)
	if index.LatestYear == nil || *index.LatestYear != 2023 {
		t.Fatalf("latest year = %v", index.LatestYear)
	}
	if len(index.AvailableYears) != 3 || index.AvailableYears[0] != 2021 {
		t.Errorf("available years = %v", index.AvailableYears)
	}
	if got := index.Files["2022"]; got != "https://example.com/gold/money-flow/2022.json" {
		t.Errorf("file url = %q", got)
	}

	empty := BuildGoldIndex(nil, "unused", now)
	if empty.LatestYear != nil || len(empty.Files) != 0 {
		t.Errorf("empty index = %+v", empty)
	}
}
