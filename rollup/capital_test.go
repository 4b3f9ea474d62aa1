package rollup

import (
	"strconv"
	"testing"
	"time"

	"cityetl/records"
)

func capitalFact(year, ward int, wardName, category, project string, amount float64) records.Fact {
	dims := []records.Dimension{
		{Key: "ward_number", Value: strconv.Itoa(ward)},
		{Key: "ward_name", Value: wardName},
	}
	if category != "" {
		dims = append(dims, records.Dimension{Key: "category", Value: category})
	}
	if project != "" {
		dims = append(dims, records.Dimension{Key: "project_name", Value: project})
	}
	return records.Fact{FiscalYear: year, Dimensions: dims, Amount: amount}
}

func TestAggregateByWard(t *testing.T) {
	facts := []records.Fact{
		capitalFact(2024, 1, "Spadina", "Transit", "", 100),
		capitalFact(2024, 1, "Spadina", "Parks", "", 40),
		capitalFact(2024, 1, "Spadina", "Transit", "", 60),
		capitalFact(2024, 2, "Davenport", "Parks", "", 300),
	}

	wards := AggregateByWard(facts)
	if len(wards) != 2 {
		t.Fatalf("got %d wards, want 2", len(wards))
	}

	// Сортировка по сумме по убыванию
	if wards[0].WardNumber != 2 || wards[0].TotalAmount != 300 {
		t.Errorf("wards[0] = %+v", wards[0])
	}
	if wards[1].TotalAmount != 200 || wards[1].ProjectCount != 3 {
		t.Errorf("wards[1] = %+v", wards[1])
	}
	// Доминирующая категория по сумме, не по числу записей
	if wards[1].TopCategory != "Transit" {
		t.Errorf("top category = %q, want Transit", wards[1].TopCategory)
	}
}

func TestAggregateByWardCategoryTieFirstSeen(t *testing.T) {
	facts := []records.Fact{
		capitalFact(2024, 1, "Spadina", "Parks", "", 50),
		capitalFact(2024, 1, "Spadina", "Transit", "", 50),
	}

	wards := AggregateByWard(facts)
	if wards[0].TopCategory != "Parks" {
		t.Errorf("tie should go to first-seen category, got %q", wards[0].TopCategory)
	}
}

func TestTopProjects(t *testing.T) {
	facts := []records.Fact{
		capitalFact(2024, 1, "Spadina", "Transit", "Station upgrade", 100),
		capitalFact(2024, 1, "Spadina", "Transit", "Station upgrade", 50),
		capitalFact(2024, 2, "Davenport", "Parks", "Station upgrade", 70),
		capitalFact(2024, 2, "Davenport", "", "", 500),
	}

	projects := TopProjects(facts, 10)

	// Один проект в двух районах считается раздельно; записи без имени
	// проекта не учитываются
	if len(projects) != 2 {
		t.Fatalf("got %d projects, want 2", len(projects))
	}
	if projects[0].Amount != 150 || projects[0].WardName != "Spadina" {
		t.Errorf("projects[0] = %+v", projects[0])
	}

	limited := TopProjects(facts, 1)
	if len(limited) != 1 {
		t.Errorf("limit not applied: %d projects", len(limited))
	}
}

func TestBuildCapitalSummary(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	facts := []records.Fact{
		capitalFact(2024, 0, "City Wide", "Transit", "Signal renewal", 1000),
		capitalFact(2024, 1, "Spadina", "Transit", "Station upgrade", 400),
		capitalFact(2024, 2, "Davenport", "Parks", "Playground", 100),
		capitalFact(2023, 3, "Old year", "Parks", "", 999),
	}

	summary := BuildCapitalSummary(2024, facts, now)

	if summary.WardSpecific != 500 || summary.CityWide != 1000 || summary.TotalInvestment != 1500 {
		t.Errorf("totals = %v/%v/%v", summary.WardSpecific, summary.CityWide, summary.TotalInvestment)
	}
	if summary.WardCount != 2 || summary.CityWideProjectCount != 1 {
		t.Errorf("counts = %d/%d", summary.WardCount, summary.CityWideProjectCount)
	}
	if len(summary.TopWards) != 2 || summary.TopWards[0].WardNumber != 1 {
		t.Errorf("top wards = %+v", summary.TopWards)
	}
	// Нижние районы в порядке возрастания
	if len(summary.BottomWards) != 2 || summary.BottomWards[0].WardNumber != 2 {
		t.Errorf("bottom wards = %+v", summary.BottomWards)
	}

	if summary.Governance.Top1WardShare != 80 {
		t.Errorf("top1 share = %v, want 80", summary.Governance.Top1WardShare)
	}
	if summary.Governance.Top5WardShare != 100 {
		t.Errorf("top5 share = %v, want 100", summary.Governance.Top5WardShare)
	}
	if summary.Governance.DisparityRatio != 4 {
		t.Errorf("disparity = %v, want 4", summary.Governance.DisparityRatio)
	}
}

func TestBuildCapitalSummaryDisparityGuards(t *testing.T) {
	now := time.Now()

	// Один район: коэффициент диспропорции по умолчанию 1
	single := BuildCapitalSummary(2024, []records.Fact{
		capitalFact(2024, 1, "Spadina", "", "", 100),
	}, now)
	if single.Governance.DisparityRatio != 1 {
		t.Errorf("single-ward disparity = %v, want 1", single.Governance.DisparityRatio)
	}

	// Наименьший район с неположительной суммой: тоже 1
	negative := BuildCapitalSummary(2024, []records.Fact{
		capitalFact(2024, 1, "Spadina", "", "", 100),
		capitalFact(2024, 2, "Davenport", "", "", -30),
	}, now)
	if negative.Governance.DisparityRatio != 1 {
		t.Errorf("non-positive smallest disparity = %v, want 1", negative.Governance.DisparityRatio)
	}
}
