package rollup

import (
	"sort"
	"time"

	"cityetl/records"
)

// Лимиты сводки капитальных инвестиций
const (
	capitalWardLimit     = 5
	capitalCategoryLimit = 5
	capitalProjectLimit  = 10
)

// WardRollup агрегат капитальных инвестиций одного района
type WardRollup struct {
	WardNumber   int     `json:"ward_number"`
	WardName     string  `json:"ward_name"`
	TotalAmount  float64 `json:"totalAmount"`
	ProjectCount int     `json:"projectCount"`
	TopCategory  string  `json:"topCategory,omitempty"`
}

// CategoryRollup агрегат инвестиций одной категории
type CategoryRollup struct {
	Name         string  `json:"name"`
	TotalAmount  float64 `json:"totalAmount"`
	ProjectCount int     `json:"projectCount"`
}

// ProjectRollup агрегат одного проекта в одном районе
type ProjectRollup struct {
	ProjectName string  `json:"project_name"`
	WardName    string  `json:"ward_name"`
	WardNumber  int     `json:"ward_number"`
	ProgramName string  `json:"program_name,omitempty"`
	Category    string  `json:"category,omitempty"`
	Amount      float64 `json:"amount"`
}

// Concentration метрики концентрации инвестиций между районами
type Concentration struct {
	Top1WardShare  float64 `json:"top1WardShare"`
	Top5WardShare  float64 `json:"top5WardShare"`
	DisparityRatio float64 `json:"disparityRatio"`
}

// CapitalSummary годовая сводка капитальных инвестиций
type CapitalSummary struct {
	Year                 int              `json:"year"`
	TotalInvestment      float64          `json:"totalInvestment"`
	WardSpecific         float64          `json:"wardSpecificInvestment"`
	CityWide             float64          `json:"cityWideInvestment"`
	WardCount            int              `json:"wardCount"`
	CityWideProjectCount int              `json:"cityWideProjectCount"`
	TopWards             []WardRollup     `json:"topWards"`
	BottomWards          []WardRollup     `json:"bottomWards"`
	AllWards             []WardRollup     `json:"allWards"`
	CategoryBreakdown    []CategoryRollup `json:"categoryBreakdown"`
	TopProjects          []ProjectRollup  `json:"topProjects"`
	Governance           Concentration    `json:"governance"`
	Timestamp            string           `json:"timestamp"`
}

type wardAccumulator struct {
	rollup        WardRollup
	categories    map[string]float64
	categoryOrder []string
}

// AggregateByWard сворачивает записи по районам: сумма, число записей и
// доминирующая категория (категория с наибольшей суммой; при равенстве
// побеждает встреченная раньше). Результат отсортирован по сумме по убыванию.
func AggregateByWard(facts []records.Fact) []WardRollup {
	totals := map[string]*wardAccumulator{}
	var order []string

	for _, fact := range facts {
		number, _ := fact.IntDimension("ward_number")
		name := fact.DimensionOr("ward_name", "")
		key := fact.DimensionOr("ward_number", "") + "|" + name

		acc, ok := totals[key]
		if !ok {
			acc = &wardAccumulator{
				rollup:     WardRollup{WardNumber: number, WardName: name},
				categories: map[string]float64{},
			}
			totals[key] = acc
			order = append(order, key)
		}

		acc.rollup.TotalAmount += fact.Amount
		acc.rollup.ProjectCount++

		if category, ok := fact.Dimension("category"); ok && category != "" {
			if _, seen := acc.categories[category]; !seen {
				acc.categoryOrder = append(acc.categoryOrder, category)
			}
			acc.categories[category] += fact.Amount
		}
	}

	rollups := make([]WardRollup, 0, len(order))
	for _, key := range order {
		acc := totals[key]
		best := ""
		bestAmount := 0.0
		for _, category := range acc.categoryOrder {
			if best == "" || acc.categories[category] > bestAmount {
				best = category
				bestAmount = acc.categories[category]
			}
		}
		acc.rollup.TopCategory = best
		rollups = append(rollups, acc.rollup)
	}

	sort.SliceStable(rollups, func(i, j int) bool {
		return rollups[i].TotalAmount > rollups[j].TotalAmount
	})
	return rollups
}

// AggregateByCategory сворачивает записи по категориям, сортируя по сумме
// по убыванию. Записи без категории пропускаются.
func AggregateByCategory(facts []records.Fact) []CategoryRollup {
	totals := map[string]int{}
	var rollups []CategoryRollup

	for _, fact := range facts {
		category, ok := fact.Dimension("category")
		if !ok || category == "" {
			continue
		}
		idx, seen := totals[category]
		if !seen {
			idx = len(rollups)
			totals[category] = idx
			rollups = append(rollups, CategoryRollup{Name: category})
		}
		rollups[idx].TotalAmount += fact.Amount
		rollups[idx].ProjectCount++
	}

	sort.SliceStable(rollups, func(i, j int) bool {
		return rollups[i].TotalAmount > rollups[j].TotalAmount
	})
	return rollups
}

// TopProjects возвращает крупнейшие проекты по сумме; проект учитывается
// отдельно в каждом районе. Записи без имени проекта пропускаются.
func TopProjects(facts []records.Fact, limit int) []ProjectRollup {
	totals := map[string]int{}
	var rollups []ProjectRollup

	for _, fact := range facts {
		projectName, ok := fact.Dimension("project_name")
		if !ok || projectName == "" {
			continue
		}
		wardName := fact.DimensionOr("ward_name", "")
		key := projectName + "|" + wardName

		idx, seen := totals[key]
		if !seen {
			number, _ := fact.IntDimension("ward_number")
			idx = len(rollups)
			totals[key] = idx
			rollups = append(rollups, ProjectRollup{
				ProjectName: projectName,
				WardName:    wardName,
				WardNumber:  number,
				ProgramName: fact.DimensionOr("program_name", ""),
				Category:    fact.DimensionOr("category", ""),
			})
		}
		rollups[idx].Amount += fact.Amount
	}

	sort.SliceStable(rollups, func(i, j int) bool {
		return rollups[i].Amount > rollups[j].Amount
	})
	if limit > 0 && len(rollups) > limit {
		rollups = rollups[:limit]
	}
	return rollups
}

// BuildCapitalSummary строит годовую сводку капитальных инвестиций:
// общегородские записи (район 0) отделяются от районных, районы
// ранжируются, считаются метрики концентрации
func BuildCapitalSummary(year int, facts []records.Fact, now time.Time) CapitalSummary {
	var cityWide, wardFacts []records.Fact
	cityWideTotal := 0.0
	for _, fact := range facts {
		if fact.FiscalYear != year {
			continue
		}
		if number, _ := fact.IntDimension("ward_number"); number == 0 {
			cityWide = append(cityWide, fact)
			cityWideTotal += fact.Amount
		} else {
			wardFacts = append(wardFacts, fact)
		}
	}

	wards := AggregateByWard(wardFacts)

	wardSpecificTotal := 0.0
	for _, ward := range wards {
		wardSpecificTotal += ward.TotalAmount
	}

	wardLimit := capitalWardLimit
	if wardLimit > len(wards) {
		wardLimit = len(wards)
	}
	topWards := wards[:wardLimit]

	bottomWards := make([]WardRollup, 0, wardLimit)
	for i := len(wards) - 1; i >= len(wards)-wardLimit; i-- {
		bottomWards = append(bottomWards, wards[i])
	}

	governance := Concentration{DisparityRatio: 1}
	if len(wards) > 0 && wardSpecificTotal > 0 {
		governance.Top1WardShare = wards[0].TotalAmount / wardSpecificTotal * 100
		topSum := 0.0
		for _, ward := range topWards {
			topSum += ward.TotalAmount
		}
		governance.Top5WardShare = topSum / wardSpecificTotal * 100
	}
	if len(wards) > 1 && wards[len(wards)-1].TotalAmount > 0 {
		governance.DisparityRatio = wards[0].TotalAmount / wards[len(wards)-1].TotalAmount
	}

	categories := AggregateByCategory(wardFacts)
	if len(categories) > capitalCategoryLimit {
		categories = categories[:capitalCategoryLimit]
	}

	return CapitalSummary{
		Year:                 year,
		TotalInvestment:      wardSpecificTotal + cityWideTotal,
		WardSpecific:         wardSpecificTotal,
		CityWide:             cityWideTotal,
		WardCount:            len(wards),
		CityWideProjectCount: len(cityWide),
		TopWards:             topWards,
		BottomWards:          bottomWards,
		AllWards:             wards,
		CategoryBreakdown:    categories,
		TopProjects:          TopProjects(wardFacts, capitalProjectLimit),
		Governance:           governance,
		Timestamp:            now.UTC().Format(time.RFC3339),
	}
}
