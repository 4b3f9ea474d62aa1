package rollup

import (
	"sort"
	"strconv"
	"time"

	"cityetl/records"
)

// TrendSeries многолетний ряд: итог по каждому году и разбивка по значению
// измерения (или подписи) внутри года. Позволяет клиенту строить линейные
// графики без повторного сканирования сырых записей.
type TrendSeries struct {
	Years       []int                      `json:"availableYears"`
	TotalByYear map[int]float64            `json:"totalByYear"`
	ByDimension map[string]map[int]float64 `json:"byDimension"`
	Timestamp   string                     `json:"timestamp"`
}

// BuildTrendSeries строит ряд по каноническим записям. dimensionKey задаёт
// ось разбивки; записи без значения этой оси попадают в разбивку по подписи,
// а при её отсутствии учитываются только в годовом итоге.
func BuildTrendSeries(facts []records.Fact, dimensionKey string, now time.Time) TrendSeries {
	series := TrendSeries{
		TotalByYear: map[int]float64{},
		ByDimension: map[string]map[int]float64{},
		Timestamp:   now.UTC().Format(time.RFC3339),
	}

	yearSet := map[int]struct{}{}
	for _, fact := range facts {
		year := fact.FiscalYear
		yearSet[year] = struct{}{}
		series.TotalByYear[year] += fact.Amount

		value := fact.DimensionOr(dimensionKey, fact.Label)
		if value == "" {
			continue
		}
		byYear, ok := series.ByDimension[value]
		if !ok {
			byYear = map[int]float64{}
			series.ByDimension[value] = byYear
		}
		byYear[year] += fact.Amount
	}

	series.Years = make([]int, 0, len(yearSet))
	for year := range yearSet {
		series.Years = append(series.Years, year)
	}
	sort.Ints(series.Years)
	return series
}

// GoldIndex индекс золотых файлов одного набора данных
type GoldIndex struct {
	AvailableYears []int             `json:"availableYears"`
	LatestYear     *int              `json:"latestYear"`
	Files          map[string]string `json:"files"`
	Timestamp      string            `json:"timestamp"`
}

// BuildGoldIndex строит индекс: доступные годы, последний год и ссылки на
// годовые файлы вида {baseURL}/{year}.json
func BuildGoldIndex(years []int, baseURL string, now time.Time) GoldIndex {
	index := GoldIndex{
		AvailableYears: []int{},
		Files:          map[string]string{},
		Timestamp:      now.UTC().Format(time.RFC3339),
	}
	if len(years) == 0 {
		return index
	}

	sorted := append([]int(nil), years...)
	sort.Ints(sorted)

	index.AvailableYears = sorted
	latest := sorted[len(sorted)-1]
	index.LatestYear = &latest
	for _, year := range sorted {
		index.Files[strconv.Itoa(year)] = baseURL + "/" + strconv.Itoa(year) + ".json"
	}
	return index
}
