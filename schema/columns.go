package schema

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"cityetl/etlerrors"
	"cityetl/normalize"
)

// YearMode режим представления фискальных лет в колонках листа
type YearMode int

const (
	// YearModeExplicit колонки с явными годами ("2024", "2025", ...)
	YearModeExplicit YearMode = iota
	// YearModeOffset колонки со смещением от базового года ("Year 1".."Year 10")
	YearModeOffset
)

// YearColumn колонка, сопоставленная фискальному году
type YearColumn struct {
	FiscalYear int // абсолютный год
	Offset     int // смещение от базового года (1..10), 0 в явном режиме
	Column     int // индекс колонки
}

// CapitalResolution результат сопоставления колонок листа капитального
// бюджета семантическим ролям. Индекс -1 означает, что роль не найдена.
type CapitalResolution struct {
	WardNumberCol   int
	WardNameCol     int
	ProgramCol      int
	ProjectCol      int
	SubProjectCol   int
	CategoryCol     int
	TotalTenYearCol int

	Mode     YearMode
	BaseYear int
	Years    []YearColumn // в порядке возрастания фискального года
}

var nonDigitRe = regexp.MustCompile(`\D`)

// ResolveCapitalColumns сопоставляет заголовки листа ролям капитального
// бюджета. Явные годовые колонки имеют приоритет над смещёнными; в режиме
// смещений требуется базовый год (из конфигурации или выведенный из имени
// ресурса) — без него разрешение завершается ошибкой.
func ResolveCapitalColumns(sheet Sheet, baseYear int) (*CapitalResolution, error) {
	res := &CapitalResolution{
		WardNumberCol:   -1,
		WardNameCol:     -1,
		ProgramCol:      -1,
		ProjectCol:      -1,
		SubProjectCol:   -1,
		CategoryCol:     -1,
		TotalTenYearCol: -1,
	}

	byYear := map[int]int{}   // фискальный год -> колонка
	byOffset := map[int]int{} // смещение -> колонка

	for i, header := range sheet.Headers {
		if year, ok := normalize.ParseYearToken(header); ok {
			if _, seen := byYear[year]; !seen {
				byYear[year] = i
			}
			continue
		}

		normalized := normalize.NormalizeHeader(header)
		switch {
		case normalized == "ward number" || normalized == "ward no" || normalized == "ward #":
			res.WardNumberCol = i
		case normalized == "ward" || normalized == "ward name":
			res.WardNameCol = i
		case strings.Contains(normalized, "program") && strings.Contains(normalized, "name"):
			res.ProgramCol = i
		case normalized == "project name":
			res.ProjectCol = i
		case strings.Contains(normalized, "sub") && strings.Contains(normalized, "project"):
			res.SubProjectCol = i
		case normalized == "category":
			res.CategoryCol = i
		case normalized == "total 10 year" || normalized == "total 10 years":
			res.TotalTenYearCol = i
		case offsetYearRe.MatchString(normalized):
			index, err := strconv.Atoi(nonDigitRe.ReplaceAllString(normalized, ""))
			if err == nil && index >= 1 && index <= 10 {
				if _, seen := byOffset[index]; !seen {
					byOffset[index] = i
				}
			}
		}
	}

	if res.WardNumberCol == -1 || res.WardNameCol == -1 {
		return nil, etlerrors.NewResolutionError(sheet.Name, "ward columns not found in worksheet")
	}
	if len(byYear) == 0 && len(byOffset) == 0 {
		return nil, etlerrors.NewResolutionError(sheet.Name,
			"year columns not found (expected Year 1..10 or actual years like 2024)")
	}

	// Явные годы имеют приоритет над смещениями
	if len(byYear) > 0 {
		res.Mode = YearModeExplicit
		years := make([]int, 0, len(byYear))
		for year := range byYear {
			years = append(years, year)
		}
		sort.Ints(years)
		res.BaseYear = years[0]
		for _, year := range years {
			res.Years = append(res.Years, YearColumn{FiscalYear: year, Column: byYear[year]})
		}
		return res, nil
	}

	if baseYear == 0 {
		return nil, etlerrors.NewResolutionError(sheet.Name,
			"base year is required for Year 1..10 columns")
	}

	res.Mode = YearModeOffset
	res.BaseYear = baseYear
	offsets := make([]int, 0, len(byOffset))
	for offset := range byOffset {
		offsets = append(offsets, offset)
	}
	sort.Ints(offsets)
	for _, offset := range offsets {
		res.Years = append(res.Years, YearColumn{
			FiscalYear: baseYear + offset - 1,
			Offset:     offset,
			Column:     byOffset[offset],
		})
	}
	return res, nil
}

// YearOffset смещение фискального года относительно первого года документа
// (1 для первого года). В явном режиме вычисляется от минимального года.
func (r *CapitalResolution) YearOffset(fiscalYear int) int {
	return fiscalYear - r.BaseYear + 1
}

// VotingColumns сопоставление колонок потока голосований ролям.
// Индекс -1 означает, что роль не найдена.
type VotingColumns struct {
	MotionIDCol        int
	VoteCol            int
	CouncillorCol      int
	FirstNameCol       int
	LastNameCol        int
	AgendaTitleCol     int
	VoteDescriptionCol int
	MeetingDateCol     int
	MotionTypeCol      int
}

// ResolveVotingColumns сопоставляет заголовки потока голосований ролям по
// таблице принятых написаний. Обязательны идентификатор пункта повестки,
// значение голоса и тип движения — их отсутствие даёт ошибку разрешения.
func ResolveVotingColumns(headers []string) (*VotingColumns, error) {
	cols := &VotingColumns{
		MotionIDCol:        -1,
		VoteCol:            -1,
		CouncillorCol:      -1,
		FirstNameCol:       -1,
		LastNameCol:        -1,
		AgendaTitleCol:     -1,
		VoteDescriptionCol: -1,
		MeetingDateCol:     -1,
		MotionTypeCol:      -1,
	}

	for i, header := range headers {
		lower := normalize.NormalizeHeader(header)

		switch {
		case strings.Contains(lower, "agenda item #"),
			strings.Contains(lower, "agenda item") && strings.Contains(lower, "#"),
			strings.Contains(lower, "vote number"),
			strings.Contains(lower, "motion") && strings.Contains(lower, "id"):
			if cols.MotionIDCol == -1 {
				cols.MotionIDCol = i
			}
		}

		if lower == "vote" || (strings.Contains(lower, "vote") && strings.Contains(lower, "value")) {
			if cols.VoteCol == -1 {
				cols.VoteCol = i
			}
		}

		switch {
		case strings.Contains(lower, "first name"):
			cols.FirstNameCol = i
		case strings.Contains(lower, "last name"):
			cols.LastNameCol = i
		case strings.Contains(lower, "councillor") || strings.Contains(lower, "member"):
			if cols.CouncillorCol == -1 {
				cols.CouncillorCol = i
			}
		}

		switch {
		case strings.Contains(lower, "agenda item title"),
			strings.Contains(lower, "motion title"),
			strings.Contains(lower, "agenda title"):
			if cols.AgendaTitleCol == -1 {
				cols.AgendaTitleCol = i
			}
		case strings.Contains(lower, "vote description"),
			strings.Contains(lower, "result") && strings.Contains(lower, "description"):
			if cols.VoteDescriptionCol == -1 {
				cols.VoteDescriptionCol = i
			}
		}

		switch {
		case strings.Contains(lower, "date/time"),
			strings.Contains(lower, "date") && strings.Contains(lower, "time"),
			strings.Contains(lower, "meeting") && strings.Contains(lower, "date"):
			if cols.MeetingDateCol == -1 {
				cols.MeetingDateCol = i
			}
		}

		if strings.Contains(lower, "motion type") ||
			(strings.Contains(lower, "motion") && strings.Contains(lower, "type")) {
			if cols.MotionTypeCol == -1 {
				cols.MotionTypeCol = i
			}
		}
	}

	if cols.MotionIDCol == -1 || cols.VoteCol == -1 {
		return nil, etlerrors.NewResolutionError("", "required voting columns not found (motion id, vote)")
	}
	if cols.MotionTypeCol == -1 {
		return nil, etlerrors.NewResolutionError("", "motion type column required for vote categorization not found")
	}
	return cols, nil
}
