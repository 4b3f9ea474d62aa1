package schema

import (
	"regexp"

	"cityetl/normalize"
)

// Sheet табличное представление листа книги: имя, строка заголовков и
// строки данных, как их отдаёт excelize (все ячейки — строки)
type Sheet struct {
	Name    string
	Headers []string
	Rows    [][]string
}

// Cell возвращает значение ячейки строки по индексу колонки; выход за
// границы рваной строки трактуется как пустая ячейка
func Cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

var offsetYearRe = regexp.MustCompile(`^year\s*\d{1,2}$`)

// isOffsetYearHeader распознаёт колонку смещённого года ("Year 1".."Year 10")
func isOffsetYearHeader(header string) bool {
	return offsetYearRe.MatchString(normalize.NormalizeHeader(header))
}

// ScoreCapitalSheet оценивает лист для капитального бюджета по наличию
// обязательных семантических колонок: имя района, номер района и хотя бы
// одна колонка года (явного или смещённого)
func ScoreCapitalSheet(sheet Sheet) int {
	hasWardName := false
	hasWardNumber := false
	hasOffsetYear := false
	hasExplicitYear := false

	for _, header := range sheet.Headers {
		normalized := normalize.NormalizeHeader(header)
		switch normalized {
		case "ward", "ward name":
			hasWardName = true
		case "ward number", "ward no", "ward #":
			hasWardNumber = true
		}
		if isOffsetYearHeader(header) {
			hasOffsetYear = true
		}
		if _, ok := normalize.ParseYearToken(header); ok {
			hasExplicitYear = true
		}
	}

	score := 0
	if hasWardName {
		score += 2
	}
	if hasWardNumber {
		score += 2
	}
	if hasOffsetYear || hasExplicitYear {
		score += 2
	}

	// Лист пригоден только при полном наборе
	if hasWardName && hasWardNumber && (hasOffsetYear || hasExplicitYear) {
		score += 4
	}
	return score
}

// Веса колонок операционного бюджета для выбора листа
var operatingWantedColumns = []struct {
	header string
	weight int
}{
	{"program", 3},
	{"service", 2},
	{"activity", 2},
	{"expense/revenue", 3},
	{"category name", 2},
	{"sub-category name", 1},
	{"commitment item", 2},
}

// ScoreOperatingSheet оценивает лист операционного бюджета по взвешенной
// таблице ожидаемых колонок плюс бонус за колонку нужного фискального года
func ScoreOperatingSheet(sheet Sheet, fiscalYear int) int {
	normalized := make(map[string]struct{}, len(sheet.Headers))
	for _, header := range sheet.Headers {
		normalized[normalize.NormalizeHeader(header)] = struct{}{}
	}

	score := 0
	for _, wanted := range operatingWantedColumns {
		if _, ok := normalized[wanted.header]; ok {
			score += wanted.weight
		}
	}

	for _, header := range sheet.Headers {
		if year, ok := normalize.ParseYearToken(header); ok && year == fiscalYear {
			score += 4
			break
		}
	}
	return score
}

// SelectSheet выбирает лист с максимальной оценкой. Если ни один лист не
// набрал положительного счёта, возвращается первый лист: на этом этапе отказ
// мягкий, жёсткая ошибка возможна позже при извлечении.
func SelectSheet(sheets []Sheet, score func(Sheet) int) (Sheet, bool) {
	if len(sheets) == 0 {
		return Sheet{}, false
	}

	best := -1
	bestIdx := 0
	for i, sheet := range sheets {
		if s := score(sheet); s > best {
			best = s
			bestIdx = i
		}
	}

	if best <= 0 {
		return sheets[0], false
	}
	return sheets[bestIdx], true
}
