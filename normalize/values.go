package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Сентинельные значения, которые считаются пустыми в выгрузках открытых данных
var emptyTokens = map[string]struct{}{
	"":    {},
	"na":  {},
	"n/a": {},
	"-":   {},
	"nan": {},
}

var (
	digitRunRe    = regexp.MustCompile(`\d+`)
	yearTokenRe   = regexp.MustCompile(`^20\d{2}$`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	trailingAmPm  = regexp.MustCompile(`(?i)\s+(AM|PM)$`)
	trailingParen = regexp.MustCompile(`\s*\([^)]*\)\s*$`)
)

// ParseAmount парсит денежное значение из ячейки таблицы.
// Возвращает false для пустых и нечисловых значений (NA, N/A, "-" и т.п.).
// Значение в круглых скобках трактуется как отрицательное (бухгалтерская
// нотация). Масштабирование единиц (например, тысячи) здесь не выполняется —
// это политика вызывающей стороны.
func ParseAmount(raw string) (float64, bool) {
	text := strings.TrimSpace(raw)
	if _, empty := emptyTokens[strings.ToLower(text)]; empty {
		return 0, false
	}

	negative := strings.HasPrefix(text, "(") && strings.HasSuffix(text, ")")
	if negative {
		text = text[1 : len(text)-1]
	}

	cleaned := strings.ReplaceAll(text, "$", "")
	cleaned = strings.ReplaceAll(cleaned, ",", "")
	cleaned = strings.TrimSpace(cleaned)

	number, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}

	if negative {
		return -number, true
	}
	return number, true
}

// ParseDimensionCode извлекает первый числовой идентификатор из смешанного
// токена ("Ward 12" -> 12). Сентинель "CW" здесь не обрабатывается:
// отображение city-wide в код 0 — ответственность экстрактора.
func ParseDimensionCode(raw string) (int, bool) {
	match := digitRunRe.FindString(raw)
	if match == "" {
		return 0, false
	}
	code, err := strconv.Atoi(match)
	if err != nil {
		return 0, false
	}
	return code, true
}

// Форматы дат, встречающиеся в выгрузках городского портала
var dateFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"01/02/2006 15:04",
	"01/02/2006",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
}

// ParseDate парсит дату из строки и возвращает её в формате ISO (2006-01-02).
// Портал иногда отдаёт значения вида "2025-05-22 16:50 PM" — избыточный
// 12-часовой маркер после 24-часового времени отбрасывается до парсинга.
// Никогда не паникует: при неудаче возвращает false.
func ParseDate(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	if _, empty := emptyTokens[strings.ToLower(text)]; empty {
		return "", false
	}

	text = trailingAmPm.ReplaceAllString(text, "")

	for _, format := range dateFormats {
		if t, err := time.Parse(format, text); err == nil {
			return t.Format("2006-01-02"), true
		}
	}
	return "", false
}

// ParseYearToken распознаёт значение как фискальный год в диапазоне 2000..2100.
// Принимает целое число, float вида "2024.0" или строку ровно из четырёх цифр.
// Диапазон защищает от случайных числовых колонок, похожих на годы.
func ParseYearToken(raw string) (int, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return 0, false
	}

	// Excel часто отдаёт числовые заголовки как float
	if f, err := strconv.ParseFloat(text, 64); err == nil {
		year := int(f)
		if float64(year) == f && year >= 2000 && year <= 2100 {
			return year, true
		}
		return 0, false
	}

	if !yearTokenRe.MatchString(text) {
		return 0, false
	}
	year, _ := strconv.Atoi(text)
	return year, true
}

// ExtractYear находит первый 4-значный год (20xx) внутри произвольного текста
func ExtractYear(raw string) (int, bool) {
	match := regexp.MustCompile(`20\d{2}`).FindString(raw)
	if match == "" {
		return 0, false
	}
	year, _ := strconv.Atoi(match)
	return year, true
}

// ExtractYearRange находит первые два 4-значных года в тексте (в текстовом
// порядке). Используется для вывода базового года из имени ресурса вида
// "capital-budget-2024-2033".
func ExtractYearRange(raw string) (int, int, bool) {
	matches := regexp.MustCompile(`20\d{2}`).FindAllString(raw, -1)
	if len(matches) < 2 {
		return 0, 0, false
	}
	first, _ := strconv.Atoi(matches[0])
	second, _ := strconv.Atoi(matches[1])
	return first, second, true
}

// NormalizeHeader приводит заголовок колонки к канонической форме:
// схлопывает пробелы, обрезает края, переводит в нижний регистр
func NormalizeHeader(raw string) string {
	return strings.ToLower(strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " ")))
}

// CleanText обрезает пробелы и возвращает false для пустых значений
func CleanText(raw string) (string, bool) {
	text := strings.TrimSpace(raw)
	if text == "" || strings.EqualFold(text, "nan") {
		return "", false
	}
	return text, true
}

// CleanLabel нормализует описание финансовой строки: схлопывает пробелы и
// отбрасывает завершающую скобочную приписку ("Taxation (own purposes)" ->
// "Taxation")
func CleanLabel(raw string) string {
	cleaned := strings.TrimSpace(whitespaceRe.ReplaceAllString(raw, " "))
	cleaned = strings.TrimSpace(trailingParen.ReplaceAllString(cleaned, ""))
	return cleaned
}
