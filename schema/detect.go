package schema

import (
	"strings"

	"cityetl/etlerrors"
	"cityetl/normalize"
)

// maxColumns возвращает ширину самой широкой строки листа
func maxColumns(sheet Sheet) int {
	width := len(sheet.Headers)
	for _, row := range sheet.Rows {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// DetectDescriptionColumn находит колонку описаний в листе без заголовков:
// выбирается колонка с наибольшей средней длиной строковых значений.
// Если лучший кандидат содержит меньше 10 значений, используется резервный
// позиционный индекс.
func DetectDescriptionColumn(sheet Sheet, fallback int) int {
	bestCol := -1
	bestScore := 0.0
	bestCount := 0

	width := maxColumns(sheet)
	for col := 0; col < width; col++ {
		total := 0
		count := 0
		for _, row := range sheet.Rows {
			value := strings.TrimSpace(Cell(row, col))
			if value == "" {
				continue
			}
			// числовые значения не считаются описаниями
			if _, ok := normalize.ParseAmount(value); ok {
				continue
			}
			total += len(value)
			count++
		}
		if count == 0 {
			continue
		}
		avg := float64(total) / float64(count)
		if avg > bestScore {
			bestScore = avg
			bestCol = col
			bestCount = count
		}
	}

	if fallback >= 0 && fallback < width {
		if bestCol == -1 || bestCount < 10 {
			return fallback
		}
	}
	if bestCol == -1 {
		return 0
	}
	return bestCol
}

// amountSearchRows число первых строк, в которых ищутся маркерные фразы
const amountSearchRows = 20

// minNumericRatio минимальная доля числовых значений в найденной колонке.
// Колонка с маркерной фразой, но почти без чисел — это колонка подписей,
// случайно содержащая маркер в тексте.
const minNumericRatio = 0.05

// DetectAmountColumn находит колонку сумм. Сначала по первым строкам ищется
// колонка с известной маркерной фразой (например "total revenues"); если
// найденная колонка не проходит порог числовых значений, берётся резервный
// позиционный индекс; в последнюю очередь — колонка с максимальным числом
// числовых значений.
func DetectAmountColumn(sheet Sheet, markers []string, fallback int) (int, error) {
	width := maxColumns(sheet)

	searchRows := len(sheet.Rows)
	if searchRows > amountSearchRows {
		searchRows = amountSearchRows
	}

	markerCol := -1
	for rowIdx := 0; rowIdx < searchRows && markerCol == -1; rowIdx++ {
		row := sheet.Rows[rowIdx]
		for col := 0; col < width; col++ {
			lowered := strings.ToLower(Cell(row, col))
			for _, marker := range markers {
				if strings.Contains(lowered, marker) {
					markerCol = col
					break
				}
			}
			if markerCol != -1 {
				break
			}
		}
	}

	if markerCol != -1 {
		if ColumnNumericRatio(sheet, markerCol) >= minNumericRatio {
			return markerCol, nil
		}
		if fallback >= 0 && fallback < width {
			return fallback, nil
		}
	}

	if markerCol == -1 && fallback >= 0 && fallback < width {
		return fallback, nil
	}

	// Ни маркера, ни резервного индекса: берем самую числовую колонку
	bestCol := -1
	bestCount := 0
	for col := 0; col < width; col++ {
		count := 0
		for _, row := range sheet.Rows {
			if _, ok := normalize.ParseAmount(Cell(row, col)); ok {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestCol = col
		}
	}

	if bestCol == -1 {
		return 0, etlerrors.NewResolutionError(sheet.Name, "could not detect a numeric amount column")
	}
	return bestCol, nil
}

// ColumnNumericRatio доля числовых значений среди непустых ячеек колонки
func ColumnNumericRatio(sheet Sheet, col int) float64 {
	total := 0
	numeric := 0
	for _, row := range sheet.Rows {
		value := strings.TrimSpace(Cell(row, col))
		if value == "" {
			continue
		}
		total++
		if _, ok := normalize.ParseAmount(value); ok {
			numeric++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(numeric) / float64(total)
}

// detectYearSearchRows число первых строк, в которых ищется фискальный год
const detectYearSearchRows = 10

// DetectYearInSheet ищет 4-значный год в ячейках первых строк листа.
// Финансовые отчёты несут год в шапке листа, а не в имени колонки.
func DetectYearInSheet(sheet Sheet) (int, bool) {
	rows := len(sheet.Rows)
	if rows > detectYearSearchRows {
		rows = detectYearSearchRows
	}
	for rowIdx := 0; rowIdx < rows; rowIdx++ {
		for _, value := range sheet.Rows[rowIdx] {
			if year, ok := normalize.ExtractYear(value); ok {
				return year, true
			}
		}
	}
	return 0, false
}

// ValidateColumn проверяет, что обнаруженная колонка содержит непустые
// значения. Вызывается до извлечения; диагностика включает роль и индекс.
func ValidateColumn(sheet Sheet, col int, role string) error {
	if col < 0 || col >= maxColumns(sheet) {
		return etlerrors.NewValidationError(role, col, "column index out of range")
	}

	nonEmpty := 0
	for _, row := range sheet.Rows {
		if strings.TrimSpace(Cell(row, col)) != "" {
			nonEmpty++
		}
	}
	if nonEmpty == 0 {
		return etlerrors.NewValidationError(role, col, "detected column is empty")
	}
	return nil
}
