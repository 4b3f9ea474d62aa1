package extract

import (
	"cityetl/etlerrors"
	"cityetl/normalize"
	"cityetl/records"
	"cityetl/schema"
)

// Роли измерений операционного бюджета: нормализованный заголовок -> ключ
var operatingDimensionRoles = []struct {
	header string
	key    string
}{
	{"program", "program"},
	{"service", "service"},
	{"activity", "activity"},
	{"expense/revenue", "expense_revenue"},
	{"category name", "category_name"},
	{"sub-category name", "sub_category_name"},
	{"commitment item", "commitment_item"},
}

// DetectOperatingYearColumn находит колонку сумм нужного фискального года:
// сначала по точному совпадению года в заголовке, затем по колонке с
// максимальным числом числовых значений
func DetectOperatingYearColumn(sheet schema.Sheet, fiscalYear int) (int, error) {
	for i, header := range sheet.Headers {
		if year, ok := normalize.ParseYearToken(header); ok && year == fiscalYear {
			return i, nil
		}
	}
	for i, header := range sheet.Headers {
		if year, ok := normalize.ExtractYear(header); ok && year == fiscalYear {
			return i, nil
		}
	}

	bestCol := -1
	bestCount := 0
	for col := range sheet.Headers {
		count := 0
		for _, row := range sheet.Rows {
			if _, ok := normalize.ParseAmount(schema.Cell(row, col)); ok {
				count++
			}
		}
		if count > bestCount {
			bestCount = count
			bestCol = col
		}
	}
	if bestCol == -1 {
		return 0, etlerrors.NewResolutionError(sheet.Name, "unable to detect a numeric amount column")
	}
	return bestCol, nil
}

// ExtractOperating извлекает строки сводки операционного бюджета в
// канонические записи. Измерения берутся из известных колонок
// (программа, служба, вид деятельности и т.д.); строки с пустой или
// нулевой суммой пропускаются.
func ExtractOperating(sheet schema.Sheet, fiscalYear int, prov records.Provenance, ingestedAt string) ([]records.Fact, error) {
	yearCol, err := DetectOperatingYearColumn(sheet, fiscalYear)
	if err != nil {
		return nil, err
	}

	roleCols := make(map[string]int, len(operatingDimensionRoles))
	for i, header := range sheet.Headers {
		normalized := normalize.NormalizeHeader(header)
		for _, role := range operatingDimensionRoles {
			if normalized == role.header {
				if _, seen := roleCols[role.key]; !seen {
					roleCols[role.key] = i
				}
			}
		}
	}

	var facts []records.Fact
	for _, row := range sheet.Rows {
		amount, ok := normalize.ParseAmount(schema.Cell(row, yearCol))
		if !ok || amount == 0 {
			continue
		}

		var dims []records.Dimension
		for _, role := range operatingDimensionRoles {
			col, found := roleCols[role.key]
			if !found {
				continue
			}
			if value, okText := normalize.CleanText(schema.Cell(row, col)); okText {
				dims = append(dims, records.Dimension{Key: role.key, Value: value})
			}
		}
		if len(dims) == 0 {
			continue
		}

		facts = append(facts, records.Fact{
			FiscalYear: fiscalYear,
			Dimensions: dims,
			Amount:     amount,
			Label:      firstDimension(dims, "program"),
			Provenance: prov,
			IngestedAt: ingestedAt,
		})
	}

	if len(facts) == 0 {
		return nil, etlerrors.NewExtractionError(sheet.Name, "no operating budget rows parsed for %d", fiscalYear)
	}
	return facts, nil
}

func firstDimension(dims []records.Dimension, key string) string {
	for _, d := range dims {
		if d.Key == key {
			return d.Value
		}
	}
	return ""
}
