package extract

import (
	"strconv"
	"strings"

	"cityetl/etlerrors"
	"cityetl/normalize"
	"cityetl/records"
	"cityetl/schema"
)

// CityWideSentinel значение колонки номера района для общегородских проектов
const CityWideSentinel = "CW"

// CityWideWard зарезервированный код района для общегородских проектов
const CityWideWard = 0

// CapitalOptions параметры извлечения капитального бюджета
type CapitalOptions struct {
	// UnitMultiplier масштаб единиц исходных сумм: план публикуется в
	// тысячах, поэтому вызывающая сторона передаёт 1000. Ноль означает
	// отсутствие масштабирования.
	UnitMultiplier float64
	Provenance     records.Provenance
	IngestedAt     string
}

// ExtractCapital обходит строки разрешённого листа капитального бюджета и
// порождает канонические записи: по одной на непустую (строка, год) пару.
// Строки без номера или имени района пропускаются; сентинель "CW"
// отображается в зарезервированный код 0, а не пропускается. Порядок вывода —
// порядок вставки: строки в порядке листа, годы по возрастанию внутри строки.
func ExtractCapital(sheet schema.Sheet, res *schema.CapitalResolution, opts CapitalOptions) ([]records.Fact, error) {
	multiplier := opts.UnitMultiplier
	if multiplier == 0 {
		multiplier = 1
	}

	var facts []records.Fact
	for _, row := range sheet.Rows {
		wardRaw := strings.TrimSpace(schema.Cell(row, res.WardNumberCol))
		wardName := strings.TrimSpace(schema.Cell(row, res.WardNameCol))

		var wardNumber int
		if strings.EqualFold(wardRaw, CityWideSentinel) {
			wardNumber = CityWideWard
		} else {
			parsed, ok := normalize.ParseDimensionCode(wardRaw)
			if !ok {
				continue
			}
			wardNumber = parsed
		}

		if wardName == "" {
			continue
		}

		dims := []records.Dimension{
			{Key: "ward_number", Value: strconv.Itoa(wardNumber)},
			{Key: "ward_name", Value: wardName},
		}
		if program, ok := cellText(row, res.ProgramCol); ok {
			dims = append(dims, records.Dimension{Key: "program_name", Value: program})
		}
		if project, ok := cellText(row, res.ProjectCol); ok {
			dims = append(dims, records.Dimension{Key: "project_name", Value: project})
		}
		if subProject, ok := cellText(row, res.SubProjectCol); ok {
			dims = append(dims, records.Dimension{Key: "sub_project_name", Value: subProject})
		}
		if category, ok := cellText(row, res.CategoryCol); ok {
			dims = append(dims, records.Dimension{Key: "category", Value: category})
		}

		for _, yc := range res.Years {
			amount, ok := normalize.ParseAmount(schema.Cell(row, yc.Column))
			if !ok || amount == 0 {
				continue
			}

			offset := yc.Offset
			if res.Mode == schema.YearModeExplicit {
				offset = res.YearOffset(yc.FiscalYear)
			}

			facts = append(facts, records.Fact{
				FiscalYear: yc.FiscalYear,
				Dimensions: dims,
				Amount:     amount * multiplier,
				YearOffset: offset,
				Provenance: opts.Provenance,
				IngestedAt: opts.IngestedAt,
			})
		}
	}

	if len(facts) == 0 {
		return nil, etlerrors.NewExtractionError(sheet.Name, "no qualifying rows after skip rules")
	}
	return facts, nil
}

// cellText возвращает очищенный текст ячейки роли, если роль найдена
func cellText(row []string, col int) (string, bool) {
	if col < 0 {
		return "", false
	}
	return normalize.CleanText(schema.Cell(row, col))
}
