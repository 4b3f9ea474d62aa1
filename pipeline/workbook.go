package pipeline

import (
	"fmt"
	"sort"

	"github.com/xuri/excelize/v2"

	"cityetl/schema"
)

// LoadWorkbook читает книгу Excel в список листов: первая строка каждого
// листа считается заголовками, остальные — данными. Пустые листы
// пропускаются.
func LoadWorkbook(path string) ([]schema.Sheet, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	var sheets []schema.Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("failed to get rows of %s: %w", name, err)
		}
		if len(rows) == 0 {
			continue
		}
		sheet := schema.Sheet{Name: name, Headers: rows[0]}
		if len(rows) > 1 {
			sheet.Rows = rows[1:]
		}
		sheets = append(sheets, sheet)
	}

	if len(sheets) == 0 {
		return nil, fmt.Errorf("no non-empty sheets found in %s", path)
	}
	return sheets, nil
}

// SheetFromRecords собирает лист из плоских записей datastore. Колонки
// берутся из первой записи и сортируются для детерминированного порядка.
func SheetFromRecords(name string, recs []map[string]string) schema.Sheet {
	sheet := schema.Sheet{Name: name}
	if len(recs) == 0 {
		return sheet
	}

	headers := make([]string, 0, len(recs[0]))
	for key := range recs[0] {
		headers = append(headers, key)
	}
	sort.Strings(headers)
	sheet.Headers = headers

	sheet.Rows = make([][]string, 0, len(recs))
	for _, record := range recs {
		row := make([]string, len(headers))
		for i, header := range headers {
			row[i] = record[header]
		}
		sheet.Rows = append(sheet.Rows, row)
	}
	return sheet
}
