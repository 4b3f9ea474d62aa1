package schema

import (
	"errors"
	"testing"

	"cityetl/etlerrors"
)

func TestSelectSheetPrefersScoredSheet(t *testing.T) {
	sheets := []Sheet{
		{Name: "Notes", Headers: []string{"Comment", "Author"}},
		{
			Name:    "By Ward",
			Headers: []string{"Ward Number", "Ward Name", "Year 1", "Year 2"},
		},
		{Name: "Glossary", Headers: []string{"Term", "Definition"}},
	}

	sheet, scored := SelectSheet(sheets, ScoreCapitalSheet)
	if !scored {
		t.Fatal("expected a positively scored sheet")
	}
	if sheet.Name != "By Ward" {
		t.Errorf("selected %q, want %q", sheet.Name, "By Ward")
	}
}

func TestSelectSheetFailsSoftToFirst(t *testing.T) {
	sheets := []Sheet{
		{Name: "First", Headers: []string{"A", "B"}},
		{Name: "Second", Headers: []string{"C", "D"}},
	}

	sheet, scored := SelectSheet(sheets, ScoreCapitalSheet)
	if scored {
		t.Fatal("no sheet should score positively")
	}
	if sheet.Name != "First" {
		t.Errorf("fail-soft should pick the first sheet, got %q", sheet.Name)
	}
}

func TestResolveCapitalColumnsExplicitYears(t *testing.T) {
	sheet := Sheet{
		Name:    "By Ward",
		Headers: []string{"Ward Number", "Ward Name", "Program Name", "Category", "2023", "2022"},
	}

	res, err := ResolveCapitalColumns(sheet, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Mode != YearModeExplicit {
		t.Fatal("explicit year columns must take precedence")
	}
	if len(res.Years) != 2 {
		t.Fatalf("got %d year columns, want 2", len(res.Years))
	}
	// Годы отсортированы по возрастанию независимо от порядка колонок
	if res.Years[0].FiscalYear != 2022 || res.Years[0].Column != 5 {
		t.Errorf("first year = %+v, want 2022 at column 5", res.Years[0])
	}
	if res.Years[1].FiscalYear != 2023 || res.Years[1].Column != 4 {
		t.Errorf("second year = %+v, want 2023 at column 4", res.Years[1])
	}
	if res.BaseYear != 2022 {
		t.Errorf("base year = %d, want 2022", res.BaseYear)
	}
}

func TestResolveCapitalColumnsOffsetYears(t *testing.T) {
	sheet := Sheet{
		Name:    "10 Year Plan",
		Headers: []string{"Ward Number", "Ward", "Year 1", "Year 2", "Year 10"},
	}

	res, err := ResolveCapitalColumns(sheet, 2024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Mode != YearModeOffset {
		t.Fatal("expected offset mode")
	}
	want := []struct {
		year, offset, col int
	}{
		{2024, 1, 2},
		{2025, 2, 3},
		{2033, 10, 4},
	}
	for i, w := range want {
		got := res.Years[i]
		if got.FiscalYear != w.year || got.Offset != w.offset || got.Column != w.col {
			t.Errorf("year[%d] = %+v, want year %d offset %d column %d", i, got, w.year, w.offset, w.col)
		}
	}
}

func TestResolveCapitalColumnsOffsetWithoutBaseYear(t *testing.T) {
	sheet := Sheet{
		Name:    "10 Year Plan",
		Headers: []string{"Ward Number", "Ward Name", "Year 1"},
	}

	_, err := ResolveCapitalColumns(sheet, 0)
	var resErr *etlerrors.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
}

func TestResolveCapitalColumnsMissingWard(t *testing.T) {
	sheet := Sheet{
		Name:    "Summary",
		Headers: []string{"Program Name", "2024"},
	}

	_, err := ResolveCapitalColumns(sheet, 0)
	var resErr *etlerrors.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
}

func TestResolveVotingColumns(t *testing.T) {
	headers := []string{
		"Term", "Agenda Item #", "Agenda Item Title", "Motion Type",
		"Vote", "Result", "Vote Description", "Date/Time", "First Name", "Last Name",
	}

	cols, err := ResolveVotingColumns(headers)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cols.MotionIDCol != 1 {
		t.Errorf("MotionIDCol = %d, want 1", cols.MotionIDCol)
	}
	if cols.VoteCol != 4 {
		t.Errorf("VoteCol = %d, want 4", cols.VoteCol)
	}
	if cols.MotionTypeCol != 3 {
		t.Errorf("MotionTypeCol = %d, want 3", cols.MotionTypeCol)
	}
	if cols.FirstNameCol != 8 || cols.LastNameCol != 9 {
		t.Errorf("name columns = %d,%d, want 8,9", cols.FirstNameCol, cols.LastNameCol)
	}
	if cols.MeetingDateCol != 7 {
		t.Errorf("MeetingDateCol = %d, want 7", cols.MeetingDateCol)
	}
	if cols.AgendaTitleCol != 2 {
		t.Errorf("AgendaTitleCol = %d, want 2", cols.AgendaTitleCol)
	}
}

func TestResolveVotingColumnsMissingRequired(t *testing.T) {
	_, err := ResolveVotingColumns([]string{"Committee", "Date/Time"})
	var resErr *etlerrors.ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected ResolutionError, got %v", err)
	}
}

func TestDetectAmountColumnByMarker(t *testing.T) {
	sheet := Sheet{
		Name: "Sch 10",
		Rows: [][]string{
			{"", "Schedule 10", "", ""},
			{"", "Description", "", "Own Purposes Revenue"},
			{"", "Taxation", "", "1,200"},
			{"", "User fees", "", "300"},
			{"", "Licences", "", "55"},
		},
	}

	col, err := DetectAmountColumn(sheet, []string{"own purposes revenue"}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col != 3 {
		t.Errorf("amount column = %d, want 3", col)
	}
}

func TestDetectAmountColumnNumericRatioGuard(t *testing.T) {
	// Маркер находится в колонке подписей без чисел: защита должна
	// переключить на резервный индекс
	sheet := Sheet{
		Name: "Sch 40",
		Rows: [][]string{
			{"Notes about total expenses", "", "10"},
			{"More narrative text here", "", "20"},
			{"Even more narrative", "", "30"},
		},
	}

	col, err := DetectAmountColumn(sheet, []string{"total expenses"}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if col != 2 {
		t.Errorf("amount column = %d, want fallback 2", col)
	}
}

func TestDetectDescriptionColumn(t *testing.T) {
	sheet := Sheet{
		Name: "Sch 10",
		Rows: [][]string{
			{"1", "Taxation for general municipal purposes", "500"},
			{"2", "User fees and service charges", "300"},
			{"3", "Licences, permits and rents", "200"},
			{"4", "Fines and penalties levied", "100"},
			{"5", "Investment income earned in year", "50"},
			{"6", "Grants from other governments", "75"},
			{"7", "Development charges earned", "60"},
			{"8", "Donations and contributed assets", "10"},
			{"9", "Gains on sale of land", "20"},
			{"10", "Other revenues not classified", "30"},
		},
	}

	if col := DetectDescriptionColumn(sheet, -1); col != 1 {
		t.Errorf("description column = %d, want 1", col)
	}
}

func TestDetectYearInSheet(t *testing.T) {
	sheet := Sheet{
		Rows: [][]string{
			{"", "Financial Information Return"},
			{"", "For the year ended December 31, 2023"},
			{"Description", "Amount"},
		},
	}

	year, ok := DetectYearInSheet(sheet)
	if !ok || year != 2023 {
		t.Errorf("DetectYearInSheet = %d,%v, want 2023,true", year, ok)
	}
}

func TestValidateColumn(t *testing.T) {
	sheet := Sheet{
		Rows: [][]string{
			{"a", ""},
			{"b", ""},
		},
	}

	if err := ValidateColumn(sheet, 0, "description"); err != nil {
		t.Errorf("column 0 should validate, got %v", err)
	}

	err := ValidateColumn(sheet, 1, "amount")
	var valErr *etlerrors.ValidationError
	if !errors.As(err, &valErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if valErr.Role != "amount" || valErr.Column != 1 {
		t.Errorf("diagnostic = role %q column %d, want amount/1", valErr.Role, valErr.Column)
	}
}
