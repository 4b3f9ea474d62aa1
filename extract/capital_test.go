package extract

import (
	"errors"
	"testing"

	"cityetl/etlerrors"
	"cityetl/schema"
)

func capitalSheet(headers []string, rows [][]string) (schema.Sheet, *schema.CapitalResolution, error) {
	sheet := schema.Sheet{Name: "By Ward", Headers: headers, Rows: rows}
	res, err := schema.ResolveCapitalColumns(sheet, 2024)
	return sheet, res, err
}

func TestExtractCapitalExplicitYears(t *testing.T) {
	sheet, res, err := capitalSheet(
		[]string{"Ward Number", "Ward Name", "2022", "2023"},
		[][]string{
			{"1", "Spadina", "10", "20"},
			{"2", "Davenport", "0", "5"},
		},
	)
	if err != nil {
		t.Fatalf("resolution failed: %v", err)
	}

	facts, err := ExtractCapital(sheet, res, CapitalOptions{IngestedAt: "2026-01-01T00:00:00Z"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Одна запись на каждое ненулевое значение; нулевое значение 2022 года
	// второй строки пропущено
	if len(facts) != 3 {
		t.Fatalf("got %d facts, want 3", len(facts))
	}

	want := []struct {
		year   int
		ward   string
		amount float64
	}{
		{2022, "1", 10},
		{2023, "1", 20},
		{2023, "2", 5},
	}
	for i, w := range want {
		fact := facts[i]
		ward, _ := fact.Dimension("ward_number")
		if fact.FiscalYear != w.year || ward != w.ward || fact.Amount != w.amount {
			t.Errorf("fact[%d] = year %d ward %s amount %v, want %+v", i, fact.FiscalYear, ward, fact.Amount, w)
		}
	}
}

func TestExtractCapitalOffsetYears(t *testing.T) {
	sheet, res, err := capitalSheet(
		[]string{"Ward Number", "Ward Name", "Year 1", "Year 2", "Year 3"},
		[][]string{
			{"4", "Parkdale", "10", "0", "(5)"},
		},
	)
	if err != nil {
		t.Fatalf("resolution failed: %v", err)
	}

	facts, err := ExtractCapital(sheet, res, CapitalOptions{UnitMultiplier: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Год 2 пропущен (ноль); суммы масштабированы из тысяч
	if len(facts) != 2 {
		t.Fatalf("got %d facts, want 2", len(facts))
	}
	if facts[0].FiscalYear != 2024 || facts[0].Amount != 10000 {
		t.Errorf("fact[0] = %d/%v, want 2024/10000", facts[0].FiscalYear, facts[0].Amount)
	}
	if facts[1].FiscalYear != 2026 || facts[1].Amount != -5000 {
		t.Errorf("fact[1] = %d/%v, want 2026/-5000", facts[1].FiscalYear, facts[1].Amount)
	}
	if facts[1].YearOffset != 3 {
		t.Errorf("fact[1].YearOffset = %d, want 3", facts[1].YearOffset)
	}
}

func TestExtractCapitalCityWideSentinel(t *testing.T) {
	sheet, res, err := capitalSheet(
		[]string{"Ward Number", "Ward Name", "2024"},
		[][]string{
			{"cw", "City Wide", "7"},
			{"CW", "City Wide", "3"},
		},
	)
	if err != nil {
		t.Fatalf("resolution failed: %v", err)
	}

	facts, err := ExtractCapital(sheet, res, CapitalOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, fact := range facts {
		ward, _ := fact.IntDimension("ward_number")
		if ward != CityWideWard {
			t.Errorf("city-wide row mapped to ward %d, want %d", ward, CityWideWard)
		}
	}
}

func TestExtractCapitalSkipsUnusableRows(t *testing.T) {
	sheet, res, err := capitalSheet(
		[]string{"Ward Number", "Ward Name", "2024"},
		[][]string{
			{"", "Missing number", "10"},
			{"3", "", "10"},
			{"junk", "No digits", "10"},
			{"5", "Etobicoke Centre", "10"},
		},
	)
	if err != nil {
		t.Fatalf("resolution failed: %v", err)
	}

	facts, err := ExtractCapital(sheet, res, CapitalOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facts) != 1 {
		t.Fatalf("got %d facts, want 1", len(facts))
	}
	name, _ := facts[0].Dimension("ward_name")
	if name != "Etobicoke Centre" {
		t.Errorf("survivor ward = %q", name)
	}
}

func TestExtractCapitalAllRowsSkipped(t *testing.T) {
	sheet, res, err := capitalSheet(
		[]string{"Ward Number", "Ward Name", "2024"},
		[][]string{
			{"1", "Spadina", "0"},
			{"2", "Davenport", ""},
		},
	)
	if err != nil {
		t.Fatalf("resolution failed: %v", err)
	}

	_, err = ExtractCapital(sheet, res, CapitalOptions{})
	var extErr *etlerrors.ExtractionError
	if !errors.As(err, &extErr) {
		t.Fatalf("expected ExtractionError, got %v", err)
	}
}

func TestExtractCapitalProjectDimensions(t *testing.T) {
	sheet := schema.Sheet{
		Name: "Details",
		Headers: []string{
			"Ward Number", "Ward Name", "Program Name", "Project Name", "Category", "2024",
		},
		Rows: [][]string{
			{"9", "York Centre", "Parks", "Playground rebuild", "State of Good Repair", "150"},
		},
	}
	res, err := schema.ResolveCapitalColumns(sheet, 0)
	if err != nil {
		t.Fatalf("resolution failed: %v", err)
	}

	facts, err := ExtractCapital(sheet, res, CapitalOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fact := facts[0]
	for key, want := range map[string]string{
		"program_name": "Parks",
		"project_name": "Playground rebuild",
		"category":     "State of Good Repair",
	} {
		if got, _ := fact.Dimension(key); got != want {
			t.Errorf("dimension %s = %q, want %q", key, got, want)
		}
	}
	if err := fact.Validate(); err != nil {
		t.Errorf("extracted fact should be valid: %v", err)
	}
}

func TestFactInsertionOrder(t *testing.T) {
	sheet, res, err := capitalSheet(
		[]string{"Ward Number", "Ward Name", "2023", "2022"},
		[][]string{
			{"1", "Spadina", "1", "2"},
			{"2", "Davenport", "3", "4"},
		},
	)
	if err != nil {
		t.Fatalf("resolution failed: %v", err)
	}

	facts, err := ExtractCapital(sheet, res, CapitalOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Порядок: строки листа, годы по возрастанию внутри строки
	var got []int
	for _, fact := range facts {
		got = append(got, fact.FiscalYear)
	}
	want := []int{2022, 2023, 2022, 2023}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("year order = %v, want %v", got, want)
		}
	}

	wardOrder := []string{"1", "1", "2", "2"}
	for i, fact := range facts {
		if ward, _ := fact.Dimension("ward_number"); ward != wardOrder[i] {
			t.Fatalf("ward order violated at %d: got %s want %s", i, ward, wardOrder[i])
		}
	}
}
