package pipeline

import (
	"errors"
	"testing"

	"cityetl/etlerrors"
	"cityetl/records"
)

func TestRunnerIsolatesFailures(t *testing.T) {
	runner := NewRunner()
	if runner.RunID == "" || runner.IngestedAt == "" {
		t.Fatalf("runner not initialized: %+v", runner)
	}

	docs := []Document{
		{Provenance: records.Provenance{ResourceID: "ok", ResourceName: "good.xlsx"}},
		{Provenance: records.Provenance{ResourceID: "bad", ResourceName: "broken.xlsx"}},
	}

	facts, failures, err := runner.Run(docs, func(doc Document) ([]records.Fact, error) {
		if doc.Provenance.ResourceID == "bad" {
			return nil, etlerrors.NewResolutionError(doc.Provenance.ResourceName, "no usable sheet")
		}
		return []records.Fact{{
			FiscalYear: 2024,
			Dimensions: []records.Dimension{{Key: "ward_number", Value: "1"}},
			Amount:     10,
		}}, nil
	})

	if err != nil {
		t.Fatalf("partial failure should not abort the run: %v", err)
	}
	if len(facts) != 1 {
		t.Errorf("got %d facts, want 1", len(facts))
	}
	if len(failures) != 1 || failures[0].ResourceID != "bad" {
		t.Errorf("failures = %+v", failures)
	}
}

func TestRunnerFailsOnEmptyRun(t *testing.T) {
	runner := NewRunner()
	docs := []Document{
		{Provenance: records.Provenance{ResourceID: "a"}},
		{Provenance: records.Provenance{ResourceID: "b"}},
	}

	_, failures, err := runner.Run(docs, func(doc Document) ([]records.Fact, error) {
		return nil, etlerrors.NewExtractionError(doc.Provenance.ResourceID, "no qualifying rows")
	})

	var aggErr *etlerrors.AggregationError
	if !errors.As(err, &aggErr) {
		t.Fatalf("expected AggregationError, got %v", err)
	}
	if len(failures) != 2 {
		t.Errorf("failures = %+v", failures)
	}
}

func TestSheetFromRecords(t *testing.T) {
	recs := []map[string]string{
		{"Vote": "Yes", "Agenda Item #": "2026.EX1.1", "Motion Type": "Adopt Item"},
		{"Vote": "No", "Agenda Item #": "2026.EX1.1", "Motion Type": "Adopt Item"},
	}

	sheet := SheetFromRecords("voting", recs)

	// Колонки отсортированы для детерминированного порядка
	want := []string{"Agenda Item #", "Motion Type", "Vote"}
	if len(sheet.Headers) != len(want) {
		t.Fatalf("headers = %v", sheet.Headers)
	}
	for i := range want {
		if sheet.Headers[i] != want[i] {
			t.Fatalf("headers = %v, want %v", sheet.Headers, want)
		}
	}
	if len(sheet.Rows) != 2 || sheet.Rows[1][2] != "No" {
		t.Errorf("rows = %v", sheet.Rows)
	}

	empty := SheetFromRecords("empty", nil)
	if len(empty.Headers) != 0 || len(empty.Rows) != 0 {
		t.Errorf("empty sheet = %+v", empty)
	}
}
