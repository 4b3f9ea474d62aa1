package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"cityetl/database"
	"cityetl/extract"
	"cityetl/internal/config"
	"cityetl/rollup"
)

// writeJSON сериализует значение в файл с отступами, создавая каталоги
func writeJSON(path string, value interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create gold directory: %w", err)
	}
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	log.Printf("Wrote %s", path)
	return nil
}

func generateMoneyFlow(store *database.Store, goldDir, baseURL string, now time.Time) (int, error) {
	years, err := store.AvailableYears(database.DatasetFinancial)
	if err != nil {
		return 0, err
	}
	if len(years) == 0 {
		log.Println("No financial facts loaded, skipping money-flow gold files")
		return 0, nil
	}

	facts, err := store.AllFacts(database.DatasetFinancial)
	if err != nil {
		return 0, err
	}
	aggregates, err := extract.AggregateFinancial(facts, "", "")
	if err != nil {
		return 0, err
	}

	dir := filepath.Join(goldDir, "money-flow")
	for _, year := range years {
		summary := rollup.BuildMoneyFlowSummary(year, aggregates, years, now)
		if err := writeJSON(filepath.Join(dir, fmt.Sprintf("%d.json", year)), summary); err != nil {
			return 0, err
		}
	}

	index := rollup.BuildGoldIndex(years, baseURL+"/money-flow", now)
	if err := writeJSON(filepath.Join(dir, "index.json"), index); err != nil {
		return 0, err
	}
	return len(years), nil
}

func generateCapital(store *database.Store, goldDir, baseURL string, now time.Time) (int, error) {
	years, err := store.AvailableYears(database.DatasetCapital)
	if err != nil {
		return 0, err
	}
	if len(years) == 0 {
		log.Println("No capital facts loaded, skipping capital gold files")
		return 0, nil
	}

	dir := filepath.Join(goldDir, "capital")
	for _, year := range years {
		facts, err := store.FactsByYear(database.DatasetCapital, year)
		if err != nil {
			return 0, err
		}
		summary := rollup.BuildCapitalSummary(year, facts, now)
		if err := writeJSON(filepath.Join(dir, fmt.Sprintf("%d.json", year)), summary); err != nil {
			return 0, err
		}
	}

	index := rollup.BuildGoldIndex(years, baseURL+"/capital", now)
	if err := writeJSON(filepath.Join(dir, "index.json"), index); err != nil {
		return 0, err
	}
	return len(years), nil
}

func generateCouncil(store *database.Store, goldDir string, recentDays int, now time.Time) error {
	decisions, err := store.DecisionsSince("0000-01-01")
	if err != nil {
		return err
	}
	if len(decisions) == 0 {
		log.Println("No council decisions loaded, skipping council gold file")
		return nil
	}
	lobbying, err := store.LobbyistActivities()
	if err != nil {
		return err
	}

	summary := rollup.BuildCouncilSummary(decisions, lobbying, recentDays, now)
	return writeJSON(filepath.Join(goldDir, "council-decisions", "summary.json"), summary)
}

func main() {
	recentDays := flag.Int("recent-days", 365, "Window for recent council decisions")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	store, err := database.NewStore(cfg.DatabasePath, database.DBConfig{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	now := time.Now()

	moneyFlowYears, err := generateMoneyFlow(store, cfg.GoldDir, cfg.GoldBaseURL, now)
	if err != nil {
		log.Fatalf("Money-flow gold generation failed: %v", err)
	}
	capitalYears, err := generateCapital(store, cfg.GoldDir, cfg.GoldBaseURL, now)
	if err != nil {
		log.Fatalf("Capital gold generation failed: %v", err)
	}
	if err := generateCouncil(store, cfg.GoldDir, *recentDays, now); err != nil {
		log.Fatalf("Council gold generation failed: %v", err)
	}

	log.Printf("Gold generation complete: %d money-flow years, %d capital years", moneyFlowYears, capitalYears)
}
