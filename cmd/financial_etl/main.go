package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"cityetl/catalog"
	"cityetl/database"
	"cityetl/extract"
	"cityetl/internal/config"
	"cityetl/pipeline"
	"cityetl/records"
	"cityetl/schema"
)

var yearTokenRe = regexp.MustCompile(`20\d{2}`)

// Маркеры итоговых колонок финансового отчёта (Schedule 10 / Schedule 40)
var (
	revenueMarkers     = []string{"own purposes revenue", "total revenues"}
	expenditureMarkers = []string{"total expenses"}
)

// Запасные индексы колонок, если маркеры не нашлись: исторически стабильные
// позиции в формах финансового отчёта
const (
	descFallbackCol       = 3
	revenueAmountFallback = 9
	expenseAmountFallback = 17
)

// findSheet ищет лист по подстроке имени, затем по запасным подстрокам
func findSheet(sheets []schema.Sheet, primary string, fallbacks []string) (schema.Sheet, bool) {
	for _, sheet := range sheets {
		if strings.Contains(strings.ToLower(sheet.Name), primary) {
			return sheet, true
		}
	}
	for _, fragment := range fallbacks {
		for _, sheet := range sheets {
			if strings.Contains(strings.ToLower(sheet.Name), fragment) {
				return sheet, true
			}
		}
	}
	return schema.Sheet{}, false
}

func extractReturn(doc pipeline.Document, fiscalYears map[int]bool, ingestedAt string, byYear map[int]map[string]float64) ([]records.Fact, error) {
	sheets, err := pipeline.LoadWorkbook(doc.Path)
	if err != nil {
		return nil, err
	}

	revenue, ok := findSheet(sheets, "revenue", []string{"schedule 10", "sch 10", "sch10"})
	if !ok {
		return nil, fmt.Errorf("no revenue sheet in %s", doc.Path)
	}
	expense, ok := findSheet(sheets, "expense", []string{"schedule 40", "sch 40", "sch40"})
	if !ok {
		return nil, fmt.Errorf("no expense sheet in %s", doc.Path)
	}

	year, ok := schema.DetectYearInSheet(revenue)
	if !ok {
		year, ok = schema.DetectYearInSheet(expense)
	}
	if !ok {
		match := yearTokenRe.FindString(filepath.Base(doc.Path))
		if match == "" {
			return nil, fmt.Errorf("could not determine fiscal year for %s", doc.Path)
		}
		year, _ = strconv.Atoi(match)
	}
	if len(fiscalYears) > 0 && !fiscalYears[year] {
		log.Printf("Skipping %s: fiscal year %d not requested", filepath.Base(doc.Path), year)
		return nil, nil
	}

	revenueDescCol := schema.DetectDescriptionColumn(revenue, descFallbackCol)
	expenseDescCol := schema.DetectDescriptionColumn(expense, descFallbackCol)

	revenueAmountCol, err := schema.DetectAmountColumn(revenue, revenueMarkers, revenueAmountFallback)
	if err != nil {
		return nil, err
	}
	expenseAmountCol, err := schema.DetectAmountColumn(expense, expenditureMarkers, expenseAmountFallback)
	if err != nil {
		return nil, err
	}

	if err := schema.ValidateColumn(revenue, revenueAmountCol, "revenue amount"); err != nil {
		return nil, err
	}
	if err := schema.ValidateColumn(expense, expenseAmountCol, "expense amount"); err != nil {
		return nil, err
	}

	facts := extract.ExtractFinancialSheet(revenue, extract.FlowRevenue, year, revenueAmountCol, revenueDescCol, doc.Provenance, ingestedAt)
	facts = append(facts, extract.ExtractFinancialSheet(expense, extract.FlowExpenditure, year, expenseAmountCol, expenseDescCol, doc.Provenance, ingestedAt)...)

	extract.MergeSummaryTotals(byYear, year, extract.SummaryTotals(revenue, revenueDescCol, revenueAmountCol))
	extract.MergeSummaryTotals(byYear, year, extract.SummaryTotals(expense, expenseDescCol, expenseAmountCol))

	return facts, nil
}

func main() {
	packageID := flag.String("package-id", "financial-information-return", "CKAN package ID")
	yearsFlag := flag.String("fiscal-years", "", "Comma-separated fiscal years to extract (empty = all)")
	flag.Parse()

	fiscalYears := map[int]bool{}
	if *yearsFlag != "" {
		for _, token := range strings.Split(*yearsFlag, ",") {
			year, err := strconv.Atoi(strings.TrimSpace(token))
			if err != nil {
				log.Fatalf("Invalid fiscal year %q", token)
			}
			fiscalYears[year] = true
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	client := catalog.NewClient(catalog.ClientConfig{
		BaseURL:         cfg.CKANBaseURL,
		Timeout:         cfg.CKANTimeout,
		DownloadTimeout: cfg.DownloadTimeout,
	})
	ctx := context.Background()

	pkg, err := client.PackageShow(ctx, *packageID)
	if err != nil {
		log.Fatalf("Failed to fetch package %s: %v", *packageID, err)
	}

	// Финансовый отчёт публикуется отдельным XLSX на каждый год; обходим все
	var docs []pipeline.Document
	for _, resource := range pkg.Resources {
		if !strings.EqualFold(resource.Format, "XLSX") {
			continue
		}
		localPath, err := client.DownloadResource(ctx, resource, cfg.RawDir)
		if err != nil {
			log.Printf("Warning: failed to download %s: %v", resource.Name, err)
			continue
		}
		docs = append(docs, pipeline.Document{
			Path: localPath,
			Provenance: records.Provenance{
				SourceFile:   filepath.Base(localPath),
				SourceURL:    resource.URL,
				ResourceID:   resource.ID,
				ResourceName: resource.Name,
				PackageID:    pkg.ID,
			},
		})
	}
	if len(docs) == 0 {
		log.Fatalf("No XLSX resources downloaded from package %s", *packageID)
	}

	runner := pipeline.NewRunner()
	summaryByYear := map[int]map[string]float64{}

	facts, failures, err := runner.Run(docs, func(doc pipeline.Document) ([]records.Fact, error) {
		return extractReturn(doc, fiscalYears, runner.IngestedAt, summaryByYear)
	})
	if err != nil {
		log.Fatalf("Extraction failed: %v (failures: %+v)", err, failures)
	}
	for _, failure := range failures {
		log.Printf("Warning: resource %s failed: %s", failure.ResourceName, failure.Message)
	}

	aggregates, err := extract.AggregateFinancial(facts, pkg.ID, runner.IngestedAt)
	if err != nil {
		log.Fatalf("Aggregation failed: %v", err)
	}

	store, err := database.NewStore(cfg.DatabasePath, database.DBConfig{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.InsertFacts(database.DatasetFinancial, facts); err != nil {
		log.Fatalf("Failed to store facts: %v", err)
	}

	log.Printf("Run %s: stored %d financial facts (%d aggregates, %d years of summary totals)",
		runner.RunID, len(facts), len(aggregates), len(summaryByYear))
}
