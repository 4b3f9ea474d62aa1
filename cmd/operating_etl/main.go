package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"sort"
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

func yearFromText(text string) int {
	match := yearTokenRe.FindString(text)
	if match == "" {
		return 0
	}
	year, _ := strconv.Atoi(match)
	return year
}

// selectResources отбирает утверждённые сводки операционного бюджета:
// по одному XLSX на год, в порядке возрастания года
func selectResources(resources []catalog.Resource) []catalog.Resource {
	var candidates []catalog.Resource
	for _, resource := range resources {
		if !strings.EqualFold(resource.Format, "XLSX") {
			continue
		}
		if !strings.Contains(strings.ToLower(resource.Name), "approved-operating-budget-summary") {
			continue
		}
		candidates = append(candidates, resource)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		yi := yearFromText(candidates[i].Name)
		if yi == 0 {
			yi = yearFromText(candidates[i].URL)
		}
		yj := yearFromText(candidates[j].Name)
		if yj == 0 {
			yj = yearFromText(candidates[j].URL)
		}
		return yi < yj
	})
	return candidates
}

func main() {
	packageID := flag.String("package-id", "budget-operating-budget-summary", "CKAN package ID")
	flag.Parse()

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

	resources := selectResources(pkg.Resources)
	if len(resources) == 0 {
		log.Fatalf("No approved operating budget summary resources found in %s", *packageID)
	}

	var docs []pipeline.Document
	for _, resource := range resources {
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

	runner := pipeline.NewRunner()
	facts, failures, err := runner.Run(docs, func(doc pipeline.Document) ([]records.Fact, error) {
		fiscalYear := yearFromText(doc.Provenance.ResourceName)
		if fiscalYear == 0 {
			fiscalYear = yearFromText(filepath.Base(doc.Path))
		}
		if fiscalYear == 0 {
			return nil, fmt.Errorf("could not determine fiscal year for %s", doc.Path)
		}

		sheets, err := pipeline.LoadWorkbook(doc.Path)
		if err != nil {
			return nil, err
		}
		sheet, ok := schema.SelectSheet(sheets, func(s schema.Sheet) int {
			return schema.ScoreOperatingSheet(s, fiscalYear)
		})
		if !ok {
			return nil, fmt.Errorf("no operating budget sheet found in %s", doc.Path)
		}

		return extract.ExtractOperating(sheet, fiscalYear, doc.Provenance, runner.IngestedAt)
	})
	if err != nil {
		log.Fatalf("Extraction failed: %v (failures: %+v)", err, failures)
	}
	for _, failure := range failures {
		log.Printf("Warning: resource %s failed: %s", failure.ResourceName, failure.Message)
	}

	store, err := database.NewStore(cfg.DatabasePath, database.DBConfig{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.InsertFacts(database.DatasetOperating, facts); err != nil {
		log.Fatalf("Failed to store facts: %v", err)
	}

	log.Printf("Run %s: stored %d operating budget facts from %d resources", runner.RunID, len(facts), len(docs))
}
