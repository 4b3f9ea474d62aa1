package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"cityetl/catalog"
	"cityetl/database"
	"cityetl/extract"
	"cityetl/internal/config"
	"cityetl/normalize"
	"cityetl/pipeline"
	"cityetl/records"
	"cityetl/schema"
)

// thousandsMultiplier план капитального бюджета публикуется в тысячах долларов
const thousandsMultiplier = 1000

func main() {
	packageID := flag.String("package-id", "budget-capital-budget-plan-by-ward-10-yr-approved", "CKAN package ID")
	resourceID := flag.String("resource-id", "", "Explicit resource ID (skips selection)")
	baseYear := flag.Int("base-year", 0, "Base fiscal year for offset-mode sheets (0 = infer from resource name)")
	allowDetails := flag.Bool("allow-details", false, "Do not prefer by-ward resources")
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

	var resource catalog.Resource
	if *resourceID != "" {
		found, err := client.ResourceShow(ctx, *resourceID)
		if err != nil {
			log.Fatalf("Failed to fetch resource %s: %v", *resourceID, err)
		}
		resource = *found
	} else {
		var preferNames []string
		if !*allowDetails {
			preferNames = []string{"by-ward"}
		}
		resource, err = catalog.SelectResource(pkg.Resources, "XLSX", preferNames)
		if err != nil {
			log.Fatalf("Failed to select resource: %v", err)
		}
	}
	log.Printf("Selected resource %s (%s)", resource.Name, resource.ID)

	localPath, err := client.DownloadResource(ctx, resource, cfg.RawDir)
	if err != nil {
		log.Fatalf("Failed to download resource: %v", err)
	}
	log.Printf("Downloaded %s", localPath)

	// Базовый год выводится только из диапазона лет ("2024-2033") в имени
	// ресурса или файла; одиночный год — не диапазон плана. Без базового
	// года разрешение колонок в режиме смещений завершится ошибкой.
	year := *baseYear
	if year == 0 {
		year, _, _ = normalize.ExtractYearRange(resource.Name + " " + filepath.Base(localPath))
	}

	runner := pipeline.NewRunner()
	docs := []pipeline.Document{{
		Path: localPath,
		Provenance: records.Provenance{
			SourceFile:   filepath.Base(localPath),
			SourceURL:    resource.URL,
			ResourceID:   resource.ID,
			ResourceName: resource.Name,
			PackageID:    pkg.ID,
		},
	}}

	facts, failures, err := runner.Run(docs, func(doc pipeline.Document) ([]records.Fact, error) {
		sheets, err := pipeline.LoadWorkbook(doc.Path)
		if err != nil {
			return nil, err
		}
		sheet, ok := schema.SelectSheet(sheets, schema.ScoreCapitalSheet)
		if !ok {
			return nil, fmt.Errorf("no capital budget sheet found in %s", doc.Path)
		}
		res, err := schema.ResolveCapitalColumns(sheet, year)
		if err != nil {
			return nil, err
		}
		return extract.ExtractCapital(sheet, res, extract.CapitalOptions{
			UnitMultiplier: thousandsMultiplier,
			Provenance:     doc.Provenance,
			IngestedAt:     runner.IngestedAt,
		})
	})
	if err != nil {
		log.Fatalf("Extraction failed: %v (failures: %+v)", err, failures)
	}

	store, err := database.NewStore(cfg.DatabasePath, database.DBConfig{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.InsertFacts(database.DatasetCapital, facts); err != nil {
		log.Fatalf("Failed to store facts: %v", err)
	}

	log.Printf("Run %s: stored %d capital facts from %s", runner.RunID, len(facts), resource.Name)
}
