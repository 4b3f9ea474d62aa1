package main

import (
	"context"
	"flag"
	"log"
	"time"

	"cityetl/catalog"
	"cityetl/database"
	"cityetl/internal/config"
	"cityetl/normalize"
	"cityetl/pipeline"
	"cityetl/records"
	"cityetl/schema"
	"cityetl/votes"
)

// selectDatastoreResource берёт первый ресурс пакета, доступный через
// datastore: реестр голосований публикуется одним активным CSV-ресурсом
func selectDatastoreResource(resources []catalog.Resource) (catalog.Resource, bool) {
	for _, resource := range resources {
		if resource.DatastoreActive {
			return resource, true
		}
	}
	return catalog.Resource{}, false
}

func main() {
	packageID := flag.String("package-id", "members-of-toronto-city-council-voting-record", "CKAN package ID")
	resourceID := flag.String("resource-id", "", "Explicit datastore resource ID (skips selection)")
	pageLimit := flag.Int("pagination-limit", 10000, "Datastore page size")
	recentMonths := flag.Int("recent-months", 0, "Only include votes from recent N months (0 = all)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	client := catalog.NewClient(catalog.ClientConfig{
		BaseURL: cfg.CKANBaseURL,
		Timeout: cfg.CKANTimeout,
	})
	ctx := context.Background()

	targetID := *resourceID
	if targetID == "" {
		pkg, err := client.PackageShow(ctx, *packageID)
		if err != nil {
			log.Fatalf("Failed to fetch package %s: %v", *packageID, err)
		}
		resource, ok := selectDatastoreResource(pkg.Resources)
		if !ok {
			log.Fatalf("No datastore-active resource in package %s", *packageID)
		}
		targetID = resource.ID
		log.Printf("Selected resource %s (%s)", resource.Name, resource.ID)
	}

	rows, err := client.DatastoreSearch(ctx, targetID, *pageLimit)
	if err != nil {
		log.Fatalf("Datastore download failed: %v", err)
	}
	log.Printf("Downloaded %d voting rows", len(rows))

	sheet := pipeline.SheetFromRecords("voting-record", rows)
	cols, err := schema.ResolveVotingColumns(sheet.Headers)
	if err != nil {
		log.Fatalf("Could not resolve voting columns: %v", err)
	}

	var cutoff string
	if *recentMonths > 0 {
		cutoff = time.Now().AddDate(0, 0, -*recentMonths*30).Format("2006-01-02")
	}

	aggregator := votes.NewAggregator()
	skipped := 0
	for _, cells := range sheet.Rows {
		row := votes.RowFromCells(cells, cols)
		if cutoff != "" {
			date, ok := normalize.ParseDate(row.MeetingDate)
			if !ok || date < cutoff {
				skipped++
				continue
			}
		}
		aggregator.Consume(row)
	}
	if skipped > 0 {
		log.Printf("Filtered out %d rows older than %d months", skipped, *recentMonths)
	}

	decisions := aggregator.Finalize(votes.FinalizeOptions{
		SourceResourceID: targetID,
		IngestedAt:       time.Now().UTC().Format(time.RFC3339),
	})
	if len(decisions) == 0 {
		log.Fatal("No decisions produced from voting rows")
	}

	store, err := database.NewStore(cfg.DatabasePath, database.DBConfig{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.ReplaceDecisions(decisions); err != nil {
		log.Fatalf("Failed to store decisions: %v", err)
	}

	passed, failed := 0, 0
	for _, decision := range decisions {
		switch decision.VoteOutcome {
		case records.OutcomePassed:
			passed++
		case records.OutcomeFailed:
			failed++
		}
	}
	log.Printf("Stored %d decisions (%d passed, %d failed); date range %s .. %s",
		len(decisions), passed, failed,
		decisions[len(decisions)-1].MeetingDate, decisions[0].MeetingDate)
}
