package main

import (
	"context"
	"flag"
	"log"
	"time"

	"cityetl/catalog"
	"cityetl/database"
	"cityetl/internal/config"
	"cityetl/lobbyist"
)

func main() {
	packageID := flag.String("package-id", "lobbyist-registry", "CKAN package ID")
	resourceID := flag.String("resource-id", "", "Explicit resource ID (skips selection)")
	recentMonths := flag.Int("recent-months", 0, "Only include activity from recent N months (0 = all)")
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

	var resource catalog.Resource
	if *resourceID != "" {
		found, err := client.ResourceShow(ctx, *resourceID)
		if err != nil {
			log.Fatalf("Failed to fetch resource %s: %v", *resourceID, err)
		}
		resource = *found
	} else {
		pkg, err := client.PackageShow(ctx, *packageID)
		if err != nil {
			log.Fatalf("Failed to fetch package %s: %v", *packageID, err)
		}
		resource, err = catalog.SelectResource(pkg.Resources, "ZIP", nil)
		if err != nil {
			log.Fatalf("Failed to select resource: %v", err)
		}
	}
	log.Printf("Selected resource %s (%s)", resource.Name, resource.ID)

	zipPath, err := client.DownloadResource(ctx, resource, cfg.RawDir)
	if err != nil {
		log.Fatalf("Failed to download archive: %v", err)
	}
	log.Printf("Downloaded %s", zipPath)

	raws, err := lobbyist.ParseArchive(zipPath)
	if err != nil {
		log.Fatalf("Failed to parse archive: %v", err)
	}
	log.Printf("Parsed %d raw activity records", len(raws))

	activities := lobbyist.BuildActivities(raws, lobbyist.BuildOptions{
		SourceResourceID: resource.ID,
		IngestedAt:       time.Now().UTC().Format(time.RFC3339),
	})
	if *recentMonths > 0 {
		before := len(activities)
		activities = lobbyist.FilterRecentMonths(activities, *recentMonths, time.Now())
		log.Printf("Filtered to %d of %d records from last %d months", len(activities), before, *recentMonths)
	}
	if len(activities) == 0 {
		log.Fatal("No lobbyist activities after normalization")
	}

	store, err := database.NewStore(cfg.DatabasePath, database.DBConfig{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.ReplaceLobbyistActivities(activities); err != nil {
		log.Fatalf("Failed to store activities: %v", err)
	}

	log.Printf("Stored %d lobbyist activities; categories: %v; types: %v",
		len(activities), lobbyist.CategoryCounts(activities), lobbyist.TypeCounts(activities))
}
