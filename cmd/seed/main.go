package main

// Development seeding tool. Loads a small demo universe (properties,
// signals, one contractor with a roofing territory), refreshes zip
// statistics, runs a scoring pass, and generates roofing leads so the
// API has data to serve out of the box.

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"home-services-leads/internal/cache"
	"home-services-leads/internal/config"
	"home-services-leads/internal/database"
	"home-services-leads/internal/leads"
	"home-services-leads/internal/models"
	"home-services-leads/internal/scores"
	"home-services-leads/internal/signals"
	"home-services-leads/internal/territory"
	"home-services-leads/internal/zipstats"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Printf("Config load failed (%v), using defaults", err)
		cfg = config.DefaultConfig()
	}

	gormDB, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer gormDB.Close()

	if err := gormDB.InitSchema(); err != nil {
		log.Fatalf("Failed to migrate schema: %v", err)
	}

	db := gormDB.DB()
	now := time.Now().UTC()

	properties := demoProperties()
	for i := range properties {
		if err := db.Save(&properties[i]).Error; err != nil {
			log.Fatalf("Failed to seed property %s: %v", properties[i].PropID, err)
		}
	}
	log.Printf("Seeded %d properties", len(properties))

	signalStore := signals.NewStore(db, cfg.Scoring)
	n, err := signalStore.Ingest(demoSignals(now))
	if err != nil {
		log.Fatalf("Failed to ingest signals: %v", err)
	}
	log.Printf("Ingested %d signals", n)

	refresher := zipstats.NewRefresher(db, signalStore)
	zips, err := refresher.RefreshAll(now)
	if err != nil {
		log.Fatalf("Failed to refresh zip stats: %v", err)
	}
	log.Printf("Refreshed stats for %d zips", zips)

	var scoreCache *cache.ScoreCache
	if c, err := cache.New(cfg.Redis); err == nil {
		scoreCache = c
	}

	scoreService := scores.NewService(db, cfg, signalStore, scoreCache)
	ids := make([]string, len(properties))
	for i, p := range properties {
		ids[i] = p.PropID
	}
	for _, trade := range models.Trades {
		results, batchErrs, err := scoreService.ScoreBatch(context.Background(), ids, trade, now)
		if err != nil {
			log.Fatalf("Scoring pass failed for %s: %v", trade, err)
		}
		for _, be := range batchErrs {
			log.Printf("Score error: %v", be)
		}
		log.Printf("Scored %d properties for %s", len(results), trade)
	}

	ledger := territory.NewLedger(db, gormDB.SupportsPartialIndex())
	contractor := models.Contractor{
		ID:          "demo-contractor-1",
		CompanyName: "Peachtree Roofing Co",
		ContactName: "Dana Whitfield",
		Email:       "dana@peachtreeroofing.example",
		Trades:      "roofing,siding",
		Status:      "active",
	}
	if err := db.Save(&contractor).Error; err != nil {
		log.Fatalf("Failed to seed contractor: %v", err)
	}
	if _, err := ledger.Assign(contractor.ID, "30301", models.TradeRoofing, nil); err != nil {
		if !errors.Is(err, territory.ErrConflict) {
			log.Fatalf("Failed to assign territory: %v", err)
		}
		log.Printf("Territory 30301/roofing already held, skipping")
	} else {
		log.Printf("Assigned 30301/roofing to %s", contractor.CompanyName)
	}

	generator := leads.NewGenerator(db, ledger, cfg.Trades, cfg.LeadGen)
	created, err := generator.Generate(leads.GenerateRequest{Trade: models.TradeRoofing})
	if err != nil {
		log.Fatalf("Lead generation failed: %v", err)
	}
	assigned := 0
	for i := range created {
		if _, ok, err := generator.AssignToTerritoryHolder(created[i].ID); err == nil && ok {
			assigned++
		}
	}
	log.Printf("Generated %d roofing leads, %d assigned to territory holders", len(created), assigned)
	log.Println("Seeding complete")
}

func demoProperties() []models.Property {
	return []models.Property{
		property("P1001", "412 Juniper St NE", "30301", 485000, 2004, true),
		property("P1002", "78 Boulevard Pl SE", "30301", 310000, 2009, true),
		property("P1003", "1540 Dekalb Ave", "30307", 625000, 1998, false),
		property("P1004", "22 Howell Mill Rd", "30318", 275000, 2015, true),
		property("P1005", "901 Glenwood Ave SE", "30316", 390000, 2001, true),
	}
}

func property(id, address, zip string, value float64, yearBuilt int, ownerOccupied bool) models.Property {
	return models.Property{
		PropID:        id,
		Address:       address,
		ZipCode:       zip,
		MarketValue:   &value,
		YearBuilt:     &yearBuilt,
		OwnerOccupied: ownerOccupied,
	}
}

func demoSignals(now time.Time) []models.Signal {
	p1, p2, p3, p5 := "P1001", "P1002", "P1003", "P1005"
	return []models.Signal{
		{
			Variant: models.SignalStormEvent, NaturalID: "NOAA-2026-0412",
			PropertyID: &p1, LinkConfidence: 0.9,
			OccurredAt: now.AddDate(0, 0, -6),
			Magnitude:  1.25, MagnitudeUnit: "inches",
			Category: "hail", ZipCode: "30301", Source: "noaa",
		},
		{
			Variant: models.SignalViolation, NaturalID: "ATL-V-88231",
			PropertyID: &p1, LinkConfidence: 0.95,
			OccurredAt: now.AddDate(0, 0, -3),
			Category:   "roof", Description: "Damaged shingles and gutter separation",
			ZipCode: "30301", Source: "code_enforcement",
		},
		{
			Variant: models.SignalServiceRequest, NaturalID: "311-2026-55102",
			PropertyID: &p2, LinkConfidence: 0.85,
			OccurredAt: now.AddDate(0, 0, -12),
			Category:   "hvac", Description: "AC unit not cooling",
			ZipCode: "30301", Source: "city_311",
		},
		{
			Variant: models.SignalViolation, NaturalID: "ATL-V-88977",
			PropertyID: &p3, LinkConfidence: 0.7,
			OccurredAt: now.AddDate(0, 0, -40),
			Category:   "exterior", Description: "Peeling siding on street face",
			ZipCode: "30307", Source: "code_enforcement",
		},
		{
			Variant: models.SignalDeedRecord, NaturalID: "DEED-2026-17704",
			PropertyID: &p5, LinkConfidence: 0.98,
			OccurredAt: now.AddDate(0, 0, -20),
			Category:   "transfer", ZipCode: "30316", Source: "county_records",
		},
		{
			Variant: models.SignalStormEvent, NaturalID: "NOAA-2026-0415",
			PropertyID: &p5, LinkConfidence: 0.88,
			OccurredAt: now.AddDate(0, 0, -18),
			Magnitude:  72, MagnitudeUnit: "mph",
			Category: "wind", ZipCode: "30316", Source: "noaa",
		},
	}
}
