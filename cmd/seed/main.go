package main

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/seojinhan/matjip-backend/config"
	"github.com/seojinhan/matjip-backend/internal/app/model"
	"github.com/seojinhan/matjip-backend/internal/app/repository"
	"github.com/seojinhan/matjip-backend/internal/db"
	"github.com/seojinhan/matjip-backend/pkg/util"
	"github.com/xuri/excelize/v2"
)

// Seeds the restaurants table from an XLSX export. Expected columns:
// name, category, city, price (currency symbols, e.g. "$$"),
// photo_url (optional). Aggregate fields start at zero; they are only
// ever written by review submission.
func main() {
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <xlsx_file_path>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	gormDB, err := db.Connect(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close(gormDB)

	if err := db.Migrate(gormDB); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	restaurantRepo := repository.NewRestaurantRepository(gormDB)

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	restaurants, err := readRestaurantsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("Total restaurants to import: %d\n", len(restaurants))

	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	batchSize := 1000
	fmt.Printf("Starting bulk import with batch size: %d\n", batchSize)
	if err := restaurantRepo.BulkCreate(restaurants, batchSize); err != nil {
		log.Fatal("Failed to bulk create restaurants:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total restaurants imported: %d\n", len(restaurants))
}

func readRestaurantsFromXLSX(filePath string) ([]model.Restaurant, error) {
	f, err := excelize.OpenFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open XLSX file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("no sheets found in XLSX file")
	}

	fmt.Printf("Reading sheet: %s\n", sheetName)

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows: %w", err)
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("no data found in XLSX file")
	}

	var restaurants []model.Restaurant
	seen := make(map[string]bool)
	skippedCount := 0

	for i, row := range rows {
		if i == 0 {
			fmt.Printf("Headers: %v\n", row)
			continue
		}

		if len(row) < 4 {
			skippedCount++
			continue
		}

		name := strings.TrimSpace(row[0])
		category := strings.TrimSpace(row[1])
		city := strings.TrimSpace(row[2])
		priceSymbols := strings.TrimSpace(row[3])

		var photoURL string
		if len(row) > 4 {
			photoURL = strings.TrimSpace(row[4])
		}

		if name == "" || category == "" || city == "" {
			skippedCount++
			continue
		}

		price := util.ParsePriceTier(priceSymbols)
		if price == 0 {
			skippedCount++
			continue
		}

		// Dedupe on name+city
		key := fmt.Sprintf("%s|%s", name, city)
		if seen[key] {
			skippedCount++
			continue
		}
		seen[key] = true

		restaurants = append(restaurants, model.Restaurant{
			Name:     name,
			Category: category,
			City:     city,
			Price:    price,
			PhotoURL: photoURL,
		})

		if len(restaurants)%1000 == 0 {
			fmt.Printf("Processed %d restaurants...\n", len(restaurants))
		}
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total rows: %d\n", len(rows)-1)
	fmt.Printf("  Valid restaurants: %d\n", len(restaurants))
	fmt.Printf("  Skipped rows: %d\n", skippedCount)

	return restaurants, nil
}
