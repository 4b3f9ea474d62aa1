package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/xuri/excelize/v2"
)

// Категории капитальных проектов для генерации
var capitalCategories = []string{
	"Health & Safety", "State of Good Repair", "Service Improvement",
	"Growth Related", "Legislated",
}

var capitalPrograms = []string{
	"Transportation Services", "Toronto Water", "Parks & Recreation",
	"Toronto Public Library", "Shelter Support", "Fire Services",
}

var motionTypes = []string{
	"Adopt Item", "Adopt Item as Amended", "Amend Item (Additional)",
	"Defer Item", "Refer Item", "Receive Item",
}

var voteValues = []string{"Yes", "Yes", "Yes", "No", "Absent"}

// generateCapitalWorkbook пишет книгу в раскладке плана капитального бюджета
// по районам: Year 1..Year 10 со смещёнными годами, суммы в тысячах
func generateCapitalWorkbook(path string, rows int) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := "Capital Plan by Ward"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	header := []interface{}{"Ward Number", "Ward Name", "Program Name", "Project Name", "Category"}
	for year := 1; year <= 10; year++ {
		header = append(header, fmt.Sprintf("Year %d", year))
	}
	header = append(header, "Total 10 Year")
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return err
	}

	for i := 0; i < rows; i++ {
		wardNumber := strconv.Itoa(gofakeit.Number(1, 25))
		wardName := gofakeit.City()
		if i%10 == 0 {
			// Общегородские проекты помечаются сентинелем CW
			wardNumber = "CW"
			wardName = "City Wide"
		}

		row := []interface{}{
			wardNumber,
			wardName,
			gofakeit.RandomString(capitalPrograms),
			gofakeit.Sentence(3),
			gofakeit.RandomString(capitalCategories),
		}
		total := 0
		for year := 1; year <= 10; year++ {
			amount := 0
			if gofakeit.Bool() {
				amount = gofakeit.Number(50, 25000)
			}
			total += amount
			row = append(row, amount)
		}
		row = append(row, total)

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}

	return f.SaveAs(path)
}

// generateVotingCSV пишет поток голосований в раскладке реестра заседаний:
// несколько движений на пункт повестки, по строке на депутата и движение
func generateVotingCSV(path string, motions, councillors int) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Term", "First Name", "Last Name", "Committee", "Date/Time",
		"Agenda Item #", "Agenda Item Title", "Motion Type", "Vote",
		"Result", "Vote Description",
	}
	if err := writer.Write(header); err != nil {
		return err
	}

	type member struct{ first, last string }
	members := make([]member, councillors)
	for i := range members {
		members[i] = member{gofakeit.FirstName(), gofakeit.LastName()}
	}

	base := time.Now().AddDate(0, -11, 0)
	for m := 0; m < motions; m++ {
		motionID := fmt.Sprintf("2025.%s%d.%d", gofakeit.RandomString([]string{"EX", "PH", "IE", "CC"}), gofakeit.Number(1, 30), m+1)
		title := gofakeit.Sentence(6)
		meeting := base.AddDate(0, 0, gofakeit.Number(0, 330)).Format("2006-01-02 15:04") + " PM"

		rowMotions := []string{"Adopt Item"}
		if gofakeit.Bool() {
			rowMotions = append(rowMotions, gofakeit.RandomString(motionTypes))
		}
		for _, motionType := range rowMotions {
			for _, mem := range members {
				record := []string{
					"2022-2026", mem.first, mem.last, "City Council", meeting,
					motionID, title, motionType, gofakeit.RandomString(voteValues),
					"Carried", "Majority required - " + title,
				}
				if err := writer.Write(record); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func main() {
	outDir := flag.String("out", "testdata", "Output directory")
	capitalRows := flag.Int("capital-rows", 120, "Capital workbook data rows")
	voteMotions := flag.Int("vote-motions", 40, "Number of agenda items in the vote stream")
	voteCouncillors := flag.Int("vote-councillors", 25, "Councillors per motion")
	seed := flag.Int64("seed", 0, "Random seed (0 = fixed default)")
	flag.Parse()

	gofakeit.Seed(*seed)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("Failed to create output directory: %v", err)
	}

	workbookPath := filepath.Join(*outDir, "capital-budget-plan-by-ward.xlsx")
	if err := generateCapitalWorkbook(workbookPath, *capitalRows); err != nil {
		log.Fatalf("Failed to generate capital workbook: %v", err)
	}
	log.Printf("Wrote %s (%d rows)", workbookPath, *capitalRows)

	votingPath := filepath.Join(*outDir, "council-voting-records.csv")
	if err := generateVotingCSV(votingPath, *voteMotions, *voteCouncillors); err != nil {
		log.Fatalf("Failed to generate voting records: %v", err)
	}
	log.Printf("Wrote %s (%d motions x %d councillors)", votingPath, *voteMotions, *voteCouncillors)
}
