// Package cli holds the command-line collaborators that feed the
// forecasting core: CSV history and outlook loaders and report writers.
// File parsing stays out here so the engine packages only ever see
// validated in-memory records.
package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "storepulse/internal/errors"
	"storepulse/internal/forecast"
)

const dateLayout = "2006-01-02"

// history CSV columns, by header name
const (
	colDate        = "date"
	colVisits      = "visit_count"
	colHoliday     = "is_holiday"
	colPayday      = "is_payday"
	colPromo       = "promo_type"
	colPriceChange = "price_change"
	colWeather     = "weather"
	colSales       = "sales"
)

// LoadHistory reads daily visit records from a CSV file. The first row
// must be a header; date and visit_count are required, the remaining
// covariate columns are optional and may appear in any order.
func LoadHistory(path string) ([]forecast.VisitRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open history file: %w", err)
	}
	defer f.Close()
	return ParseHistory(f)
}

// ParseHistory reads history records from CSV data
func ParseHistory(r io.Reader) ([]forecast.VisitRecord, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewData(apperrors.CodeMalformedSchema, "history CSV has no header row")
	}
	cols, err := indexColumns(header, colDate, colVisits)
	if err != nil {
		return nil, err
	}

	var records []forecast.VisitRecord
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewData(apperrors.CodeMalformedSchema,
				fmt.Sprintf("history CSV line %d: %v", line+1, err))
		}
		line++

		rec, err := parseRecord(row, cols, line)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// LoadOutlook reads future covariate rows used for multi-step forecasts.
// Same column conventions as the history file, minus visit_count.
func LoadOutlook(path string) ([]forecast.ExogenousOutlook, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open outlook file: %w", err)
	}
	defer f.Close()
	return ParseOutlook(f)
}

// ParseOutlook reads outlook rows from CSV data
func ParseOutlook(r io.Reader) ([]forecast.ExogenousOutlook, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.NewData(apperrors.CodeMalformedSchema, "outlook CSV has no header row")
	}
	cols, err := indexColumns(header, colDate)
	if err != nil {
		return nil, err
	}

	var outlook []forecast.ExogenousOutlook
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, apperrors.NewData(apperrors.CodeMalformedSchema,
				fmt.Sprintf("outlook CSV line %d: %v", line+1, err))
		}
		line++

		date, err := parseDate(cell(row, cols, colDate), line)
		if err != nil {
			return nil, err
		}
		priceChange, err := parseOptionalFloat(cell(row, cols, colPriceChange), colPriceChange, line)
		if err != nil {
			return nil, err
		}
		sales, err := parseOptionalFloat(cell(row, cols, colSales), colSales, line)
		if err != nil {
			return nil, err
		}
		outlook = append(outlook, forecast.ExogenousOutlook{
			Date:        date,
			PromoType:   strings.TrimSpace(cell(row, cols, colPromo)),
			PriceChange: priceChange,
			Weather:     strings.TrimSpace(cell(row, cols, colWeather)),
			Sales:       sales,
		})
	}
	return outlook, nil
}

func indexColumns(header []string, required ...string) (map[string]int, error) {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range required {
		if _, ok := cols[name]; !ok {
			return nil, apperrors.NewData(apperrors.CodeMalformedSchema,
				fmt.Sprintf("CSV is missing required column %q", name))
		}
	}
	return cols, nil
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func parseRecord(row []string, cols map[string]int, line int) (forecast.VisitRecord, error) {
	var rec forecast.VisitRecord

	date, err := parseDate(cell(row, cols, colDate), line)
	if err != nil {
		return rec, err
	}
	visits, err := strconv.Atoi(strings.TrimSpace(cell(row, cols, colVisits)))
	if err != nil {
		return rec, apperrors.NewData(apperrors.CodeMalformedSchema,
			fmt.Sprintf("line %d: visit_count %q is not an integer", line, cell(row, cols, colVisits)))
	}
	priceChange, err := parseOptionalFloat(cell(row, cols, colPriceChange), colPriceChange, line)
	if err != nil {
		return rec, err
	}
	sales, err := parseOptionalFloat(cell(row, cols, colSales), colSales, line)
	if err != nil {
		return rec, err
	}

	rec = forecast.VisitRecord{
		Date:        date,
		VisitCount:  visits,
		IsHoliday:   parseBool(cell(row, cols, colHoliday)),
		IsPayday:    parseBool(cell(row, cols, colPayday)),
		PromoType:   strings.TrimSpace(cell(row, cols, colPromo)),
		PriceChange: priceChange,
		Weather:     strings.TrimSpace(cell(row, cols, colWeather)),
		Sales:       sales,
	}
	return rec, nil
}

func parseDate(s string, line int) (time.Time, error) {
	date, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, apperrors.NewData(apperrors.CodeMalformedSchema,
			fmt.Sprintf("line %d: date %q is not in YYYY-MM-DD form", line, s))
	}
	return date, nil
}

func parseOptionalFloat(s, name string, line int) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, apperrors.NewData(apperrors.CodeMalformedSchema,
			fmt.Sprintf("line %d: %s %q is not numeric", line, name, s))
	}
	return v, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
