package csvdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/homepulse/housing-market-data/internal/market"
)

// DefaultMaxRecords bounds memory and time on constrained execution
// contexts. A policy knob, not a correctness requirement.
const DefaultMaxRecords = 5000

const dateLayout = "2006-01-02"

// Options tunes a parse run.
type Options struct {
	// MaxRecords keeps the first N records by input order; <=0 uses
	// DefaultMaxRecords.
	MaxRecords int
}

// RowError is a non-fatal per-row diagnostic. The row is skipped and the
// parse continues.
type RowError struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Reason)
}

// Result is the normalized output of one parse: entity records, their
// series keyed by record ID, and per-row diagnostics.
type Result struct {
	Format      Format
	Records     []market.MarketRecord
	Series      map[string]market.TimeSeries
	Diagnostics []RowError

	// PercentChange holds explicitly supplied percent-change values from
	// simple-format inputs, keyed by record ID.
	PercentChange map[string]float64
}

// Parse classifies and parses raw CSV text. Returns ErrFormatUnrecognized
// when the header matches neither schema; malformed rows are collected as
// diagnostics rather than failing the whole parse.
func Parse(raw string, opts Options) (*Result, error) {
	if opts.MaxRecords <= 0 {
		opts.MaxRecords = DefaultMaxRecords
	}

	reader := csv.NewReader(strings.NewReader(raw))
	reader.FieldsPerRecord = -1 // row-length mismatches become diagnostics

	header, err := reader.Read()
	if err != nil {
		return nil, ErrFormatUnrecognized
	}

	format, err := DetectFormat(header)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Format:        format,
		Series:        make(map[string]market.TimeSeries),
		PercentChange: make(map[string]float64),
	}

	switch format {
	case FormatWide:
		parseWide(reader, header, opts, result)
	case FormatSimple:
		parseSimple(reader, header, opts, result)
	}
	return result, nil
}

// columnIndex finds the first header cell whose lowercase form matches any
// of the given names. Returns -1 when absent.
func columnIndex(header []string, names ...string) int {
	for i, raw := range header {
		token := strings.ToLower(strings.TrimSpace(raw))
		for _, name := range names {
			if token == name {
				return i
			}
		}
	}
	return -1
}

func parseWide(reader *csv.Reader, header []string, opts Options, result *Result) {
	idCol := columnIndex(header, "regionid", "id")
	labelCol := columnIndex(header, "regionname", "name", "region")
	stateCol := columnIndex(header, "state", "statename")
	cityCol := columnIndex(header, "city")

	// every date-named column is one sample
	type dateColumn struct {
		index int
		date  time.Time
	}
	var dateCols []dateColumn
	for i, raw := range header {
		token := strings.TrimSpace(raw)
		if !datePattern.MatchString(token) {
			continue
		}
		date, err := time.Parse(dateLayout, token)
		if err != nil {
			continue
		}
		dateCols = append(dateCols, dateColumn{index: i, date: date.UTC()})
	}

	line := 1
	for {
		line++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, RowError{Line: line, Reason: err.Error()})
			continue
		}
		if len(row) != len(header) {
			result.Diagnostics = append(result.Diagnostics, RowError{
				Line:   line,
				Reason: fmt.Sprintf("expected %d columns, got %d", len(header), len(row)),
			})
			continue
		}
		if len(result.Records) >= opts.MaxRecords {
			break
		}

		record := market.MarketRecord{
			ID:    cell(row, idCol),
			Label: cell(row, labelCol),
			State: cell(row, stateCol),
			City:  cell(row, cityCol),
		}
		if record.ID == "" {
			result.Diagnostics = append(result.Diagnostics, RowError{Line: line, Reason: "missing identifier"})
			continue
		}
		if record.City == "" {
			record.City, record.State = splitLabel(record.Label, record.State)
		}

		var series market.TimeSeries
		for _, col := range dateCols {
			value, ok := parseNumericCell(cell(row, col.index))
			if !ok {
				continue // absent data point, not an error
			}
			series = append(series, market.TimeSeriesPoint{Date: col.date, Value: value})
		}

		// header order is expected ascending; sort defensively
		sort.Slice(series, func(i, j int) bool {
			return series[i].Date.Before(series[j].Date)
		})

		result.Records = append(result.Records, record)
		result.Series[record.ID] = series
	}
}

func parseSimple(reader *csv.Reader, header []string, opts Options, result *Result) {
	idCol := columnIndex(header, "id")
	cityCol := columnIndex(header, "city")
	stateCol := columnIndex(header, "state")
	zipCol := columnIndex(header, "zipcode", "zip")
	medianCol := columnIndex(header, "medianprice")
	averageCol := columnIndex(header, "averageprice")
	changeCol := columnIndex(header, "percentchange")
	updatedCol := columnIndex(header, "lastupdateddate", "lastupdated")

	parseDay := time.Now().UTC().Truncate(24 * time.Hour)

	line := 1
	for {
		line++
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, RowError{Line: line, Reason: err.Error()})
			continue
		}
		if len(row) != len(header) {
			result.Diagnostics = append(result.Diagnostics, RowError{
				Line:   line,
				Reason: fmt.Sprintf("expected %d columns, got %d", len(header), len(row)),
			})
			continue
		}
		if len(result.Records) >= opts.MaxRecords {
			break
		}

		record := market.MarketRecord{
			ID:      cell(row, idCol),
			City:    cell(row, cityCol),
			State:   cell(row, stateCol),
			ZipCode: cell(row, zipCol),
		}
		if record.City == "" || record.State == "" {
			result.Diagnostics = append(result.Diagnostics, RowError{Line: line, Reason: "missing city or state"})
			continue
		}
		record.Label = record.City + ", " + record.State
		if record.ID == "" {
			record.ID = slug(record.City + "-" + record.State)
		}

		// price becomes a single-point series; bad numeric cells omit the
		// field, never the row
		price, priceOK := parseNumericCell(cell(row, medianCol))
		if !priceOK {
			price, priceOK = parseNumericCell(cell(row, averageCol))
		}

		sampleDate := parseDay
		if updated := cell(row, updatedCol); updated != "" {
			if date, err := time.Parse(dateLayout, updated); err == nil {
				sampleDate = date.UTC()
			}
		}

		var series market.TimeSeries
		if priceOK {
			series = market.TimeSeries{{Date: sampleDate, Value: price}}
		}

		if change, ok := parseNumericCell(cell(row, changeCol)); ok {
			result.PercentChange[record.ID] = change
		}

		result.Records = append(result.Records, record)
		result.Series[record.ID] = series
	}
}

func cell(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[index])
}

func parseNumericCell(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// splitLabel extracts "City, ST" labels into their parts when a dedicated
// city column is absent.
func splitLabel(label, fallbackState string) (city, state string) {
	state = fallbackState
	city = label
	if i := strings.LastIndex(label, ","); i >= 0 {
		city = strings.TrimSpace(label[:i])
		if state == "" {
			state = strings.TrimSpace(label[i+1:])
		}
	}
	return city, state
}

func slug(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.Fields(strings.ReplaceAll(s, ",", " ")), "-")
}
