package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vsinha/tripweights/pkg/config"
	"github.com/vsinha/tripweights/pkg/domain/entities"
)

var (
	// ErrMissingColumn is returned when a required column is absent from the header
	ErrMissingColumn = errors.New("missing required column")
	// ErrInvalidValue is returned when a cell cannot be parsed or fails validation
	ErrInvalidValue = errors.New("invalid value")
)

// Loader handles loading volume and adjustment tables from CSV files
type Loader struct {
	volumeColumns     config.VolumeColumns
	adjustmentColumns config.AdjustmentColumns
}

// NewLoader creates a new CSV loader for the given column schema
func NewLoader(volumeColumns config.VolumeColumns, adjustmentColumns config.AdjustmentColumns) *Loader {
	return &Loader{
		volumeColumns:     volumeColumns,
		adjustmentColumns: adjustmentColumns,
	}
}

// LoadVolumes loads volume records from a CSV file
func (l *Loader) LoadVolumes(filename string) ([]*entities.VolumeRecord, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open volume file %s: %w", filename, err)
	}
	defer file.Close()

	return l.ReadVolumes(file)
}

// ReadVolumes reads volume records from CSV data. Columns are matched by
// name, so their order is free and extra columns are ignored.
func (l *Loader) ReadVolumes(r io.Reader) ([]*entities.VolumeRecord, error) {
	records, columns, err := readTable(r, "volume", []string{
		l.volumeColumns.PlanID,
		l.volumeColumns.PlantID,
		l.volumeColumns.ProductCode,
		l.volumeColumns.Volume,
		l.volumeColumns.Week,
	})
	if err != nil {
		return nil, err
	}

	volumes := make([]*entities.VolumeRecord, 0, len(records))
	for i, record := range records {
		row := i + 2
		cell := func(name string) string { return strings.TrimSpace(record[columns[name]]) }

		volume, err := parseFloat(cell(l.volumeColumns.Volume))
		if err != nil {
			return nil, fmt.Errorf("volume CSV row %d: %s: %w", row, l.volumeColumns.Volume, err)
		}

		v, err := entities.NewVolumeRecord(
			cell(l.volumeColumns.PlanID),
			cell(l.volumeColumns.PlantID),
			entities.ProductCode(cell(l.volumeColumns.ProductCode)),
			volume,
			entities.WeekKey(cell(l.volumeColumns.Week)),
		)
		if err != nil {
			return nil, fmt.Errorf("volume CSV row %d: %w: %v", row, ErrInvalidValue, err)
		}
		v.SourceRow = row
		volumes = append(volumes, v)
	}

	return volumes, nil
}

// LoadAdjustments loads adjustment records from a CSV file
func (l *Loader) LoadAdjustments(filename string) ([]*entities.AdjustmentRecord, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open adjustment file %s: %w", filename, err)
	}
	defer file.Close()

	return l.ReadAdjustments(file)
}

// ReadAdjustments reads adjustment records from CSV data
func (l *Loader) ReadAdjustments(r io.Reader) ([]*entities.AdjustmentRecord, error) {
	records, columns, err := readTable(r, "adjustment", []string{
		l.adjustmentColumns.PlantName,
		l.adjustmentColumns.TechnicalProductCode,
		l.adjustmentColumns.PlanID,
		l.adjustmentColumns.NSamples,
		l.adjustmentColumns.MLAdjustment,
		l.adjustmentColumns.Week,
	})
	if err != nil {
		return nil, err
	}

	adjustments := make([]*entities.AdjustmentRecord, 0, len(records))
	for i, record := range records {
		row := i + 2
		cell := func(name string) string { return strings.TrimSpace(record[columns[name]]) }

		nSamples, err := parseCount(cell(l.adjustmentColumns.NSamples))
		if err != nil {
			return nil, fmt.Errorf("adjustment CSV row %d: %s: %w", row, l.adjustmentColumns.NSamples, err)
		}
		adjustment, err := parseFloat(cell(l.adjustmentColumns.MLAdjustment))
		if err != nil {
			return nil, fmt.Errorf("adjustment CSV row %d: %s: %w", row, l.adjustmentColumns.MLAdjustment, err)
		}

		a, err := entities.NewAdjustmentRecord(
			cell(l.adjustmentColumns.PlantName),
			entities.ProductCode(cell(l.adjustmentColumns.TechnicalProductCode)),
			cell(l.adjustmentColumns.PlanID),
			nSamples,
			adjustment,
			entities.WeekKey(cell(l.adjustmentColumns.Week)),
		)
		if err != nil {
			return nil, fmt.Errorf("adjustment CSV row %d: %w: %v", row, ErrInvalidValue, err)
		}
		a.SourceRow = row
		adjustments = append(adjustments, a)
	}

	return adjustments, nil
}

// Helper functions for parsing CSV records

func readTable(r io.Reader, table string, required []string) ([][]string, map[string]int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s CSV: %w", table, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s CSV must have a header row", table)
	}

	columns, err := MapColumns(records[0], required)
	if err != nil {
		return nil, nil, fmt.Errorf("%s CSV: %w", table, err)
	}

	body := records[1:]
	for i, record := range body {
		if len(record) != len(records[0]) {
			return nil, nil, fmt.Errorf("%s CSV row %d: expected %d columns, got %d", table, i+2, len(records[0]), len(record))
		}
	}
	return body, columns, nil
}

// MapColumns returns the position of every required column in header.
// Names are compared case-insensitively after trimming.
func MapColumns(header []string, required []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, name := range header {
		positions[strings.ToLower(strings.TrimSpace(name))] = i
	}

	columns := make(map[string]int, len(required))
	var missing []string
	for _, name := range required {
		i, ok := positions[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			missing = append(missing, name)
			continue
		}
		columns[name] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}
	return columns, nil
}

func parseFloat(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, s)
	}
	return d.InexactFloat64(), nil
}

// parseCount accepts integral values written with a fractional part, e.g. "12.0"
func parseCount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, s)
	}
	if !d.IsInteger() {
		return 0, fmt.Errorf("%w: %q is not a whole count", ErrInvalidValue, s)
	}
	return d.IntPart(), nil
}
