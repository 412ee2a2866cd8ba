// Package sqlite reads the volume and adjustment tables from a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"github.com/vsinha/tripweights/pkg/config"
	"github.com/vsinha/tripweights/pkg/domain/entities"
	csvrepo "github.com/vsinha/tripweights/pkg/infrastructure/repositories/csv"
)

// Default table names
const (
	VolumeTable     = "volumes"
	AdjustmentTable = "adjustments"
)

// ErrMissingColumn is returned when a required column is absent from a table
var ErrMissingColumn = csvrepo.ErrMissingColumn

// ErrInvalidValue is returned when a stored value fails validation
var ErrInvalidValue = csvrepo.ErrInvalidValue

// Loader reads tables through a SQLite connection
type Loader struct {
	db                *sql.DB
	volumeColumns     config.VolumeColumns
	adjustmentColumns config.AdjustmentColumns
}

// Open opens the database at path
func Open(path string, volumeColumns config.VolumeColumns, adjustmentColumns config.AdjustmentColumns) (*Loader, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return NewLoader(db, volumeColumns, adjustmentColumns), nil
}

// NewLoader wraps an open database
func NewLoader(db *sql.DB, volumeColumns config.VolumeColumns, adjustmentColumns config.AdjustmentColumns) *Loader {
	return &Loader{db: db, volumeColumns: volumeColumns, adjustmentColumns: adjustmentColumns}
}

// Close closes the underlying database
func (l *Loader) Close() error {
	return l.db.Close()
}

// LoadVolumes reads every row of the volumes table
func (l *Loader) LoadVolumes(ctx context.Context) ([]*entities.VolumeRecord, error) {
	c := l.volumeColumns
	rows, err := l.selectColumns(ctx, VolumeTable, []string{c.PlanID, c.PlantID, c.ProductCode, c.Volume, c.Week})
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var volumes []*entities.VolumeRecord
	for row := 1; rows.Next(); row++ {
		var planID, plantID, code, week sql.NullString
		var volume sql.NullFloat64
		if err := rows.Scan(&planID, &plantID, &code, &volume, &week); err != nil {
			return nil, fmt.Errorf("scan %s row %d: %w", VolumeTable, row, err)
		}
		if !volume.Valid {
			return nil, fmt.Errorf("%s row %d: %w: %s is null", VolumeTable, row, ErrInvalidValue, c.Volume)
		}
		v, err := entities.NewVolumeRecord(planID.String, plantID.String,
			entities.ProductCode(code.String), volume.Float64, entities.WeekKey(week.String))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w: %v", VolumeTable, row, ErrInvalidValue, err)
		}
		v.SourceRow = row
		volumes = append(volumes, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", VolumeTable, err)
	}
	return volumes, nil
}

// LoadAdjustments reads every row of the adjustments table
func (l *Loader) LoadAdjustments(ctx context.Context) ([]*entities.AdjustmentRecord, error) {
	c := l.adjustmentColumns
	rows, err := l.selectColumns(ctx, AdjustmentTable,
		[]string{c.PlantName, c.TechnicalProductCode, c.PlanID, c.NSamples, c.MLAdjustment, c.Week})
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var adjustments []*entities.AdjustmentRecord
	for row := 1; rows.Next(); row++ {
		var plant, code, planID, week sql.NullString
		var nSamples, adjustment sql.NullFloat64
		if err := rows.Scan(&plant, &code, &planID, &nSamples, &adjustment, &week); err != nil {
			return nil, fmt.Errorf("scan %s row %d: %w", AdjustmentTable, row, err)
		}
		if !nSamples.Valid || nSamples.Float64 != math.Trunc(nSamples.Float64) {
			return nil, fmt.Errorf("%s row %d: %w: %s must be a whole count", AdjustmentTable, row, ErrInvalidValue, c.NSamples)
		}
		if !adjustment.Valid {
			return nil, fmt.Errorf("%s row %d: %w: %s is null", AdjustmentTable, row, ErrInvalidValue, c.MLAdjustment)
		}
		a, err := entities.NewAdjustmentRecord(plant.String, entities.ProductCode(code.String), planID.String,
			int64(nSamples.Float64), adjustment.Float64, entities.WeekKey(week.String))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: %w: %v", AdjustmentTable, row, ErrInvalidValue, err)
		}
		a.SourceRow = row
		adjustments = append(adjustments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", AdjustmentTable, err)
	}
	return adjustments, nil
}

// selectColumns checks the table schema before querying so a missing column
// is reported as ErrMissingColumn rather than a SQL error
func (l *Loader) selectColumns(ctx context.Context, table string, required []string) (*sql.Rows, error) {
	header, err := l.tableColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	positions, err := csvrepo.MapColumns(header, required)
	if err != nil {
		return nil, fmt.Errorf("%s table: %w", table, err)
	}

	quoted := make([]string, len(required))
	for i, name := range required {
		quoted[i] = quoteIdent(header[positions[name]])
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), quoteIdent(table))

	rows, err := l.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w", table, err)
	}
	return rows, nil
}

func (l *Loader) tableColumns(ctx context.Context, table string) ([]string, error) {
	rows, err := l.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteIdent(table)))
	if err != nil {
		return nil, fmt.Errorf("table info %s: %w", table, err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var (
			cid       int
			name      string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table info %s: %w", table, err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table info %s: %w", table, err)
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("table %s does not exist", table)
	}
	return names, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
