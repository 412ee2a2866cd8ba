// Package config loads run configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete run configuration
type Config struct {
	Weeks              []string          `yaml:"weeks"`
	Workers            int               `yaml:"workers"`
	ResistanceFallback bool              `yaml:"resistance_fallback"`
	PlantAliases       map[string]string `yaml:"plant_aliases"`

	VolumeColumns     VolumeColumns     `yaml:"volume_columns"`
	AdjustmentColumns AdjustmentColumns `yaml:"adjustment_columns"`

	Output  OutputConfig  `yaml:"output"`
	Logging LoggingConfig `yaml:"logging"`
}

// VolumeColumns names the columns of the volume table
type VolumeColumns struct {
	PlanID      string `yaml:"plan_id"`
	PlantID     string `yaml:"plant_id"`
	ProductCode string `yaml:"product_code"`
	Volume      string `yaml:"volume"`
	Week        string `yaml:"week"`
}

// AdjustmentColumns names the columns of the adjustment table
type AdjustmentColumns struct {
	PlantName            string `yaml:"plant_name"`
	TechnicalProductCode string `yaml:"technical_product_code"`
	PlanID               string `yaml:"plan_id"`
	NSamples             string `yaml:"n_samples"`
	MLAdjustment         string `yaml:"ml_adjustment"`
	Week                 string `yaml:"week"`
}

// OutputConfig controls result rendering
type OutputConfig struct {
	Format    string `yaml:"format"` // text, json, csv
	Dir       string `yaml:"dir"`
	Precision int32  `yaml:"precision"`
}

// LoggingConfig controls the zap logger
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultVolumeColumns returns the plain volume schema
func DefaultVolumeColumns() VolumeColumns {
	return VolumeColumns{
		PlanID:      "plan_id",
		PlantID:     "plant_id",
		ProductCode: "product_code",
		Volume:      "volume",
		Week:        "week",
	}
}

// DefaultAdjustmentColumns returns the plain adjustment schema
func DefaultAdjustmentColumns() AdjustmentColumns {
	return AdjustmentColumns{
		PlantName:            "plant_name",
		TechnicalProductCode: "technical_product_code",
		PlanID:               "plan_id",
		NSamples:             "n_samples",
		MLAdjustment:         "ml_adjustment",
		Week:                 "week",
	}
}

// LegacyVolumeColumns returns the headers of the historical volume exports
func LegacyVolumeColumns() VolumeColumns {
	return VolumeColumns{
		PlanID:      "PlanProd",
		PlantID:     "Plant_Code",
		ProductCode: "Codigo_de_producto",
		Volume:      "total_volume",
		Week:        "week_analysis",
	}
}

// LegacyAdjustmentColumns returns the headers of the historical adjustment exports
func LegacyAdjustmentColumns() AdjustmentColumns {
	return AdjustmentColumns{
		PlantName:            "Planta",
		TechnicalProductCode: "Producto_Tecnico",
		PlanID:               "PlanProd",
		NSamples:             "No_de_viajes_muestreados",
		MLAdjustment:         "Ajuste_por_ML",
		Week:                 "week_analysis",
	}
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Workers:           4,
		PlantAliases:      map[string]string{},
		VolumeColumns:     DefaultVolumeColumns(),
		AdjustmentColumns: DefaultAdjustmentColumns(),
		Output: OutputConfig{
			Format:    "text",
			Precision: 6,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file yields
// the defaults. Environment overrides are applied last.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("TRIPWEIGHTS_WORKERS"); v != "" {
		workers, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: TRIPWEIGHTS_WORKERS=%q is not an integer", ErrInvalidConfig, v)
		}
		c.Workers = workers
	}
	if v := os.Getenv("TRIPWEIGHTS_WEEKS"); v != "" {
		c.Weeks = splitList(v)
	}
	if v := os.Getenv("TRIPWEIGHTS_OUTPUT_FORMAT"); v != "" {
		c.Output.Format = v
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for consistency
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("%w: workers must be at least 1, got %d", ErrInvalidConfig, c.Workers)
	}
	switch c.Output.Format {
	case "text", "json", "csv":
	default:
		return fmt.Errorf("%w: unsupported output format %q", ErrInvalidConfig, c.Output.Format)
	}
	if c.Output.Precision < 0 {
		return fmt.Errorf("%w: precision cannot be negative, got %d", ErrInvalidConfig, c.Output.Precision)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unsupported log level %q", ErrInvalidConfig, c.Logging.Level)
	}
	for name, column := range c.columnNames() {
		if strings.TrimSpace(column) == "" {
			return fmt.Errorf("%w: column name for %s cannot be empty", ErrInvalidConfig, name)
		}
	}
	return nil
}

func (c *Config) columnNames() map[string]string {
	v, a := c.VolumeColumns, c.AdjustmentColumns
	return map[string]string{
		"volume_columns.plan_id":                    v.PlanID,
		"volume_columns.plant_id":                   v.PlantID,
		"volume_columns.product_code":               v.ProductCode,
		"volume_columns.volume":                     v.Volume,
		"volume_columns.week":                       v.Week,
		"adjustment_columns.plant_name":             a.PlantName,
		"adjustment_columns.technical_product_code": a.TechnicalProductCode,
		"adjustment_columns.plan_id":                a.PlanID,
		"adjustment_columns.n_samples":              a.NSamples,
		"adjustment_columns.ml_adjustment":          a.MLAdjustment,
		"adjustment_columns.week":                   a.Week,
	}
}
