// Package config provides configuration management for the cleaning pipeline.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration validation errors.
var (
	ErrMissingInput             = errors.New("input.workbook or input.csv_dir is required")
	ErrMissingSheetName         = errors.New("input.sheets must name the orders and products sheets")
	ErrMissingOutputDir         = errors.New("output.dir is required")
	ErrMissingReportingCurrency = errors.New("cleaning.reporting_currency is required")
	ErrMissingReportingRate     = errors.New("cleaning.fx_rates must contain the reporting currency with rate 1")
	ErrInvalidFXRate            = errors.New("cleaning.fx_rates values must be positive")
	ErrInvalidPercentile        = errors.New("cleaning.outlier_percentile must be in (0, 100]")
	ErrInvalidPhoneRule         = errors.New("cleaning.phone needs national_length >= 1 and at least one valid prefix")
	ErrInvalidBoundingBox       = errors.New("cleaning.geo.bbox min must be below max and inside the physical domain")
	ErrInvalidDelayDays         = errors.New("cleaning.delivery_delay_days must be non-negative")
	ErrInvalidConfidence        = errors.New("cleaning.standardization_confidence must be in [0, 100]")
	ErrMissingInPersonChannel   = errors.New("cleaning.in_person_channel is required")
	ErrInvalidDedupPolicy       = errors.New("cleaning.product_dedup must be 'lowest_sku' or 'first'")
	ErrMissingIDPrefix          = errors.New("cleaning.ids prefixes and widths are required")
	ErrInvalidLogLevel          = errors.New("logging.level must be one of: debug, info, warn, error")
	ErrInvalidLogFormat         = errors.New("logging.format must be 'text' or 'json'")
)

// Environment variables that override file settings.
const (
	EnvInput     = "EGRETAIL_INPUT"
	EnvOutputDir = "EGRETAIL_OUTPUT_DIR"
	EnvMappings  = "EGRETAIL_MAPPINGS"
	EnvLogLevel  = "EGRETAIL_LOG_LEVEL"
	EnvUSDRate   = "EGRETAIL_USD_RATE"
)

// Product reference deduplication policies.
const (
	DedupLowestSKU = "lowest_sku"
	DedupFirst     = "first"
)

// Config represents the complete pipeline configuration.
type Config struct {
	Input    InputConfig    `yaml:"input"`
	Output   OutputConfig   `yaml:"output"`
	Cleaning CleaningConfig `yaml:"cleaning"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// InputConfig locates the raw extract.
type InputConfig struct {
	Workbook string      `yaml:"workbook"`
	CSVDir   string      `yaml:"csv_dir"`
	Sheets   SheetsConfig `yaml:"sheets"`
}

// SheetsConfig names the four source tables.
type SheetsConfig struct {
	Orders       string `yaml:"orders"`
	Products     string `yaml:"products"`
	Governorates string `yaml:"governorates"`
	Customers    string `yaml:"customers"`
}

// OutputConfig defines the files the cleaner writes. Empty names are skipped.
type OutputConfig struct {
	Dir             string `yaml:"dir"`
	FullCSV         string `yaml:"full_csv"`
	BICSV           string `yaml:"bi_csv"`
	FullXLSX        string `yaml:"full_xlsx"`
	BIXLSX          string `yaml:"bi_xlsx"`
	SQLite          string `yaml:"sqlite"`
	QualityReport   string `yaml:"quality_report"`
	MetricsTextfile string `yaml:"metrics_textfile"`
}

// CleaningConfig holds the business constants of the cleaning rules.
type CleaningConfig struct {
	FXRates                   map[string]float64 `yaml:"fx_rates"`
	MappingsFile              string             `yaml:"mappings_file"`
	ReportingCurrency         string             `yaml:"reporting_currency"`
	InPersonChannel           string             `yaml:"in_person_channel"`
	ProductDedup              string             `yaml:"product_dedup"`
	IDs                       IDConfig           `yaml:"ids"`
	Phone                     PhoneConfig        `yaml:"phone"`
	Geo                       GeoConfig          `yaml:"geo"`
	OutlierPercentile         float64            `yaml:"outlier_percentile"`
	DeliveryDelayDays         int                `yaml:"delivery_delay_days"`
	StandardizationConfidence float64            `yaml:"standardization_confidence"`
	AssumeMissingCurrency     bool               `yaml:"assume_missing_currency"`
	ParallelNormalizers       bool               `yaml:"parallel_normalizers"`
}

// IDConfig defines synthetic identifier formats.
type IDConfig struct {
	OrderPrefix string `yaml:"order_prefix"`
	GuestPrefix string `yaml:"guest_prefix"`
	OrderWidth  int    `yaml:"order_width"`
	GuestWidth  int    `yaml:"guest_width"`
}

// PhoneConfig defines the national numbering plan.
type PhoneConfig struct {
	CountryCode    string   `yaml:"country_code"`
	ValidPrefixes  []string `yaml:"valid_prefixes"`
	NationalLength int      `yaml:"national_length"`
}

// GeoConfig defines the expected country bounding box.
type GeoConfig struct {
	BBox           BoundingBox `yaml:"bbox"`
	GlobalFallback bool        `yaml:"global_fallback"`
}

// BoundingBox is an axis-aligned lat/lon box in degrees.
type BoundingBox struct {
	LatMin float64 `yaml:"lat_min"`
	LatMax float64 `yaml:"lat_max"`
	LonMin float64 `yaml:"lon_min"`
	LonMax float64 `yaml:"lon_max"`
}

// Contains reports whether the point lies inside the box, edges included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return lat >= b.LatMin && lat <= b.LatMax && lon >= b.LonMin && lon <= b.LonMax
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the settings used for the Egyptian retail extract.
func DefaultConfig() *Config {
	return &Config{
		Input: InputConfig{
			Workbook: "data/EG_Retail_Sales_Raw_CaseStudy.xlsx",
			Sheets: SheetsConfig{
				Orders:       "Sales_Orders_Raw",
				Products:     "Products_Raw",
				Governorates: "Governorates_Lookup_Noise",
				Customers:    "Customers_Raw",
			},
		},
		Output: OutputConfig{
			Dir:             "out",
			FullCSV:         "Sales_Fully_Cleaned_WITH_AUDIT_TRAIL.csv",
			BICSV:           "BI_Ready_Sales_Dataset.csv",
			FullXLSX:        "Sales_Fully_Cleaned_WITH_AUDIT_TRAIL.xlsx",
			BIXLSX:          "BI_Ready_Sales_Dataset.xlsx",
			SQLite:          "sales_audit.sqlite",
			QualityReport:   "quality_report.yaml",
			MetricsTextfile: "egretail.prom",
		},
		Cleaning: CleaningConfig{
			FXRates:           map[string]float64{"EGP": 1.0, "USD": 45.3575},
			ReportingCurrency: "EGP",
			InPersonChannel:   "Store",
			ProductDedup:      DedupLowestSKU,
			IDs: IDConfig{
				OrderPrefix: "NEW",
				OrderWidth:  5,
				GuestPrefix: "GUEST",
				GuestWidth:  4,
			},
			Phone: PhoneConfig{
				CountryCode:    "20",
				NationalLength: 11,
				ValidPrefixes:  []string{"010", "011", "012", "014", "015"},
			},
			Geo: GeoConfig{
				BBox:           BoundingBox{LatMin: 22, LatMax: 32, LonMin: 25, LonMax: 35},
				GlobalFallback: true,
			},
			OutlierPercentile:         99,
			DeliveryDelayDays:         5,
			StandardizationConfidence: 95,
			AssumeMissingCurrency:     true,
			ParallelNormalizers:       true,
		},
		Logging: LoggingConfig{Level: "info", Format: "text"},
	}
}

// LoadConfig loads configuration from a YAML file layered over DefaultConfig.
func LoadConfig(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to YAML file.
func (c *Config) SaveConfig(filepath string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filepath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// LoadEnv reads .env files when present and applies EGRETAIL_* overrides.
// A missing .env file is not an error.
func (c *Config) LoadEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}

	for _, file := range files {
		if _, err := os.Stat(file); err != nil {
			continue
		}

		if err := godotenv.Load(file); err != nil {
			return fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	return c.ApplyEnv()
}

// ApplyEnv overrides settings from the process environment.
func (c *Config) ApplyEnv() error {
	if input := os.Getenv(EnvInput); input != "" {
		if info, err := os.Stat(input); err == nil && info.IsDir() {
			c.Input.CSVDir = input
			c.Input.Workbook = ""
		} else {
			c.Input.Workbook = input
			c.Input.CSVDir = ""
		}
	}

	if dir := os.Getenv(EnvOutputDir); dir != "" {
		c.Output.Dir = dir
	}

	if path := os.Getenv(EnvMappings); path != "" {
		c.Cleaning.MappingsFile = path
	}

	if level := os.Getenv(EnvLogLevel); level != "" {
		c.Logging.Level = strings.ToLower(level)
	}

	if rate := os.Getenv(EnvUSDRate); rate != "" {
		v, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvUSDRate, err)
		}

		if c.Cleaning.FXRates == nil {
			c.Cleaning.FXRates = map[string]float64{}
		}

		c.Cleaning.FXRates["USD"] = v
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Input.Workbook == "" && c.Input.CSVDir == "" {
		return ErrMissingInput
	}

	if c.Input.Sheets.Orders == "" || c.Input.Sheets.Products == "" {
		return ErrMissingSheetName
	}

	if c.Output.Dir == "" {
		return ErrMissingOutputDir
	}

	cl := c.Cleaning
	if cl.ReportingCurrency == "" {
		return ErrMissingReportingCurrency
	}

	if rate, ok := cl.FXRates[cl.ReportingCurrency]; !ok || rate != 1 {
		return ErrMissingReportingRate
	}

	for code, rate := range cl.FXRates {
		if rate <= 0 {
			return fmt.Errorf("%w: %s=%v", ErrInvalidFXRate, code, rate)
		}
	}

	if cl.OutlierPercentile <= 0 || cl.OutlierPercentile > 100 {
		return ErrInvalidPercentile
	}

	if cl.Phone.NationalLength < 1 || len(cl.Phone.ValidPrefixes) == 0 {
		return ErrInvalidPhoneRule
	}

	b := cl.Geo.BBox
	if b.LatMin >= b.LatMax || b.LonMin >= b.LonMax ||
		b.LatMin < -90 || b.LatMax > 90 || b.LonMin < -180 || b.LonMax > 180 {
		return ErrInvalidBoundingBox
	}

	if cl.DeliveryDelayDays < 0 {
		return ErrInvalidDelayDays
	}

	if cl.StandardizationConfidence < 0 || cl.StandardizationConfidence > 100 {
		return ErrInvalidConfidence
	}

	if cl.InPersonChannel == "" {
		return ErrMissingInPersonChannel
	}

	if cl.ProductDedup != DedupLowestSKU && cl.ProductDedup != DedupFirst {
		return ErrInvalidDedupPolicy
	}

	if cl.IDs.OrderPrefix == "" || cl.IDs.GuestPrefix == "" || cl.IDs.OrderWidth < 1 || cl.IDs.GuestWidth < 1 {
		return ErrMissingIDPrefix
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return ErrInvalidLogLevel
	}

	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return ErrInvalidLogFormat
	}

	return nil
}

// OutputPath joins name onto the output directory; empty names stay empty.
func (c *Config) OutputPath(name string) string {
	if name == "" {
		return ""
	}

	if filepath.IsAbs(name) {
		return name
	}

	return filepath.Join(c.Output.Dir, name)
}

// String returns a string representation of the config.
func (c *Config) String() string {
	input := c.Input.Workbook
	if input == "" {
		input = c.Input.CSVDir
	}

	return fmt.Sprintf(
		"Config{Input: %s, Output: %s, Currency: %s, Percentile: %v}",
		input,
		c.Output.Dir,
		c.Cleaning.ReportingCurrency,
		c.Cleaning.OutlierPercentile,
	)
}
