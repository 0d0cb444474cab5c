// Package main provides the cleaner command that turns the raw retail extract
// into the audited dataset, its BI projection and the quality report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"egretail/internal/config"
	"egretail/internal/logger"
	"egretail/internal/mapping"
	"egretail/internal/pipeline"
)

func main() {
	// 1. Define Command-Line Flags
	// ---------------------------
	configFile := flag.String("config", "", "Path to YAML configuration file")
	input := flag.String("input", "", "Workbook (.xlsx) or directory of CSV files (overrides config)")
	outputDir := flag.String("output", "", "Output directory (overrides config)")
	mappingsFile := flag.String("mappings", "", "YAML mapping tables layered over the embedded defaults")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error (overrides config)")
	sequential := flag.Bool("sequential", false, "Run the column normalizers one at a time")

	flag.Parse()

	// 2. Configuration
	// ----------------
	cfg, err := loadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	if err := cfg.LoadEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}

	applyFlags(cfg, *input, *outputDir, *mappingsFile, *logLevel, *sequential)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)
	log.Info("🚀 Starting retail sales cleaning", "config", cfg.String())

	m, err := loadMappings(cfg.Cleaning.MappingsFile)
	if err != nil {
		log.Error("❌ Mapping tables", "error", err)
		os.Exit(1)
	}

	// 3. Run
	// ------
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	outcome, err := pipeline.Execute(ctx, cfg, m, log)
	if err != nil {
		log.Error("❌ Cleaning failed", "error", err)
		os.Exit(1)
	}

	// 4. Final Report
	// ---------------
	fmt.Println("\n------------------------------------------------")
	fmt.Printf("📊 Summary Report\n")
	fmt.Println("------------------------------------------------")
	fmt.Printf("Run ID: %s\n", outcome.RunID)
	fmt.Printf("Rows: %d\n", outcome.Rows)
	fmt.Println(outcome.Quality.String())

	for _, stage := range outcome.Result.Order {
		counts := outcome.Result.Stages[stage]
		fmt.Printf("  %s:", stage)

		for _, label := range counts.Labels() {
			fmt.Printf(" %s=%d", label, counts[label])
		}

		fmt.Println()
	}

	fmt.Println("Files:")

	for _, f := range outcome.Files {
		fmt.Printf("  - %s\n", f)
	}

	fmt.Printf("Total Duration: %v\n", outcome.Result.Elapsed)
	fmt.Println("------------------------------------------------")
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}

	return config.LoadConfig(path)
}

func applyFlags(cfg *config.Config, input, outputDir, mappingsFile, logLevel string, sequential bool) {
	if input != "" {
		if info, err := os.Stat(input); err == nil && info.IsDir() {
			cfg.Input.CSVDir, cfg.Input.Workbook = input, ""
		} else {
			cfg.Input.Workbook, cfg.Input.CSVDir = input, ""
		}
	}

	if outputDir != "" {
		cfg.Output.Dir = outputDir
	}

	if mappingsFile != "" {
		cfg.Cleaning.MappingsFile = mappingsFile
	}

	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if sequential {
		cfg.Cleaning.ParallelNormalizers = false
	}
}

func loadMappings(path string) (*mapping.Mappings, error) {
	if path == "" {
		return mapping.Default()
	}

	return mapping.Load(path)
}
