// Package main provides the profile command, which prints the shape of the
// raw extract before any cleaning: row counts, null columns and duplicates.
package main

import (
	"flag"
	"fmt"
	"os"

	"egretail/internal/config"
	"egretail/internal/logger"
	"egretail/internal/sink"
	"egretail/internal/source"
	"egretail/pkg/utils"
)

func main() {
	configFile := flag.String("config", "", "Path to YAML configuration file")
	input := flag.String("input", "", "Workbook (.xlsx) or directory of CSV files (overrides config)")
	yamlOut := flag.String("yaml", "", "Also write the profiles to this YAML file")

	flag.Parse()

	log := logger.NewLogger("info")

	cfg := config.DefaultConfig()
	if *configFile != "" {
		loaded, err := config.LoadConfig(*configFile)
		if err != nil {
			log.Error("❌ Configuration", "error", err)
			os.Exit(1)
		}

		cfg = loaded
	}

	if *input != "" {
		if info, err := os.Stat(*input); err == nil && info.IsDir() {
			cfg.Input.CSVDir, cfg.Input.Workbook = *input, ""
		} else {
			cfg.Input.Workbook, cfg.Input.CSVDir = *input, ""
		}
	}

	ex, err := source.Load(cfg.Input)
	if err != nil {
		log.Error("❌ Load failed", "error", err)
		os.Exit(1)
	}

	var profiles []source.TableProfile

	for _, t := range ex.Tables() {
		p := source.Profile(t)
		profiles = append(profiles, p)

		fmt.Println(p.String())

		for _, col := range p.NullColumns() {
			fmt.Printf("  %-23s %d null\n", utils.TruncateString(col, 20), p.Nulls[col])
		}
	}

	if *yamlOut != "" {
		if err := sink.WriteYAML(*yamlOut, profiles); err != nil {
			log.Error("❌ Write failed", "error", err)
			os.Exit(1)
		}

		log.Info("✅ Wrote", "file", *yamlOut)
	}
}
