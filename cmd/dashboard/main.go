// Package main provides the dashboard command. It reads the BI-ready dataset
// and writes the KPI workbook, a signed markdown summary and a revenue chart.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"egretail/internal/logger"
	"egretail/internal/report"
	"egretail/internal/sink"
	"egretail/internal/validator"
	"egretail/pkg/metadata"
)

func main() {
	// 1. Define Command-Line Flags
	// ---------------------------
	input := flag.String("input", "out/BI_Ready_Sales_Dataset.csv", "BI-ready dataset (.csv or .xlsx)")
	outDir := flag.String("out", "out", "Output directory")
	currency := flag.String("currency", "EGP", "Currency label used in the dashboard")
	qualityFile := flag.String("quality", "", "Quality report YAML of the cleaning run")
	runID := flag.String("run-id", "", "Run identifier recorded in the summary (defaults to the quality report's)")
	writeKPIs := flag.Bool("kpis", true, "Also write kpis.yaml")
	verify := flag.String("verify", "", "Verify a markdown summary (and, with -input, its BI file) and exit")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	log := logger.NewLogger(*logLevel)

	if *verify != "" {
		source := ""
		flag.Visit(func(f *flag.Flag) {
			if f.Name == "input" {
				source = *input
			}
		})

		os.Exit(verifyFile(log, *verify, source))
	}

	// 2. Provenance
	// -------------
	prov := metadata.Provenance{RunID: *runID, Source: filepath.Base(*input)}

	if *qualityFile != "" {
		q, err := readQuality(*qualityFile)
		if err != nil {
			log.Error("❌ Quality report", "error", err)
			os.Exit(1)
		}

		prov.QualityTier = q.Score.Tier
		prov.QualityScore = q.Score.Overall
		prov.Validated = q.Score.Tier == validator.TierExcellent || q.Score.Tier == validator.TierGood

		if prov.RunID == "" {
			prov.RunID = q.RunID
		}
	}

	sum, err := metadata.HashFile(*input)
	if err != nil {
		log.Error("❌ Read failed", "error", err)
		os.Exit(1)
	}

	prov.SourceSHA256 = sum

	// 3. KPIs
	// -------
	log.Info("Phase 1: Reading BI dataset...", "input", *input)

	rows, err := report.Read(*input)
	if err != nil {
		log.Error("❌ Read failed", "error", err)
		os.Exit(1)
	}

	k, err := report.Compute(rows)
	if err != nil {
		log.Error("❌ KPI computation failed", "error", err)
		os.Exit(1)
	}

	log.Info("KPIs computed", "orders", k.Orders, "revenue", k.Revenue.StringFixed(2))

	// 4. Outputs
	// ----------
	log.Info("Phase 2: Writing dashboard...", "dir", *outDir)

	if err := os.MkdirAll(*outDir, 0755); err != nil {
		log.Error("❌ Output directory", "error", err)
		os.Exit(1)
	}

	files := map[string]func(string) error{
		"Retail_KPI_Dashboard.xlsx": func(p string) error { return report.WriteDashboard(p, k, *currency) },
		"revenue_by_month.svg":      func(p string) error { return report.WriteChart(p, k, *currency) },
		"KPI_Summary.md": func(p string) error {
			md, err := report.RenderMarkdown(k, *currency, prov)
			if err != nil {
				return err
			}

			return sink.WriteAtomic(p, func(w io.Writer) error {
				_, err := io.WriteString(w, md)
				return err
			})
		},
	}

	if *writeKPIs {
		files["kpis.yaml"] = func(p string) error { return sink.WriteYAML(p, k) }
	}

	failed := false

	for name, write := range files {
		path := filepath.Join(*outDir, name)
		if err := write(path); err != nil {
			log.Error("❌ Write failed", "file", path, "error", err)
			failed = true

			continue
		}

		log.Info("✅ Wrote", "file", path)
	}

	if failed {
		os.Exit(1)
	}
}

func readQuality(path string) (*validator.QualityReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read quality report: %w", err)
	}

	var q validator.QualityReport
	if err := yaml.Unmarshal(data, &q); err != nil {
		return nil, fmt.Errorf("failed to parse quality report: %w", err)
	}

	return &q, nil
}

func verifyFile(log *logger.Logger, path, source string) int {
	content, err := os.ReadFile(path)
	if err != nil {
		log.Error("❌ Read failed", "file", path, "error", err)
		return 1
	}

	p, err := metadata.Verify(string(content))
	if err != nil {
		log.Error("❌ Verification failed", "file", path, "error", err)
		return 1
	}

	if source != "" {
		if err := p.VerifySource(source); err != nil {
			log.Error("❌ Source does not match", "file", path, "source", source, "error", err)
			return 1
		}
	}

	log.Info("✅ Provenance valid", "file", path, "run_id", p.RunID, "tier", p.QualityTier, "validated", p.Validated)

	return 0
}
