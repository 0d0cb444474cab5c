package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"egretail/internal/config"
	"egretail/internal/logger"
	"egretail/internal/mapping"
	"egretail/internal/metrics"
	"egretail/internal/sink"
	"egretail/internal/source"
	"egretail/internal/validator"
)

// Outcome describes a finished cleaning run.
type Outcome struct {
	RunID   string
	Rows    int
	Result  *Result
	Quality *validator.QualityReport
	Files   []string
}

// Execute loads the extract, runs every stage, scores the result and
// writes all outputs named in cfg.Output.
func Execute(ctx context.Context, cfg *config.Config, m *mapping.Mappings, log *logger.Logger) (*Outcome, error) {
	if log == nil {
		log = logger.Discard()
	}

	started := time.Now()
	runID := uuid.NewString()
	log = log.With("run_id", runID)
	rec := metrics.New()

	// 1. Ingestion
	log.Info("Phase 1: Loading extract...", "input", inputOf(cfg))

	ex, err := source.Load(cfg.Input)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	for _, t := range ex.Tables() {
		log.Debug("Loaded table", "profile", source.Profile(t).String())
	}

	ds, err := source.Dataset(ex)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	log.Timed("Loaded orders", started, "rows", ds.Len())

	// 2. Cleaning
	log.Info("Phase 2: Cleaning...")

	p, err := Build(cfg, m, log, rec)
	if err != nil {
		return nil, err
	}

	result, err := p.Run(ctx, ds)
	if err != nil {
		return nil, err
	}

	// 3. Scoring
	quality := validator.Assess(ds, cfg.Cleaning.StandardizationConfidence)
	quality.RunID = runID
	quality.Stages = result.Stages

	log.Info(quality.String())

	// 4. Outputs
	log.Info("Phase 3: Writing outputs...")

	if err := os.MkdirAll(cfg.Output.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	finished := time.Now()
	run := sink.RunRecord{
		RunID:      runID,
		Input:      inputOf(cfg),
		StartedAt:  started,
		FinishedAt: finished,
		Rows:       ds.Len(),
		Score:      quality.Score.Overall,
		Tier:       quality.Score.Tier,
	}

	out := cfg.Output
	paths := sink.Paths{
		FullCSV:       cfg.OutputPath(out.FullCSV),
		BICSV:         cfg.OutputPath(out.BICSV),
		FullXLSX:      cfg.OutputPath(out.FullXLSX),
		BIXLSX:        cfg.OutputPath(out.BIXLSX),
		SQLite:        cfg.OutputPath(out.SQLite),
		QualityReport: cfg.OutputPath(out.QualityReport),
	}

	writer := sink.NewWriter(sink.NewRegistry(cfg.Cleaning.DeliveryDelayDays), log)

	files, err := writer.Write(ctx, ds, paths, quality, run)
	if err != nil {
		return nil, err
	}

	// 5. Metrics
	rec.Rows(ds.Len())
	rec.Quality(map[string]float64{
		"uniqueness":    quality.Score.Uniqueness,
		"completeness":  quality.Score.Completeness,
		"business_rule": quality.Score.BusinessRule,
		"date_validity": quality.Score.DateValidity,
		"confidence":    quality.Score.Confidence,
		"overall":       quality.Score.Overall,
	})
	rec.Finish(time.Now())

	if path := cfg.OutputPath(out.MetricsTextfile); path != "" {
		if err := rec.WriteTextfile(path); err != nil {
			return nil, err
		}

		files = append(files, path)
	}

	log.Timed("Run complete", started, "files", len(files))

	return &Outcome{
		RunID:   runID,
		Rows:    ds.Len(),
		Result:  result,
		Quality: quality,
		Files:   files,
	}, nil
}

func inputOf(cfg *config.Config) string {
	if cfg.Input.Workbook != "" {
		return cfg.Input.Workbook
	}

	return cfg.Input.CSVDir
}
