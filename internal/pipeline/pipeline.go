// Package pipeline runs the cleaning stages in order over one dataset.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"egretail/internal/config"
	"egretail/internal/identity"
	"egretail/internal/impute"
	"egretail/internal/logger"
	"egretail/internal/lookup"
	"egretail/internal/mapping"
	"egretail/internal/models"
	"egretail/internal/monetary"
	"egretail/internal/normalizer"
	"egretail/internal/validator"
)

// ErrNoStages is returned when a pipeline has nothing to run.
var ErrNoStages = errors.New("pipeline has no stages")

// Stage is one step of the cleaning pipeline. Requires lists the columns
// that must be materialized before Run; Provides lists the columns Run adds.
type Stage interface {
	Name() string
	Requires() []string
	Provides() []string
	Run(ctx context.Context, ds *models.Dataset) (models.Counts, error)
}

// Observer receives the outcome of every stage.
type Observer interface {
	StageDone(stage string, elapsed time.Duration, counts models.Counts, err error)
}

// Result holds the per-stage counts of a finished run.
type Result struct {
	Stages  map[string]models.Counts
	Order   []string
	Elapsed time.Duration
}

// Pipeline runs stages sequentially.
type Pipeline struct {
	stages   []Stage
	logger   *logger.Logger
	observer Observer
}

// New creates a pipeline. observer may be nil.
func New(log *logger.Logger, observer Observer, stages ...Stage) *Pipeline {
	if log == nil {
		log = logger.Discard()
	}

	return &Pipeline{stages: stages, logger: log, observer: observer}
}

// Build wires the standard stage order from configuration.
func Build(cfg *config.Config, m *mapping.Mappings, log *logger.Logger, observer Observer) (*Pipeline, error) {
	cl := cfg.Cleaning

	norm, err := normalizer.NewProcessor(m, cl)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}

	join, err := lookup.NewJoiner(cl.ProductDedup)
	if err != nil {
		return nil, fmt.Errorf("lookup: %w", err)
	}

	money, err := monetary.NewNormalizer(cl)
	if err != nil {
		return nil, fmt.Errorf("monetary: %w", err)
	}

	rules, err := validator.NewBusinessRules(cl.InPersonChannel)
	if err != nil {
		return nil, fmt.Errorf("validate: %w", err)
	}

	return New(log, observer,
		norm,
		identity.NewResolver(cl.IDs),
		join,
		money,
		impute.NewGeoImputer(cl.Geo, m),
		impute.NewShippingImputer(m),
		monetary.NewTotals(),
		rules,
	), nil
}

// Stages returns the stage names in run order.
func (p *Pipeline) Stages() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}

	return names
}

// Run executes every stage. A stage whose required columns are not
// materialized fails the run before it touches the dataset.
func (p *Pipeline) Run(ctx context.Context, ds *models.Dataset) (*Result, error) {
	if len(p.stages) == 0 {
		return nil, ErrNoStages
	}

	start := time.Now()
	result := &Result{Stages: make(map[string]models.Counts, len(p.stages))}

	for _, s := range p.stages {
		name := s.Name()
		log := p.logger.Stage(name)

		// 1. Check preconditions
		if err := ds.Require(name, s.Requires()...); err != nil {
			p.done(name, 0, nil, err)
			return result, err
		}

		// 2. Run
		stageStart := time.Now()
		counts, err := s.Run(ctx, ds)
		elapsed := time.Since(stageStart)
		p.done(name, elapsed, counts, err)

		if err != nil {
			log.Error("Stage failed", "error", err)
			return result, fmt.Errorf("stage %s: %w", name, err)
		}

		// 3. Publish columns
		ds.Provide(s.Provides()...)

		result.Stages[name] = counts
		result.Order = append(result.Order, name)
		log.Timed("Stage complete", stageStart, "rows", ds.Len())

		for _, label := range counts.Labels() {
			log.Debug("Stage count", "label", label, "rows", counts[label])
		}
	}

	result.Elapsed = time.Since(start)

	return result, nil
}

func (p *Pipeline) done(name string, elapsed time.Duration, counts models.Counts, err error) {
	if p.observer != nil {
		p.observer.StageDone(name, elapsed, counts, err)
	}
}
