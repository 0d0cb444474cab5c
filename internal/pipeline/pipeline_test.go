package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"egretail/internal/config"
	"egretail/internal/logger"
	"egretail/internal/mapping"
	"egretail/internal/models"
)

type fakeStage struct {
	name     string
	requires []string
	provides []string
	err      error
	ran      bool
}

func (f *fakeStage) Name() string       { return f.name }
func (f *fakeStage) Requires() []string { return f.requires }
func (f *fakeStage) Provides() []string { return f.provides }

func (f *fakeStage) Run(ctx context.Context, ds *models.Dataset) (models.Counts, error) {
	f.ran = true
	if f.err != nil {
		return nil, f.err
	}

	return models.Counts{f.name: ds.Len()}, nil
}

type recordingObserver struct {
	stages []string
	errs   int
}

func (r *recordingObserver) StageDone(stage string, _ time.Duration, _ models.Counts, err error) {
	r.stages = append(r.stages, stage)
	if err != nil {
		r.errs++
	}
}

func TestPipeline_Run(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name       string
		stages     func() []*fakeStage
		wantErr    error
		wantRan    []bool
		wantStages int
	}{
		{
			name: "columns flow between stages",
			stages: func() []*fakeStage {
				return []*fakeStage{
					{name: "a", requires: []string{models.RawOrderID}, provides: []string{"x"}},
					{name: "b", requires: []string{"x"}, provides: []string{"y"}},
				}
			},
			wantRan:    []bool{true, true},
			wantStages: 2,
		},
		{
			name: "missing column fails before run",
			stages: func() []*fakeStage {
				return []*fakeStage{
					{name: "a", provides: []string{"x"}},
					{name: "b", requires: []string{"z"}},
					{name: "c"},
				}
			},
			wantErr:    models.ErrMissingColumn,
			wantRan:    []bool{true, false, false},
			wantStages: 1,
		},
		{
			name: "stage error stops the run",
			stages: func() []*fakeStage {
				return []*fakeStage{{name: "a", err: boom}, {name: "b"}}
			},
			wantErr:    boom,
			wantRan:    []bool{true, false},
			wantStages: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fakes := tt.stages()
			stages := make([]Stage, len(fakes))
			for i, f := range fakes {
				stages[i] = f
			}

			obs := &recordingObserver{}
			ds := models.NewDataset([]*models.Order{{}, {}})

			result, err := New(logger.Discard(), obs, stages...).Run(context.Background(), ds)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
			} else if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			for i, f := range fakes {
				if f.ran != tt.wantRan[i] {
					t.Errorf("stage %s ran = %v, want %v", f.name, f.ran, tt.wantRan[i])
				}
			}

			if len(result.Stages) != tt.wantStages {
				t.Errorf("recorded %d stages, want %d", len(result.Stages), tt.wantStages)
			}

			if tt.wantErr != nil && obs.errs != 1 {
				t.Errorf("observer saw %d errors, want 1", obs.errs)
			}
		})
	}
}

func TestPipeline_Run_ProvidesColumns(t *testing.T) {
	ds := models.NewDataset([]*models.Order{{}})
	stage := &fakeStage{name: "a", provides: []string{"derived"}}

	result, err := New(nil, nil, stage).Run(context.Background(), ds)
	if err != nil {
		t.Fatal(err)
	}

	if !ds.Has("derived") {
		t.Error("provided column not materialized")
	}

	if result.Stages["a"]["a"] != 1 {
		t.Errorf("counts = %v", result.Stages)
	}
}

func TestPipeline_Run_NoStages(t *testing.T) {
	if _, err := New(nil, nil).Run(context.Background(), models.NewDataset(nil)); !errors.Is(err, ErrNoStages) {
		t.Errorf("expected ErrNoStages, got %v", err)
	}
}

func TestBuild(t *testing.T) {
	m, err := mapping.Default()
	if err != nil {
		t.Fatal(err)
	}

	p, err := Build(config.DefaultConfig(), m, logger.Discard(), nil)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"normalize", "identity", "lookup", "monetary", "impute_geo", "impute_shipping", "totals", "validate"}
	got := p.Stages()

	if len(got) != len(want) {
		t.Fatalf("stages = %v", got)
	}

	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage %d = %s, want %s", i, got[i], want[i])
		}
	}
}

func TestBuild_Invalid(t *testing.T) {
	m, err := mapping.Default()
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.Cleaning.ProductDedup = "random"

	if _, err := Build(cfg, m, nil, nil); err == nil {
		t.Error("expected error for unknown dedup policy")
	}

	if _, err := Build(config.DefaultConfig(), nil, nil, nil); err == nil {
		t.Error("expected error for nil mappings")
	}
}
