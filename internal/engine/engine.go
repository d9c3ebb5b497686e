// Package engine runs the four plan analyzers over one snapshot and merges
// their results into the verification report. The analyzers are pure and
// independent, so they run concurrently; finding order inside a category is
// fixed by the mapping code, so an identical snapshot always yields a
// byte-identical report.
package engine

import (
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"plancheck/internal/config"
	"plancheck/internal/coverage"
	"plancheck/internal/geometry"
	"plancheck/internal/naming"
	"plancheck/internal/plan"
	"plancheck/internal/report"
	"plancheck/internal/technique"
)

// Engine analyzes plan snapshots against configured thresholds.
type Engine struct {
	cfg *config.Config
	log *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger attaches a logger for analyzer traces.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// New creates an engine. A nil config selects the defaults.
func New(cfg *config.Config, opts ...Option) *Engine {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	e := &Engine{cfg: cfg, log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// analysis bundles the analyzer outputs handed to the finding mapping.
type analysis struct {
	technique  technique.Result
	coverage   []coverage.Result
	hotspot    coverage.HotspotResult
	isocenters []geometry.GroupResult
	laterality naming.Laterality
	planHints  naming.Resolution
}

// Analyze runs all analyzers over the snapshot and aggregates the report.
// Every code path yields a report; analyzer failures surface as findings,
// never as errors.
func (e *Engine) Analyze(ctx context.Context, snapshot *plan.Snapshot) *report.Report {
	var a analysis

	covTh := coverage.Thresholds{
		ExcellentPct:  e.cfg.Coverage.ExcellentPct,
		AcceptablePct: e.cfg.Coverage.AcceptablePct,
		NearMeanScale: e.cfg.Coverage.NearMeanScale,
	}
	hotTh := coverage.HotspotThresholds{
		HotFactor:     e.cfg.Hotspot.HotFactor,
		HotVolumeCm3:  e.cfg.Hotspot.HotVolumeCm3,
		PointVolume:   e.cfg.Hotspot.PointVolumeCm3,
		NearMeanScale: e.cfg.Coverage.NearMeanScale,
	}
	geoTh := geometry.Thresholds{LargeShiftCm: e.cfg.Geometry.LargeShiftCm}

	// The analyzers share nothing and only read the snapshot, so they can
	// run in parallel. None of them returns an error.
	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.technique = technique.Classify(snapshot)
		return nil
	})
	g.Go(func() error {
		a.coverage = coverage.AnalyzeTargets(snapshot, snapshot.Dose, covTh)
		a.hotspot = coverage.CheckHotspot(snapshot, snapshot.Dose, hotTh)
		return nil
	})
	g.Go(func() error {
		a.isocenters = geometry.VerifyIsocenters(snapshot, geoTh)
		return nil
	})
	g.Go(func() error {
		ids := snapshot.Identifiers()
		for _, s := range snapshot.Structures {
			ids = append(ids, s.ID)
		}
		a.laterality = naming.ResolveLaterality(ids)
		a.planHints = naming.Resolve(snapshot.PlanID + " " + snapshot.PlanName)
		return nil
	})
	_ = g.Wait()

	e.log.Debug("analysis complete",
		zap.String("plan", snapshot.PlanID),
		zap.String("technique", string(a.technique.Technique)),
		zap.Int("targets", len(a.coverage)),
		zap.Int("isocenter_groups", len(a.isocenters)))

	var findings []report.Finding
	findings = append(findings, planFindings(snapshot, a)...)
	findings = append(findings, doseFindings(snapshot, a)...)
	findings = append(findings, beamFindings(snapshot)...)
	findings = append(findings, structureFindings(snapshot)...)
	findings = append(findings, isocenterFindings(snapshot, a.isocenters)...)
	findings = append(findings, statusFindings(snapshot)...)

	return report.Aggregate(snapshot.PatientID, snapshot.PlanID, findings)
}
