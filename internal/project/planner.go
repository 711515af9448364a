// Package project turns stored task data into computed schedule plans. The
// Planner is the policy layer between the HTTP handlers and the pure
// scheduling engine: it fetches snapshots, runs the engine, derives
// calendar-level fields, and caches results per project revision.
package project

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/plandeck/plandeck/internal/cache"
	"github.com/plandeck/plandeck/internal/metrics"
	"github.com/plandeck/plandeck/internal/schedule"
	"github.com/plandeck/plandeck/internal/store"
)

// Health classifies how a project is tracking against its plan.
const (
	HealthOnTrack = "on_track"
	HealthAtRisk  = "at_risk"
	HealthBehind  = "behind"
)

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// Plan is a fully computed schedule for one project at one revision.
type Plan struct {
	Schedule            schedule.ScheduleResult   `json:"schedule"`
	Resources           schedule.ResourceAnalysis `json:"resources"`
	EstimatedCompletion int64                     `json:"estimated_completion"` // unix ms
	Health              string                    `json:"health"`
	Revision            int64                     `json:"revision"`
	ComputedAt          int64                     `json:"computed_at"` // unix ms
}

// Planner computes and caches project plans.
type Planner struct {
	store      *store.Store
	cache      *cache.Cache[string, *Plan]
	metrics    *metrics.Metrics
	thresholds schedule.Thresholds
	logger     zerolog.Logger
}

// New creates a Planner backed by the given store. cacheSize bounds the
// number of projects whose plans are kept warm.
func New(st *store.Store, m *metrics.Metrics, th schedule.Thresholds, cacheSize int, logger zerolog.Logger) *Planner {
	return &Planner{
		store:      st,
		cache:      cache.New[string, *Plan](cacheSize),
		metrics:    m,
		thresholds: th,
		logger:     logger.With().Str("component", "planner").Logger(),
	}
}

// Plan returns the computed plan for the project, reusing the cached result
// when the task snapshot has not changed since it was computed.
func (p *Planner) Plan(proj *store.Project) (*Plan, error) {
	rev, err := p.store.SnapshotRevision(proj.ID)
	if err != nil {
		return nil, fmt.Errorf("reading snapshot revision: %w", err)
	}

	if plan, ok := p.cache.Get(proj.ID, rev); ok {
		p.metrics.RecordCache(true)
		return plan, nil
	}
	p.metrics.RecordCache(false)

	tasks, err := p.store.TaskSnapshot(proj.ID)
	if err != nil {
		return nil, fmt.Errorf("reading task snapshot: %w", err)
	}

	started := time.Now()
	result := schedule.Schedule(tasks)
	resources := schedule.AnalyzeResources(result, p.thresholds)
	elapsed := time.Since(started)

	degraded := len(result.Diagnostics) > 0
	p.metrics.RecordSchedule(len(result.Nodes), degraded, elapsed.Seconds())
	if degraded {
		for _, d := range result.Diagnostics {
			p.logger.Warn().
				Str("project", proj.Slug).
				Str("code", d.Code).
				Strs("task_ids", d.TaskIDs).
				Msg("schedule computed with structural problems")
		}
	}

	plan := &Plan{
		Schedule:            result,
		Resources:           resources,
		EstimatedCompletion: proj.StartDate + int64(result.ProjectDuration)*dayMillis,
		Revision:            rev,
		ComputedAt:          time.Now().UnixMilli(),
	}
	plan.Health = classify(proj, tasks, plan)

	p.cache.Put(proj.ID, rev, plan)

	p.logger.Debug().
		Str("project", proj.Slug).
		Int("tasks", len(result.Nodes)).
		Int("duration_days", result.ProjectDuration).
		Str("health", plan.Health).
		Dur("elapsed", elapsed).
		Msg("plan computed")

	return plan, nil
}

// Invalidate drops any cached plan for the project. Mutating handlers call
// this so the next read recomputes immediately instead of on revision drift.
func (p *Planner) Invalidate(projectID string) {
	p.cache.Invalidate(projectID)
}

// CacheStats reports cumulative plan cache hits and misses.
func (p *Planner) CacheStats() (hits, misses uint64) {
	return p.cache.Stats()
}

// classify derives project health. A project is behind once its estimated
// completion overshoots the target date, and at risk when the schedule has
// structural problems or blocked tasks even if the dates still work out.
func classify(proj *store.Project, tasks []schedule.TaskInput, plan *Plan) string {
	if proj.TargetDate > 0 && plan.EstimatedCompletion > proj.TargetDate {
		return HealthBehind
	}
	if len(plan.Schedule.Diagnostics) > 0 {
		return HealthAtRisk
	}
	for _, t := range tasks {
		if t.Status == schedule.StatusBlocked {
			return HealthAtRisk
		}
	}
	return HealthOnTrack
}
