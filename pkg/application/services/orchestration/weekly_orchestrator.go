package orchestration

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/vsinha/tripweights/pkg/application/dto"
	"github.com/vsinha/tripweights/pkg/application/services/redistribution"
	"github.com/vsinha/tripweights/pkg/application/services/samples"
	"github.com/vsinha/tripweights/pkg/application/services/volume"
	"github.com/vsinha/tripweights/pkg/application/services/weighting"
	"github.com/vsinha/tripweights/pkg/domain/entities"
	"github.com/vsinha/tripweights/pkg/domain/repositories"
	"github.com/vsinha/tripweights/pkg/infrastructure/events"
	"github.com/vsinha/tripweights/pkg/infrastructure/metrics"
)

// ErrEmptyWeekList is returned when no analysis weeks are requested
var ErrEmptyWeekList = errors.New("week analysis list is empty")

// Config holds configuration for the weekly orchestrator
type Config struct {
	// Workers bounds how many weeks are processed concurrently
	Workers   int
	Weighting weighting.Options
}

// DefaultConfig returns the default orchestrator configuration
func DefaultConfig() Config {
	return Config{Workers: 4}
}

// WeeklyOrchestrator runs the weighting pipeline over a list of weeks
type WeeklyOrchestrator struct {
	config         Config
	volumeRepo     repositories.VolumeRepository
	adjustmentRepo repositories.AdjustmentRepository

	aggregator *volume.Aggregator
	extractor  *samples.Extractor
	joiner     *weighting.Joiner
	engine     *redistribution.Engine

	logger  *zap.Logger
	metrics *metrics.Collector
	events  events.EventStore
}

// Option customizes a WeeklyOrchestrator
type Option func(*WeeklyOrchestrator)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *WeeklyOrchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics sets the metrics collector
func WithMetrics(collector *metrics.Collector) Option {
	return func(o *WeeklyOrchestrator) {
		o.metrics = collector
	}
}

// WithEventStore records week and data-quality events in store
func WithEventStore(store events.EventStore) Option {
	return func(o *WeeklyOrchestrator) {
		o.events = store
	}
}

// NewWeeklyOrchestrator creates a new weekly orchestrator
func NewWeeklyOrchestrator(
	config Config,
	volumeRepo repositories.VolumeRepository,
	adjustmentRepo repositories.AdjustmentRepository,
	opts ...Option,
) *WeeklyOrchestrator {
	if config.Workers < 1 {
		config.Workers = 1
	}
	o := &WeeklyOrchestrator{
		config:         config,
		volumeRepo:     volumeRepo,
		adjustmentRepo: adjustmentRepo,
		aggregator:     volume.NewAggregator(),
		extractor:      samples.NewExtractor(),
		joiner:         weighting.NewJoiner(config.Weighting),
		engine:         redistribution.NewEngine(),
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes every week and concatenates the weekly summaries in input
// order. Duplicate weeks are processed independently and both kept.
func (o *WeeklyOrchestrator) Run(ctx context.Context, weeks []entities.WeekKey) (*dto.AnalysisResult, error) {
	if len(weeks) == 0 {
		return nil, ErrEmptyWeekList
	}

	results := make([]dto.WeekResult, len(weeks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.config.Workers)

	for i, week := range weeks {
		i, week := i, week
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			result, err := o.RunWeek(gctx, week)
			if err != nil {
				return fmt.Errorf("week %s: %w", week, err)
			}
			results[i] = *result
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	analysis := &dto.AnalysisResult{Weeks: results}
	for _, result := range results {
		analysis.Summary = append(analysis.Summary, result.Summary...)
	}
	return analysis, nil
}

// RunWeek runs aggregation, extraction, join and redistribution for one week
func (o *WeeklyOrchestrator) RunWeek(ctx context.Context, week entities.WeekKey) (*dto.WeekResult, error) {
	start := time.Now()

	volumes, err := o.volumeRepo.GetVolumesForWeek(week)
	if err != nil {
		return nil, fmt.Errorf("failed to load volumes: %w", err)
	}
	adjustments, err := o.adjustmentRepo.GetAdjustmentsForWeek(week)
	if err != nil {
		return nil, fmt.Errorf("failed to load adjustments: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	aggs, volumeIssues := o.aggregator.Aggregate(volumes, week)
	sampleRows, sampleIssues := o.extractor.Extract(adjustments, week)
	joined := o.joiner.Join(sampleRows, aggs)
	finals, cases := o.engine.Redistribute(joined)
	summary := redistribution.Summarize(week, finals)

	result := &dto.WeekResult{
		Week:     week,
		Details:  finals,
		Summary:  summary,
		Issues:   append(volumeIssues, sampleIssues...),
		Cases:    cases,
		Duration: time.Since(start),
	}

	o.record(result, len(volumes), len(volumeIssues), len(sampleRows), len(sampleIssues))
	return result, nil
}

func (o *WeeklyOrchestrator) record(result *dto.WeekResult, volumeRows, volumeIssues, sampleRows, sampleIssues int) {
	o.metrics.AddRows(metrics.StageVolume, volumeRows)
	o.metrics.AddRows(metrics.StageAdjustment, sampleRows)
	o.metrics.AddRows(metrics.StageJoined, len(result.Details))
	o.metrics.AddCase(entities.CaseVolume, result.Cases.Volume)
	o.metrics.AddCase(entities.CaseResistance, result.Cases.Resistance)
	o.metrics.AddCase(entities.CasePassThrough, result.Cases.PassThrough)
	o.metrics.AddMalformed(entities.VolumeTable, volumeIssues)
	o.metrics.AddMalformed(entities.AdjustmentTable, sampleIssues)
	o.metrics.ObserveWeek(result.Duration)

	stream := events.WeekStream(result.Week)
	for _, issue := range result.Issues {
		o.logger.Warn("malformed product code",
			zap.String("week", string(issue.Week)),
			zap.String("table", string(issue.Table)),
			zap.Int("row", issue.Row),
			zap.String("code", string(issue.Code)))
		o.publish(stream, events.NewEvent(events.MalformedKeyEvent, stream, events.MalformedKey{Issue: issue}))
	}

	o.logger.Debug("redistribution cases",
		zap.String("week", string(result.Week)),
		zap.Int("volume", result.Cases.Volume),
		zap.Int("resistance", result.Cases.Resistance),
		zap.Int("pass_through", result.Cases.PassThrough))
	o.logger.Info("week processed",
		zap.String("week", string(result.Week)),
		zap.Int("rows", len(result.Details)),
		zap.Int("groups", len(result.Summary)),
		zap.Duration("duration", result.Duration))

	o.publish(stream, events.NewEvent(events.WeekCompletedEvent, stream, events.WeekCompleted{
		Week:     result.Week,
		Rows:     len(result.Details),
		Groups:   len(result.Summary),
		Duration: result.Duration,
	}))
}

func (o *WeeklyOrchestrator) publish(stream string, event events.Event) {
	if o.events == nil {
		return
	}
	if err := o.events.AppendEvent(stream, event); err != nil {
		o.logger.Warn("failed to append event", zap.String("type", event.Type()), zap.Error(err))
	}
}
