package domain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicepost/internal/domain/stations"
	"github.com/Vovarama1992/voicepost/internal/metrics"
	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
	"golang.org/x/sync/errgroup"
)

type OptimizerConfig struct {
	MaxAttempts int
	RetryDelay  time.Duration
}

// Optimizer rewrites one stored transcript for several platforms at once.
// Every requested platform always ends up with text: the rewrite when it
// succeeds within MaxAttempts, the original transcript otherwise. The
// results are persisted with a single write.
type Optimizer struct {
	repo    ports.TranscriptionRepository
	s3      *stations.S3Rewrite
	metrics *metrics.Metrics
	log     *logger.ZapLogger

	maxAttempts int
	retryDelay  time.Duration
	now         func() time.Time

	events chan ports.OptimizationEvent
}

func NewOptimizer(
	repo ports.TranscriptionRepository,
	gpt ports.RewriteService,
	m *metrics.Metrics,
	log *logger.ZapLogger,
	cfg OptimizerConfig,
) *Optimizer {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Optimizer{
		repo:        repo,
		s3:          stations.NewS3Rewrite(gpt, log),
		metrics:     m,
		log:         log,
		maxAttempts: cfg.MaxAttempts,
		retryDelay:  cfg.RetryDelay,
		now:         func() time.Time { return time.Now().UTC() },
		events:      make(chan ports.OptimizationEvent, 100),
	}
}

func (o *Optimizer) Events() <-chan ports.OptimizationEvent { return o.events }

type platformResult struct {
	platform models.Platform
	text     string
	post     *models.StructuredPost
	success  bool
	attempts int
	err      error
}

func (o *Optimizer) Optimize(ctx context.Context, in ports.OptimizeInput) (*ports.OptimizeResult, error) {
	if in.TranscriptionID == "" {
		return nil, ports.NewValidationError("transcriptionId", "is required")
	}
	platforms, err := normalizePlatforms(in.Platforms)
	if err != nil {
		return nil, err
	}

	t, err := o.repo.GetByID(ctx, in.TranscriptionID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	results := make([]platformResult, len(platforms))

	// plain Group: one platform failing must not cancel the others
	var g errgroup.Group
	for i, p := range platforms {
		g.Go(func() error {
			results[i] = o.optimizePlatform(ctx, t, p, in.Structured)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		// subscribers already saw fallback text that will never be stored
		o.publish(ports.OptimizationEvent{TranscriptionID: t.ID, Success: false, Done: true})
		return nil, fmt.Errorf("%w: %w", ports.ErrTimeout, err)
	}

	res := &ports.OptimizeResult{
		TranscriptionID: t.ID,
		Status:          models.StatusOptimized,
		Optimizations:   make(map[models.Platform]string, len(results)),
		Outcomes:        make([]ports.PlatformOutcome, 0, len(results)),
	}
	for _, r := range results {
		res.Optimizations[r.platform] = r.text
		if r.post != nil {
			if res.Details == nil {
				res.Details = make(map[models.Platform]models.StructuredPost)
			}
			res.Details[r.platform] = *r.post
		}

		out := ports.PlatformOutcome{Platform: r.platform, Success: r.success, Attempts: r.attempts}
		if r.err != nil {
			out.Error = r.err.Error()
		}
		res.Outcomes = append(res.Outcomes, out)
	}
	if in.Legacy {
		res.OptimizedText = res.Optimizations[models.PlatformLinkedIn]
	}

	upd := models.OptimizationUpdate{
		ID:            t.ID,
		Optimizations: res.Optimizations,
		Details:       res.Details,
		OptimizedText: res.OptimizedText,
		UpdatedAt:     o.now(),
	}
	if err := o.repo.SaveOptimizations(ctx, upd); err != nil {
		return nil, o.saveFailed(ctx, t.ID, err)
	}

	o.metrics.RecordOptimization(time.Since(start))
	o.publish(ports.OptimizationEvent{TranscriptionID: t.ID, Success: true, Done: true})

	o.log.Log(logger.LogEntry{
		Level:   "info",
		Message: "transcription optimized",
		Fields: map[string]any{
			"transcriptionId": t.ID,
			"platforms":       len(platforms),
			"dur":             time.Since(start).String(),
		},
	})
	return res, nil
}

func (o *Optimizer) optimizePlatform(
	ctx context.Context,
	t *models.Transcription,
	p models.Platform,
	structured bool,
) platformResult {

	system := promptFor(p, structured)
	res := platformResult{platform: p}

	for attempt := 1; attempt <= o.maxAttempts; attempt++ {
		res.attempts = attempt

		text, post, err := o.s3.Run(ctx, p, system, t.Text, structured)
		if err == nil && strings.TrimSpace(text) == "" {
			err = fmt.Errorf("%w: empty rewrite", ports.ErrMalformedResponse)
		}
		if err == nil {
			res.text = text
			res.post = post
			res.success = true
			res.err = nil
			break
		}

		res.err = err
		o.log.Log(logger.LogEntry{
			Level:   "warn",
			Message: "rewrite attempt failed",
			Fields:  map[string]any{"transcriptionId": t.ID, "platform": string(p), "attempt": attempt},
			Error:   err,
		})

		if attempt == o.maxAttempts || !o.wait(ctx) {
			break
		}
	}

	if !res.success {
		res.text = t.Text
		o.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "rewrite failed, falling back to original text",
			Fields:  map[string]any{"transcriptionId": t.ID, "platform": string(p), "attempts": res.attempts},
			Error:   res.err,
		})
	}

	o.metrics.RecordPlatform(string(p), res.success, res.attempts)
	o.publish(ports.OptimizationEvent{
		TranscriptionID: t.ID,
		Platform:        p,
		Success:         res.success,
		Text:            res.text,
	})
	return res
}

// wait sleeps RetryDelay; false when ctx ends first.
func (o *Optimizer) wait(ctx context.Context) bool {
	if o.retryDelay <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(o.retryDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (o *Optimizer) saveFailed(ctx context.Context, id string, err error) error {
	if errors.Is(err, ports.ErrNotFound) {
		return err
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ports.ErrTimeout, ctx.Err())
	}

	o.log.Log(logger.LogEntry{
		Level:   "error",
		Message: "save optimizations failed",
		Fields:  map[string]any{"transcriptionId": id},
		Error:   err,
	})

	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if mErr := o.repo.SetStatus(markCtx, id, models.StatusFailed); mErr != nil {
		o.log.Log(logger.LogEntry{
			Level:   "error",
			Message: "mark transcription failed",
			Fields:  map[string]any{"transcriptionId": id},
			Error:   mErr,
		})
	}

	o.publish(ports.OptimizationEvent{TranscriptionID: id, Done: true})

	if errors.Is(err, ports.ErrStorage) {
		return err
	}
	return fmt.Errorf("%w: save optimizations: %w", ports.ErrStorage, err)
}

// publish never blocks the request path; events are dropped when nobody drains.
func (o *Optimizer) publish(ev ports.OptimizationEvent) {
	select {
	case o.events <- ev:
	default:
	}
}

func normalizePlatforms(in []models.Platform) ([]models.Platform, error) {
	if len(in) == 0 {
		return models.AllPlatforms(), nil
	}

	seen := make(map[models.Platform]bool, len(in))
	out := make([]models.Platform, 0, len(in))
	for _, p := range in {
		if !p.Valid() {
			return nil, ports.NewValidationError("platforms", "unsupported platform "+string(p))
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}
