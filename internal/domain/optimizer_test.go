package domain

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Vovarama1992/voicepost/internal/metrics"
	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
	tu "github.com/Vovarama1992/voicepost/internal/testing"
)

const transcript = "we shipped the new voice recorder today and the team is thrilled"

func platformOf(system string) models.Platform {
	switch {
	case strings.Contains(system, "LinkedIn"):
		return models.PlatformLinkedIn
	case strings.Contains(system, "Twitter"):
		return models.PlatformTwitter
	case strings.Contains(system, "Reddit"):
		return models.PlatformReddit
	}
	return ""
}

func newTestOptimizer(repo ports.TranscriptionRepository, gpt ports.RewriteService) *Optimizer {
	return NewOptimizer(repo, gpt, metrics.NewMetrics(), tu.NopLogger(), OptimizerConfig{MaxAttempts: 3})
}

func TestOptimizer_Optimize(t *testing.T) {
	t.Run("all platforms succeed with a single write", func(t *testing.T) {
		repo := tu.NewMemTranscriptionRepo()
		id := repo.Seed(models.Transcription{Text: transcript, Status: models.StatusRaw})
		gpt := &tu.FakeRewriter{RewriteFunc: func(_ context.Context, system, user string) (string, error) {
			return string(platformOf(system)) + " post", nil
		}}

		res, err := newTestOptimizer(repo, gpt).Optimize(context.Background(), ports.OptimizeInput{TranscriptionID: id})
		if err != nil {
			t.Fatalf("Optimize() error = %v", err)
		}

		if len(res.Optimizations) != 3 {
			t.Fatalf("optimizations = %v, want 3 platforms", res.Optimizations)
		}
		for _, p := range models.AllPlatforms() {
			if res.Optimizations[p] != string(p)+" post" {
				t.Errorf("optimizations[%s] = %q", p, res.Optimizations[p])
			}
		}
		for _, o := range res.Outcomes {
			if !o.Success || o.Attempts != 1 {
				t.Errorf("outcome %+v, want success on first attempt", o)
			}
		}

		if repo.Writes != 1 {
			t.Errorf("writes = %d, want 1", repo.Writes)
		}
		stored, _ := repo.Get(id)
		if stored.Status != models.StatusOptimized {
			t.Errorf("status = %s, want optimized", stored.Status)
		}
		if stored.UpdatedAt.IsZero() {
			t.Error("updatedAt not set")
		}
	})

	t.Run("key set equals requested platforms", func(t *testing.T) {
		repo := tu.NewMemTranscriptionRepo()
		id := repo.Seed(models.Transcription{Text: transcript})

		res, err := newTestOptimizer(repo, &tu.FakeRewriter{}).Optimize(context.Background(), ports.OptimizeInput{
			TranscriptionID: id,
			Platforms:       []models.Platform{models.PlatformTwitter, models.PlatformReddit},
		})
		if err != nil {
			t.Fatalf("Optimize() error = %v", err)
		}

		if len(res.Optimizations) != 2 {
			t.Errorf("optimizations = %v, want twitter and reddit only", res.Optimizations)
		}
		if _, ok := res.Optimizations[models.PlatformLinkedIn]; ok {
			t.Error("linkedin was not requested")
		}
		stored, _ := repo.Get(id)
		if len(stored.Optimizations) != 2 {
			t.Errorf("persisted optimizations = %v", stored.Optimizations)
		}
	})

	t.Run("failing platform falls back to original text", func(t *testing.T) {
		repo := tu.NewMemTranscriptionRepo()
		id := repo.Seed(models.Transcription{Text: transcript})

		var mu sync.Mutex
		twitterCalls := 0
		gpt := &tu.FakeRewriter{RewriteFunc: func(_ context.Context, system, user string) (string, error) {
			if platformOf(system) == models.PlatformTwitter {
				mu.Lock()
				twitterCalls++
				mu.Unlock()
				return "", &ports.ProviderError{Provider: "openai", StatusCode: 500, Message: "boom"}
			}
			return "fine post", nil
		}}

		res, err := newTestOptimizer(repo, gpt).Optimize(context.Background(), ports.OptimizeInput{TranscriptionID: id})
		if err != nil {
			t.Fatalf("Optimize() error = %v", err)
		}

		if res.Optimizations[models.PlatformTwitter] != transcript {
			t.Errorf("twitter = %q, want fallback to transcript", res.Optimizations[models.PlatformTwitter])
		}
		if res.Optimizations[models.PlatformLinkedIn] != "fine post" || res.Optimizations[models.PlatformReddit] != "fine post" {
			t.Errorf("healthy platforms affected: %v", res.Optimizations)
		}
		if twitterCalls != 3 {
			t.Errorf("twitter attempts = %d, want 3", twitterCalls)
		}

		for _, o := range res.Outcomes {
			if o.Platform == models.PlatformTwitter {
				if o.Success || o.Attempts != 3 || o.Error == "" {
					t.Errorf("twitter outcome = %+v", o)
				}
			} else if !o.Success {
				t.Errorf("outcome %+v should succeed", o)
			}
		}
		if res.Status != models.StatusOptimized {
			t.Errorf("status = %s", res.Status)
		}
	})

	t.Run("transient failure recovers on retry", func(t *testing.T) {
		repo := tu.NewMemTranscriptionRepo()
		id := repo.Seed(models.Transcription{Text: transcript})

		var mu sync.Mutex
		calls := 0
		gpt := &tu.FakeRewriter{RewriteFunc: func(context.Context, string, string) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls == 1 {
				return "", errors.New("connection reset")
			}
			return "second time lucky", nil
		}}

		o := NewOptimizer(repo, gpt, nil, tu.NopLogger(), OptimizerConfig{MaxAttempts: 3, RetryDelay: time.Millisecond})
		res, err := o.Optimize(context.Background(), ports.OptimizeInput{
			TranscriptionID: id,
			Platforms:       []models.Platform{models.PlatformLinkedIn},
		})
		if err != nil {
			t.Fatalf("Optimize() error = %v", err)
		}
		if res.Optimizations[models.PlatformLinkedIn] != "second time lucky" {
			t.Errorf("linkedin = %q", res.Optimizations[models.PlatformLinkedIn])
		}
		if res.Outcomes[0].Attempts != 2 || !res.Outcomes[0].Success {
			t.Errorf("outcome = %+v", res.Outcomes[0])
		}
	})

	t.Run("total outage still succeeds with fallbacks", func(t *testing.T) {
		repo := tu.NewMemTranscriptionRepo()
		id := repo.Seed(models.Transcription{Text: transcript})
		gpt := &tu.FakeRewriter{RewriteFunc: func(context.Context, string, string) (string, error) {
			return "", errors.New("provider down")
		}}

		res, err := newTestOptimizer(repo, gpt).Optimize(context.Background(), ports.OptimizeInput{TranscriptionID: id})
		if err != nil {
			t.Fatalf("Optimize() error = %v", err)
		}
		for _, p := range models.AllPlatforms() {
			if res.Optimizations[p] != transcript {
				t.Errorf("optimizations[%s] = %q, want transcript", p, res.Optimizations[p])
			}
		}
		if gpt.Calls() != 9 {
			t.Errorf("rewrite calls = %d, want 9", gpt.Calls())
		}
		if repo.Writes != 1 {
			t.Errorf("writes = %d, want 1", repo.Writes)
		}
	})

	t.Run("missing transcription performs no work", func(t *testing.T) {
		repo := tu.NewMemTranscriptionRepo()
		gpt := &tu.FakeRewriter{}

		_, err := newTestOptimizer(repo, gpt).Optimize(context.Background(), ports.OptimizeInput{TranscriptionID: "ffffffffffffffffffffffff"})
		if !errors.Is(err, ports.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
		if repo.Writes != 0 || gpt.Calls() != 0 {
			t.Errorf("writes = %d, calls = %d, want none", repo.Writes, gpt.Calls())
		}
	})

	t.Run("transcription deleted before write", func(t *testing.T) {
		repo := tu.NewMemTranscriptionRepo()
		id := repo.Seed(models.Transcription{Text: transcript})
		repo.BeforeSave = repo.Remove

		_, err := newTestOptimizer(repo, &tu.FakeRewriter{}).Optimize(context.Background(), ports.OptimizeInput{TranscriptionID: id})
		if !errors.Is(err, ports.ErrNotFound) {
			t.Fatalf("error = %v, want ErrNotFound", err)
		}
		if repo.Writes != 0 {
			t.Errorf("writes = %d", repo.Writes)
		}
	})

	t.Run("storage failure marks transcription failed", func(t *testing.T) {
		repo := tu.NewMemTranscriptionRepo()
		id := repo.Seed(models.Transcription{Text: transcript, Status: models.StatusRaw})
		repo.SaveErr = errors.New("disk full")

		_, err := newTestOptimizer(repo, &tu.FakeRewriter{}).Optimize(context.Background(), ports.OptimizeInput{TranscriptionID: id})
		if !errors.Is(err, ports.ErrStorage) {
			t.Fatalf("error = %v, want ErrStorage", err)
		}
		stored, _ := repo.Get(id)
		if stored.Status != models.StatusFailed {
			t.Errorf("status = %s, want failed", stored.Status)
		}
	})

	t.Run("request budget exceeded writes nothing", func(t *testing.T) {
		repo := tu.NewMemTranscriptionRepo()
		id := repo.Seed(models.Transcription{Text: transcript})
		gpt := &tu.FakeRewriter{RewriteFunc: func(ctx context.Context, _, _ string) (string, error) {
			<-ctx.Done()
			return "", ctx.Err()
		}}

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		o := NewOptimizer(repo, gpt, nil, tu.NopLogger(), OptimizerConfig{MaxAttempts: 3, RetryDelay: time.Second})
		_, err := o.Optimize(ctx, ports.OptimizeInput{TranscriptionID: id})
		if !errors.Is(err, ports.ErrTimeout) {
			t.Fatalf("error = %v, want ErrTimeout", err)
		}
		if repo.Writes != 0 {
			t.Errorf("writes = %d, want 0", repo.Writes)
		}
	})

	t.Run("structured mode keeps details and rejects malformed output", func(t *testing.T) {
		repo := tu.NewMemTranscriptionRepo()
		id := repo.Seed(models.Transcription{Text: transcript})
		gpt := &tu.FakeRewriter{StructuredFunc: func(_ context.Context, system, _ string) (*models.StructuredPost, error) {
			if platformOf(system) == models.PlatformReddit {
				return nil, ports.ErrMalformedResponse
			}
			return &models.StructuredPost{
				OptimizedContent: "structured " + string(platformOf(system)),
				Hashtags:         []string{"#voice"},
				Tone:             "upbeat",
				TargetAudience:   "makers",
			}, nil
		}}

		res, err := newTestOptimizer(repo, gpt).Optimize(context.Background(), ports.OptimizeInput{TranscriptionID: id, Structured: true})
		if err != nil {
			t.Fatalf("Optimize() error = %v", err)
		}

		if res.Optimizations[models.PlatformLinkedIn] != "structured linkedin" {
			t.Errorf("linkedin = %q", res.Optimizations[models.PlatformLinkedIn])
		}
		if res.Optimizations[models.PlatformReddit] != transcript {
			t.Errorf("reddit = %q, want fallback", res.Optimizations[models.PlatformReddit])
		}
		if d, ok := res.Details[models.PlatformTwitter]; !ok || d.Tone != "upbeat" {
			t.Errorf("twitter details = %+v", res.Details)
		}
		if _, ok := res.Details[models.PlatformReddit]; ok {
			t.Error("failed platform must not carry details")
		}
	})

	t.Run("legacy mode fills optimizedText", func(t *testing.T) {
		repo := tu.NewMemTranscriptionRepo()
		id := repo.Seed(models.Transcription{Text: transcript})

		res, err := newTestOptimizer(repo, &tu.FakeRewriter{}).Optimize(context.Background(), ports.OptimizeInput{
			TranscriptionID: id,
			Platforms:       []models.Platform{models.PlatformLinkedIn},
			Legacy:          true,
		})
		if err != nil {
			t.Fatalf("Optimize() error = %v", err)
		}
		stored, _ := repo.Get(id)
		if res.OptimizedText == "" || stored.OptimizedText != res.OptimizedText {
			t.Errorf("optimizedText = %q, stored %q", res.OptimizedText, stored.OptimizedText)
		}
	})

	t.Run("validation", func(t *testing.T) {
		o := newTestOptimizer(tu.NewMemTranscriptionRepo(), &tu.FakeRewriter{})

		if _, err := o.Optimize(context.Background(), ports.OptimizeInput{}); !errors.Is(err, ports.ErrValidation) {
			t.Errorf("empty id: %v", err)
		}
		_, err := o.Optimize(context.Background(), ports.OptimizeInput{TranscriptionID: "x", Platforms: []models.Platform{"myspace"}})
		if !errors.Is(err, ports.ErrValidation) {
			t.Errorf("bad platform: %v", err)
		}
	})
}

func TestOptimizer_Events(t *testing.T) {
	repo := tu.NewMemTranscriptionRepo()
	id := repo.Seed(models.Transcription{Text: transcript})
	o := newTestOptimizer(repo, &tu.FakeRewriter{})

	if _, err := o.Optimize(context.Background(), ports.OptimizeInput{
		TranscriptionID: id,
		Platforms:       []models.Platform{models.PlatformTwitter, models.PlatformReddit},
	}); err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}

	var platforms, done int
	for len(o.Events()) > 0 {
		ev := <-o.Events()
		if ev.TranscriptionID != id {
			t.Errorf("event for %q", ev.TranscriptionID)
		}
		if ev.Done {
			done++
		} else {
			platforms++
		}
	}
	if platforms != 2 || done != 1 {
		t.Errorf("platform events = %d, done events = %d", platforms, done)
	}
}

func TestOptimizer_EventsOnTimeout(t *testing.T) {
	repo := tu.NewMemTranscriptionRepo()
	id := repo.Seed(models.Transcription{Text: transcript})
	gpt := &tu.FakeRewriter{RewriteFunc: func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}}
	o := NewOptimizer(repo, gpt, nil, tu.NopLogger(), OptimizerConfig{MaxAttempts: 1})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if _, err := o.Optimize(ctx, ports.OptimizeInput{
		TranscriptionID: id,
		Platforms:       []models.Platform{models.PlatformLinkedIn},
	}); !errors.Is(err, ports.ErrTimeout) {
		t.Fatalf("error = %v, want ErrTimeout", err)
	}

	var last ports.OptimizationEvent
	n := 0
	for len(o.Events()) > 0 {
		last = <-o.Events()
		n++
	}
	if n != 2 {
		t.Fatalf("events = %d, want platform + done", n)
	}
	if !last.Done || last.Success || last.TranscriptionID != id {
		t.Errorf("terminal event = %+v, want unsuccessful done", last)
	}
	if repo.Writes != 0 {
		t.Errorf("writes = %d, want 0", repo.Writes)
	}
}

func TestPrompts(t *testing.T) {
	for _, p := range models.AllPlatforms() {
		for _, structured := range []bool{false, true} {
			prompt := promptFor(p, structured)
			if prompt == "" {
				t.Fatalf("no prompt for %s structured=%v", p, structured)
			}
			if platformOf(prompt) != p {
				t.Errorf("prompt for %s mentions another platform", p)
			}
			if structured && !strings.Contains(prompt, `"optimizedContent"`) {
				t.Errorf("structured prompt for %s lacks the json shape", p)
			}
		}
	}
	if !strings.Contains(promptFor(models.PlatformTwitter, false), "280") {
		t.Error("twitter prompt must state the character limit")
	}
}
