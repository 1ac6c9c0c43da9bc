package stations

import (
	"context"
	"unicode/utf8"

	"github.com/Vovarama1992/go-utils/logger"
	"github.com/Vovarama1992/voicepost/internal/models"
	"github.com/Vovarama1992/voicepost/internal/ports"
)

// trim cuts s to at most max bytes without splitting a rune.
func trim(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

type S3Rewrite struct {
	gpt ports.RewriteService
	log *logger.ZapLogger
}

func NewS3Rewrite(gpt ports.RewriteService, log *logger.ZapLogger) *S3Rewrite {
	return &S3Rewrite{gpt: gpt, log: log}
}

// Run performs a single rewrite attempt for one platform. In structured mode
// the returned text is the post's optimizedContent.
func (s *S3Rewrite) Run(
	ctx context.Context,
	platform models.Platform,
	system string,
	raw string,
	structured bool,
) (string, *models.StructuredPost, error) {

	if structured {
		post, err := s.gpt.RewriteStructured(ctx, system, raw)
		if err != nil {
			return "", nil, err
		}
		s.debug(platform, raw, post.OptimizedContent)
		return post.OptimizedContent, post, nil
	}

	out, err := s.gpt.Rewrite(ctx, system, raw)
	if err != nil {
		return "", nil, err
	}
	s.debug(platform, raw, out)
	return out, nil, nil
}

func (s *S3Rewrite) debug(platform models.Platform, in, out string) {
	s.log.Log(logger.LogEntry{
		Level:   "debug",
		Message: "rewrite done",
		Fields: map[string]any{
			"platform": string(platform),
			"in":       trim(in, 180),
			"out":      trim(out, 220),
		},
	})
}
