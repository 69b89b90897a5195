package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Generator is the generative content collaborator. Implementations may fail;
// the collation engine owns the fallback policy, callers never see an error
// surface from a generation cycle.
type Generator interface {
	SuggestQuestions(ctx context.Context, category, description string, existing []string) ([]string, error)
	GenerateIntro(ctx context.Context, loopName string, responses []Response, members []Member) (string, error)
	GenerateHeaderImage(ctx context.Context, theme string) (string, error)
	GenerateNarrative(ctx context.Context, loopName string, questions []Question, responses []Response, members []Member) (string, error)
}

// Fallback content used when any generation call fails. The user must always
// be able to reach a publishable draft, collaborators available or not.
const (
	FallbackIntro = "Welcome to another edition of our collective journey. " +
		"It's time to pause and catch up with the beautiful souls in this loop."
	FallbackHeaderImage = "https://picsum.photos/1200/400"
	FallbackNarrative   = "This cycle, the loop speaks for itself. " +
		"Read on for everyone's replies, word for word."
)

// GenResult carries one collaborator call's outcome. The engine selects the
// fallback explicitly on Err; no value is coerced silently.
type GenResult struct {
	Value string
	Err   error
}

// LoopGateway is the slice of the mutation gateway the collation engine and
// edition lifecycle need.
type LoopGateway interface {
	Get(id string) (*Loop, error)
	ReplaceLoop(loop Loop) error
}

// CollationService produces draft content: it orchestrates the generation
// collaborators and writes the resulting draft back through the gateway.
type CollationService struct {
	gateway LoopGateway
	gen     Generator
	logger  *zap.Logger
	now     func() time.Time
}

func NewCollationService(gateway LoopGateway, gen Generator, logger *zap.Logger) *CollationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CollationService{
		gateway: gateway,
		gen:     gen,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// RunGenerationCycle invokes the intro, header image and narrative
// collaborators concurrently and joins them into a draft. The narrative is
// generated even in verbatim mode so a later mode switch needs no
// regeneration. A failure in any call fails the whole cycle: every field
// falls back, never a mix of fresh and stale content, and GeneratedAt is
// stamped regardless so the draft stays publishable.
func (s *CollationService) RunGenerationCycle(ctx context.Context, loop Loop) *Draft {
	var intro, header, narrative GenResult

	var g errgroup.Group
	g.Go(func() error {
		intro.Value, intro.Err = s.gen.GenerateIntro(ctx, loop.Name, loop.Responses, loop.Members)
		return intro.Err
	})
	g.Go(func() error {
		theme := fmt.Sprintf("Newsletter about %s %s", loop.Name, loop.Description)
		header.Value, header.Err = s.gen.GenerateHeaderImage(ctx, theme)
		return header.Err
	})
	g.Go(func() error {
		narrative.Value, narrative.Err = s.gen.GenerateNarrative(ctx, loop.Name, loop.Questions, loop.Responses, loop.Members)
		return narrative.Err
	})

	if err := g.Wait(); err != nil {
		s.logger.Warn("generation cycle failed, using fallback draft",
			zap.String("loop_id", loop.ID), zap.Error(err))
		return &Draft{
			GeneratedAt:   s.now(),
			HeaderImage:   FallbackHeaderImage,
			IntroText:     FallbackIntro,
			NarrativeText: FallbackNarrative,
		}
	}

	return &Draft{
		GeneratedAt:   s.now(),
		HeaderImage:   header.Value,
		IntroText:     intro.Value,
		NarrativeText: narrative.Value,
	}
}

// Generate runs a generation cycle for the loop and commits the draft,
// overwriting any previous draft wholesale. If the loop was deleted while
// generation was in flight the result is dropped.
func (s *CollationService) Generate(ctx context.Context, loopID string) (*Draft, error) {
	loop, err := s.gateway.Get(loopID)
	if err != nil {
		return nil, err
	}
	draft := s.RunGenerationCycle(ctx, *loop)
	loop.Draft = draft
	if err := s.gateway.ReplaceLoop(*loop); err != nil {
		s.logger.Info("dropping draft for vanished loop", zap.String("loop_id", loopID))
		return nil, err
	}
	return draft, nil
}

// SetCollationMode is a pure field write: both renderings derive from the
// same stored draft and responses, so toggling is instant and idempotent.
func (s *CollationService) SetCollationMode(loopID string, mode CollationMode) (*Loop, error) {
	if !mode.Valid() {
		return nil, NewInvalidError(fmt.Sprintf("unknown collation mode %q", mode))
	}
	loop, err := s.gateway.Get(loopID)
	if err != nil {
		return nil, err
	}
	loop.CollationMode = mode
	if err := s.gateway.ReplaceLoop(*loop); err != nil {
		return nil, err
	}
	return loop, nil
}

// SuggestQuestions asks the collaborator for prompt ideas. It fails open: on
// any error the caller gets an empty list, never an error.
func (s *CollationService) SuggestQuestions(ctx context.Context, loopID string) ([]string, error) {
	loop, err := s.gateway.Get(loopID)
	if err != nil {
		return nil, err
	}
	existing := make([]string, 0, len(loop.Questions))
	for _, q := range loop.Questions {
		existing = append(existing, q.Text)
	}
	suggestions, err := s.gen.SuggestQuestions(ctx, loop.Category, loop.Description, existing)
	if err != nil {
		s.logger.Warn("question suggestion failed", zap.String("loop_id", loopID), zap.Error(err))
		return []string{}, nil
	}
	return suggestions, nil
}
