package brain

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/omriShneor/project_gochi/internal/pet"
)

const defaultMaxEvents = 5

// ErrGeneration wraps any failure of the language model call
var ErrGeneration = errors.New("reply generation failed")

// EventSource lists upcoming calendar events as display lines
type EventSource interface {
	UpcomingEvents(ctx context.Context, maxResults int) ([]string, error)
}

// Generator produces a raw continuation for a prompt
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Config wires the brain's collaborators. Calendar may be nil when no calendar
// credentials are configured.
type Config struct {
	Calendar  EventSource
	Generator Generator
	Sanitizer *Sanitizer
	Template  *ChatTemplate
	MaxEvents int
	Logger    zerolog.Logger
}

// Brain answers one user message at a time. It is built once at startup and
// shared by all requests; it holds no per-request state.
type Brain struct {
	calendar  EventSource
	generator Generator
	sanitizer *Sanitizer
	template  ChatTemplate
	maxEvents int
	logger    zerolog.Logger
}

// New creates a Brain
func New(cfg Config) *Brain {
	sanitizer := cfg.Sanitizer
	if sanitizer == nil {
		sanitizer = defaultSanitizer
	}
	template := Phi3Template
	if cfg.Template != nil {
		template = *cfg.Template
	}
	maxEvents := cfg.MaxEvents
	if maxEvents <= 0 {
		maxEvents = defaultMaxEvents
	}

	return &Brain{
		calendar:  cfg.Calendar,
		generator: cfg.Generator,
		sanitizer: sanitizer,
		template:  template,
		maxEvents: maxEvents,
		logger:    cfg.Logger,
	}
}

// Respond builds a reply to the user's message and returns the state with one more
// interaction counted. Calendar failures never fail the request.
func (b *Brain) Respond(ctx context.Context, in pet.Input) (pet.Output, error) {
	if in.State == nil {
		return pet.Output{}, fmt.Errorf("%w: state is required", pet.ErrInvalidState)
	}
	state := *in.State

	events := b.upcomingEvents(ctx)

	prompt := BuildPromptWithTemplate(b.template, in.UserMessage, state, events)
	b.logger.Debug().Str("prompt", prompt).Msg("constructed prompt")

	raw, err := b.generator.Generate(ctx, prompt)
	if err != nil {
		return pet.Output{}, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	reply := b.sanitizer.Clean(raw)
	b.logger.Debug().
		Str("raw", raw).
		Str("reply", reply).
		Int("events", len(events)).
		Msg("reply generated")

	return pet.Output{
		NewState: state.Advance(),
		Reply:    reply,
	}, nil
}

func (b *Brain) upcomingEvents(ctx context.Context) []string {
	if b.calendar == nil {
		return nil
	}

	events, err := b.calendar.UpcomingEvents(ctx, b.maxEvents)
	if err != nil {
		b.logger.Warn().Err(err).Msg("failed to fetch calendar events, continuing without them")
		return nil
	}
	return events
}
