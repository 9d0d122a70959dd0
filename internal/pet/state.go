package pet

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidState is returned when a request carries a state outside the allowed values
var ErrInvalidState = errors.New("invalid pet state")

// Mood is the pet's current emotional presentation
type Mood string

const (
	MoodSad     Mood = "sad"
	MoodNeutral Mood = "neutral"
	MoodGolden  Mood = "golden"
)

// Personality is the voice the pet talks in
type Personality string

const (
	PersonalitySupportive Personality = "supportive"
	PersonalitySarcastic  Personality = "sarcastic"
	PersonalityChill      Personality = "chill"
	PersonalityBullying   Personality = "bullying"
	PersonalityJudgmental Personality = "judgmental"
	PersonalityHappy      Personality = "happy"
)

var validMoods = map[Mood]bool{
	MoodSad:     true,
	MoodNeutral: true,
	MoodGolden:  true,
}

var validPersonalities = map[Personality]bool{
	PersonalitySupportive: true,
	PersonalitySarcastic:  true,
	PersonalityChill:      true,
	PersonalityBullying:   true,
	PersonalityJudgmental: true,
	PersonalityHappy:      true,
}

// IsValid reports whether m is one of the known moods
func (m Mood) IsValid() bool {
	return validMoods[m]
}

// IsValid reports whether p is one of the known personalities
func (p Personality) IsValid() bool {
	return validPersonalities[p]
}

// State is the persona state supplied by the caller on every request.
// The service never stores it.
type State struct {
	Mood              Mood        `json:"mood"`
	Personality       Personality `json:"personality"`
	CompletionRate    float64     `json:"completionRate"` // 0.0 ~ 1.0
	TotalInteractions int         `json:"totalInteractions"`
}

// Validate checks every field against its allowed range
func (s State) Validate() error {
	var problems []string

	if !s.Mood.IsValid() {
		problems = append(problems, fmt.Sprintf("mood %q is not one of sad, neutral, golden", s.Mood))
	}
	if !s.Personality.IsValid() {
		problems = append(problems, fmt.Sprintf("personality %q is not one of supportive, sarcastic, chill, bullying, judgmental, happy", s.Personality))
	}
	// Written as a negated range check so NaN fails too.
	if !(s.CompletionRate >= 0 && s.CompletionRate <= 1) {
		problems = append(problems, fmt.Sprintf("completionRate %v is outside [0, 1]", s.CompletionRate))
	}
	if s.TotalInteractions < 0 {
		problems = append(problems, fmt.Sprintf("totalInteractions %d is negative", s.TotalInteractions))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidState, strings.Join(problems, "; "))
	}
	return nil
}

// Advance returns a copy of the state with one more interaction counted.
// Mood, personality and completion rate are owned by the caller and pass through.
func (s State) Advance() State {
	next := s
	next.TotalInteractions++
	return next
}

// Input is the body of a respond request
type Input struct {
	UserMessage string `json:"userMessage"`
	State       *State `json:"state"`
}

// Validate checks that the request carries a usable state
func (in Input) Validate() error {
	if in.State == nil {
		return fmt.Errorf("%w: state is required", ErrInvalidState)
	}
	return in.State.Validate()
}

// Output is the body of a respond response
type Output struct {
	NewState State  `json:"newState"`
	Reply    string `json:"reply"`
}
