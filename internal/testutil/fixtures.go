package testutil

import "github.com/omriShneor/project_gochi/internal/pet"

// StateBuilder builds test pet states
type StateBuilder struct {
	state pet.State
}

// NewStateBuilder creates a new state builder with defaults
func NewStateBuilder() *StateBuilder {
	return &StateBuilder{
		state: pet.State{
			Mood:           pet.MoodNeutral,
			Personality:    pet.PersonalityChill,
			CompletionRate: 0.5,
		},
	}
}

// Golden sets mood to golden
func (b *StateBuilder) Golden() *StateBuilder {
	b.state.Mood = pet.MoodGolden
	return b
}

// Sad sets mood to sad
func (b *StateBuilder) Sad() *StateBuilder {
	b.state.Mood = pet.MoodSad
	return b
}

// WithPersonality sets the personality
func (b *StateBuilder) WithPersonality(p pet.Personality) *StateBuilder {
	b.state.Personality = p
	return b
}

// WithCompletionRate sets the completion rate
func (b *StateBuilder) WithCompletionRate(rate float64) *StateBuilder {
	b.state.CompletionRate = rate
	return b
}

// WithInteractions sets the interaction count
func (b *StateBuilder) WithInteractions(n int) *StateBuilder {
	b.state.TotalInteractions = n
	return b
}

// Build returns the state
func (b *StateBuilder) Build() pet.State {
	return b.state
}

// Request wraps the state in a respond request body
func (b *StateBuilder) Request(message string) pet.Input {
	state := b.state
	return pet.Input{UserMessage: message, State: &state}
}

// StandupEvent is a short timed event
func StandupEvent() FakeEvent {
	return FakeEvent{
		Summary:       "Standup",
		StartDateTime: "2025-11-14T09:00:00-05:00",
		EndDateTime:   "2025-11-14T09:15:00-05:00",
	}
}

// AllDayEvent is an untitled all-day event
func AllDayEvent() FakeEvent {
	return FakeEvent{
		StartDate: "2025-11-15",
		EndDate:   "2025-11-16",
	}
}
