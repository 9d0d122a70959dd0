package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/project_gochi/internal/brain"
	"github.com/omriShneor/project_gochi/internal/mocks"
	"github.com/omriShneor/project_gochi/internal/pet"
)

type fakeCalendarStatus bool

func (f fakeCalendarStatus) IsAuthenticated() bool { return bool(f) }

// createTestServer wires a real brain to mocked calendar and generator
func createTestServer(t *testing.T, cal *mocks.MockEventSource, gen *mocks.MockGenerator) *Server {
	t.Helper()

	b := brain.New(brain.Config{
		Calendar:  cal,
		Generator: gen,
		Logger:    zerolog.Nop(),
	})

	return New(ServerConfig{
		Brain:     b,
		Calendar:  fakeCalendarStatus(true),
		ModelName: "test-model",
		Port:      0,
		Logger:    zerolog.Nop(),
	})
}

func postRespond(t *testing.T, s *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/respond", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

const goldenBody = `{
	"userMessage": "I finished my tasks",
	"state": {"mood": "golden", "personality": "supportive", "completionRate": 0.9, "totalInteractions": 3}
}`

func TestHandleHealthCheck(t *testing.T) {
	t.Run("calendar connected", func(t *testing.T) {
		s := createTestServer(t, new(mocks.MockEventSource), new(mocks.MockGenerator))

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		s.Handler().ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "healthy", response["status"])
		assert.Equal(t, "connected", response["calendar"])
		assert.Equal(t, "test-model", response["model"])
	})

	t.Run("no calendar", func(t *testing.T) {
		s := New(ServerConfig{ModelName: "m", Logger: zerolog.Nop()})

		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		w := httptest.NewRecorder()
		s.handleHealthCheck(w, req)

		var response map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "disconnected", response["calendar"])
	})
}

func TestHandleRespond(t *testing.T) {
	cal := new(mocks.MockEventSource)
	gen := new(mocks.MockGenerator)
	cal.On("UpcomingEvents", mock.Anything, 5).Return([]string{"2025-11-14 09:00:00 ~ 2025-11-14 09:15:00: Standup"}, nil)
	gen.On("Generate", mock.Anything, mock.Anything).Return("Amazing work today! You earned a break.", nil)

	s := createTestServer(t, cal, gen)
	w := postRespond(t, s, goldenBody)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var out pet.Output
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "Amazing work today. You earned a break.", out.Reply)
	assert.Equal(t, pet.State{
		Mood:              pet.MoodGolden,
		Personality:       pet.PersonalitySupportive,
		CompletionRate:    0.9,
		TotalInteractions: 4,
	}, out.NewState)
}

func TestHandleRespondCalendarFailure(t *testing.T) {
	cal := new(mocks.MockEventSource)
	gen := new(mocks.MockGenerator)
	cal.On("UpcomingEvents", mock.Anything, 5).Return(nil, errors.New("token expired"))
	gen.On("Generate", mock.Anything, mock.Anything).Return("Nothing on the calendar. Relax.", nil)

	s := createTestServer(t, cal, gen)
	w := postRespond(t, s, goldenBody)

	assert.Equal(t, http.StatusOK, w.Code)

	var out pet.Output
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, "Nothing on the calendar. Relax.", out.Reply)
	assert.Equal(t, 4, out.NewState.TotalInteractions)
}

func TestHandleRespondGenerationFailure(t *testing.T) {
	cal := new(mocks.MockEventSource)
	gen := new(mocks.MockGenerator)
	cal.On("UpcomingEvents", mock.Anything, 5).Return([]string{}, nil)
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("connection refused"))

	s := createTestServer(t, cal, gen)
	w := postRespond(t, s, goldenBody)

	assert.Equal(t, http.StatusBadGateway, w.Code)

	var response map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, "failed to generate reply", response["error"])
}

func TestHandleRespondBadRequests(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed json", `{"userMessage": `, http.StatusBadRequest},
		{"wrong type", `{"userMessage": 5}`, http.StatusBadRequest},
		{"missing state", `{"userMessage": "hi"}`, http.StatusUnprocessableEntity},
		{"missing message", `{"state": {"mood": "sad", "personality": "chill", "completionRate": 0.5}}`, http.StatusUnprocessableEntity},
		{"unknown mood", `{"userMessage": "hi", "state": {"mood": "angry", "personality": "chill", "completionRate": 0.5}}`, http.StatusUnprocessableEntity},
		{"unknown personality", `{"userMessage": "hi", "state": {"mood": "sad", "personality": "rude", "completionRate": 0.5}}`, http.StatusUnprocessableEntity},
		{"rate out of range", `{"userMessage": "hi", "state": {"mood": "sad", "personality": "chill", "completionRate": 1.5}}`, http.StatusUnprocessableEntity},
		{"negative interactions", `{"userMessage": "hi", "state": {"mood": "sad", "personality": "chill", "completionRate": 0.5, "totalInteractions": -1}}`, http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := new(mocks.MockEventSource)
			gen := new(mocks.MockGenerator)
			s := createTestServer(t, cal, gen)

			w := postRespond(t, s, tt.body)

			assert.Equal(t, tt.status, w.Code)
			var response map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.NotEmpty(t, response["error"])
			gen.AssertNotCalled(t, "Generate", mock.Anything, mock.Anything)
		})
	}
}

func TestHandleRespondIgnoresUnknownFields(t *testing.T) {
	gen := new(mocks.MockGenerator)
	gen.On("Generate", mock.Anything, mock.Anything).Return("Hi there.", nil)
	cal := new(mocks.MockEventSource)
	cal.On("UpcomingEvents", mock.Anything, 5).Return(nil, nil)

	s := createTestServer(t, cal, gen)
	w := postRespond(t, s, `{"userMessage": "hi", "extra": true, "state": {"mood": "neutral", "personality": "happy", "completionRate": 0, "streak": 7}}`)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	s := createTestServer(t, new(mocks.MockEventSource), new(mocks.MockGenerator))

	req := httptest.NewRequest(http.MethodOptions, "/respond", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestUnknownRoute(t *testing.T) {
	s := createTestServer(t, new(mocks.MockEventSource), new(mocks.MockGenerator))

	req := httptest.NewRequest(http.MethodGet, "/respond", nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}
