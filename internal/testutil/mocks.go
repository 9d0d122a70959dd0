package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// FakeEvent is one Google Calendar event as the fake API returns it.
// Set Date fields for all-day events, DateTime fields otherwise.
type FakeEvent struct {
	Summary       string
	StartDateTime string
	EndDateTime   string
	StartDate     string
	EndDate       string
}

// FakeCalendarAPI simulates the Google Calendar v3 events endpoint
type FakeCalendarAPI struct {
	mu       sync.Mutex
	events   []FakeEvent
	status   int
	requests int
	srv      *httptest.Server
}

// NewFakeCalendarAPI starts a fake Calendar API that lives for the test
func NewFakeCalendarAPI(t *testing.T) *FakeCalendarAPI {
	t.Helper()
	f := &FakeCalendarAPI{status: http.StatusOK}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

// Endpoint is the base path to hand to gcal.WithEndpoint
func (f *FakeCalendarAPI) Endpoint() string {
	return f.srv.URL + "/calendar/v3/"
}

// SetEvents replaces the events returned on the next request
func (f *FakeCalendarAPI) SetEvents(events ...FakeEvent) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = events
}

// FailWith makes every following request fail with the given HTTP status
func (f *FakeCalendarAPI) FailWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

// Requests returns how many event listings were served
func (f *FakeCalendarAPI) Requests() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests
}

func (f *FakeCalendarAPI) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/calendar/v3/calendars/primary/events" {
		http.NotFound(w, r)
		return
	}

	f.mu.Lock()
	f.requests++
	status := f.status
	events := append([]FakeEvent(nil), f.events...)
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{"code": status, "message": http.StatusText(status)},
		})
		return
	}

	items := make([]map[string]any, 0, len(events))
	for _, ev := range events {
		item := map[string]any{
			"start": eventTime(ev.StartDateTime, ev.StartDate),
			"end":   eventTime(ev.EndDateTime, ev.EndDate),
		}
		if ev.Summary != "" {
			item["summary"] = ev.Summary
		}
		items = append(items, item)
	}
	json.NewEncoder(w).Encode(map[string]any{"kind": "calendar#events", "items": items})
}

func eventTime(dateTime, date string) map[string]string {
	if dateTime != "" {
		return map[string]string{"dateTime": dateTime}
	}
	return map[string]string{"date": date}
}

// FakeModelServer simulates an OpenAI-compatible inference server with one model loaded
type FakeModelServer struct {
	mu      sync.Mutex
	model   string
	reply   string
	status  int
	prompts []string
	srv     *httptest.Server
}

// NewFakeModelServer starts a fake inference server serving model
func NewFakeModelServer(t *testing.T, model string) *FakeModelServer {
	t.Helper()
	f := &FakeModelServer{model: model, status: http.StatusOK}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

// BaseURL is the URL to hand to llm.Config
func (f *FakeModelServer) BaseURL() string {
	return f.srv.URL + "/v1/"
}

// SetReply sets the raw completion text returned for every prompt
func (f *FakeModelServer) SetReply(reply string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = reply
}

// FailWith makes completions fail with the given HTTP status
func (f *FakeModelServer) FailWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

// Prompts returns every prompt received so far
func (f *FakeModelServer) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

// LastPrompt returns the most recent prompt, or "" if none arrived
func (f *FakeModelServer) LastPrompt() string {
	prompts := f.Prompts()
	if len(prompts) == 0 {
		return ""
	}
	return prompts[len(prompts)-1]
}

func (f *FakeModelServer) handle(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	switch r.URL.Path {
	case "/v1/models":
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data": []map[string]any{
				{"id": f.model, "object": "model", "created": 0, "owned_by": "vllm"},
			},
		})

	case "/v1/completions":
		var body struct {
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.prompts = append(f.prompts, body.Prompt)
		status := f.status
		reply := f.reply
		f.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]any{"message": http.StatusText(status), "type": "server_error"},
			})
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"id":      "cmpl-test",
			"object":  "text_completion",
			"created": 0,
			"model":   f.model,
			"choices": []map[string]any{
				{"index": 0, "text": reply, "finish_reason": "stop"},
			},
		})

	default:
		http.NotFound(w, r)
	}
}
