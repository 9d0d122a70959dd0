package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/project_gochi/internal/brain"
	"github.com/omriShneor/project_gochi/internal/gcal"
	"github.com/omriShneor/project_gochi/internal/llm"
	"github.com/omriShneor/project_gochi/internal/server"
)

const (
	TestModel = "microsoft/Phi-3-mini-4k-instruct"

	testCredentials = `{
  "installed": {
    "client_id": "test-client.apps.googleusercontent.com",
    "client_secret": "test-secret",
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token",
    "redirect_uris": ["http://localhost"]
  }
}`
)

// TestServer wraps a fully wired server for E2E testing. Only Google and the
// inference server are faked; the calendar and model clients are the real ones.
type TestServer struct {
	Server     *server.Server
	HTTPServer *httptest.Server
	Calendar   *FakeCalendarAPI
	Model      *FakeModelServer
	GCal       *gcal.Client

	withoutCalendar bool
	withoutToken    bool
	t               *testing.T
}

// TestServerOption configures a test server
type TestServerOption func(*TestServer)

// WithoutCalendar runs the server with no calendar client at all
func WithoutCalendar() TestServerOption {
	return func(ts *TestServer) {
		ts.withoutCalendar = true
	}
}

// WithoutToken configures calendar credentials but no token file
func WithoutToken() TestServerOption {
	return func(ts *TestServer) {
		ts.withoutToken = true
	}
}

// WithCalendarEvents preloads the fake calendar
func WithCalendarEvents(events ...FakeEvent) TestServerOption {
	return func(ts *TestServer) {
		ts.Calendar.SetEvents(events...)
	}
}

// WithModelReply sets the raw text the fake model generates
func WithModelReply(reply string) TestServerOption {
	return func(ts *TestServer) {
		ts.Model.SetReply(reply)
	}
}

// NewTestServer creates a fully configured test server for E2E testing
func NewTestServer(t *testing.T, opts ...TestServerOption) *TestServer {
	t.Helper()
	t.Setenv("GOOGLE_CREDENTIALS_JSON", "")

	ts := &TestServer{
		Calendar: NewFakeCalendarAPI(t),
		Model:    NewFakeModelServer(t, TestModel),
		t:        t,
	}

	// Apply options before wiring clients
	for _, opt := range opts {
		opt(ts)
	}

	generator := llm.NewClient(llm.Config{
		BaseURL: ts.Model.BaseURL(),
		Model:   TestModel,
		Timeout: 5 * time.Second,
	})
	require.NoError(t, generator.CheckModel(context.Background()), "fake model server not ready")

	brainCfg := brain.Config{Generator: generator, Logger: zerolog.Nop()}
	serverCfg := server.ServerConfig{ModelName: generator.Model(), Logger: zerolog.Nop()}

	if !ts.withoutCalendar {
		ts.GCal = ts.newCalendarClient()
		brainCfg.Calendar = ts.GCal
		serverCfg.Calendar = ts.GCal
	}
	serverCfg.Brain = brain.New(brainCfg)

	ts.Server = server.New(serverCfg)
	ts.HTTPServer = httptest.NewServer(ts.Server.Handler())
	t.Cleanup(ts.HTTPServer.Close)

	return ts
}

func (ts *TestServer) newCalendarClient() *gcal.Client {
	dir := ts.t.TempDir()
	credentialsFile := filepath.Join(dir, "credentials.json")
	tokenFile := filepath.Join(dir, "token.json")
	require.NoError(ts.t, os.WriteFile(credentialsFile, []byte(testCredentials), 0o600))

	if !ts.withoutToken {
		token := fmt.Sprintf(`{"access_token":"test-access","token_type":"Bearer","refresh_token":"test-refresh","expiry":%q}`,
			time.Now().Add(time.Hour).Format(time.RFC3339))
		require.NoError(ts.t, os.WriteFile(tokenFile, []byte(token), 0o600))
	}

	client, err := gcal.NewClient(credentialsFile, tokenFile,
		gcal.WithEndpoint(ts.Calendar.Endpoint()),
		gcal.WithTimeout(5*time.Second),
	)
	require.NoError(ts.t, err)
	return client
}

// BaseURL returns the test server base URL
func (ts *TestServer) BaseURL() string {
	return ts.HTTPServer.URL
}
