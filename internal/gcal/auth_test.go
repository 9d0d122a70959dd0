package gcal

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	expiry := time.Date(2025, 11, 14, 10, 0, 0, 0, time.UTC)

	require.NoError(t, saveToken(path, &oauth2.Token{
		AccessToken:  "access",
		TokenType:    "Bearer",
		RefreshToken: "refresh",
		Expiry:       expiry,
	}))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	token, err := loadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "access", token.AccessToken)
	assert.Equal(t, "refresh", token.RefreshToken)
	assert.True(t, expiry.Equal(token.Expiry))
}

func TestLoadToken(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantErr     bool
		wantAccess  string
		wantRefresh string
	}{
		{
			name:        "google-auth python layout",
			content:     `{"token": "ya29.legacy", "refresh_token": "1//refresh", "client_id": "x", "client_secret": "y", "expiry": "2025-11-14T15:12:01.123456Z"}`,
			wantAccess:  "ya29.legacy",
			wantRefresh: "1//refresh",
		},
		{
			name:        "refresh token only",
			content:     `{"refresh_token": "1//refresh"}`,
			wantRefresh: "1//refresh",
		},
		{
			name:    "no tokens at all",
			content: `{"token_type": "Bearer"}`,
			wantErr: true,
		},
		{
			name:    "not json",
			content: `not json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "token.json")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			token, err := loadToken(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAccess, token.AccessToken)
			assert.Equal(t, tt.wantRefresh, token.RefreshToken)
			assert.Equal(t, "Bearer", token.TokenType)
		})
	}
}

func TestLoadTokenMissingFile(t *testing.T) {
	_, err := loadToken(filepath.Join(t.TempDir(), "absent.json"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

type sequenceTokenSource struct {
	tokens []*oauth2.Token
	err    error
}

func (s *sequenceTokenSource) Token() (*oauth2.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	token := s.tokens[0]
	if len(s.tokens) > 1 {
		s.tokens = s.tokens[1:]
	}
	return token, nil
}

func TestPersistingTokenSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	first := &oauth2.Token{AccessToken: "old", RefreshToken: "r"}
	refreshed := &oauth2.Token{AccessToken: "new", RefreshToken: "r", Expiry: time.Now().Add(time.Hour)}

	source := &persistingTokenSource{
		base:      &sequenceTokenSource{tokens: []*oauth2.Token{first, refreshed}},
		tokenFile: path,
		last:      "old",
		logger:    zerolog.Nop(),
	}

	token, err := source.Token()
	require.NoError(t, err)
	assert.Equal(t, "old", token.AccessToken)
	_, err = os.Stat(path)
	assert.ErrorIs(t, err, os.ErrNotExist, "unchanged token must not be written")

	token, err = source.Token()
	require.NoError(t, err)
	assert.Equal(t, "new", token.AccessToken)

	saved, err := loadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "new", saved.AccessToken)
}

func TestPersistingTokenSourceError(t *testing.T) {
	source := &persistingTokenSource{
		base:   &sequenceTokenSource{err: errors.New("revoked")},
		logger: zerolog.Nop(),
	}

	_, err := source.Token()
	assert.EqualError(t, err, "revoked")
}

func TestLoadOAuthConfigFromEnv(t *testing.T) {
	t.Setenv("GOOGLE_CREDENTIALS_JSON", testCredentials)

	config, err := loadOAuthConfig("")
	require.NoError(t, err)
	assert.Equal(t, "test-client.apps.googleusercontent.com", config.ClientID)
	assert.Equal(t, OAuthScopes, config.Scopes)
}

func TestGetAuthURLWithRedirect(t *testing.T) {
	t.Setenv("GOOGLE_CREDENTIALS_JSON", testCredentials)
	dir := t.TempDir()

	client, err := NewClient("", filepath.Join(dir, "token.json"))
	require.NoError(t, err)

	url := client.GetAuthURLWithRedirect("http://127.0.0.1:54321/", "state-abc")
	assert.Contains(t, url, "redirect_uri=http%3A%2F%2F127.0.0.1%3A54321%2F")
	assert.Contains(t, url, "state=state-abc")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "calendar.readonly")
}
