package calendar

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
)

// CredentialSourceDB and CredentialSourceEnv report where the effective
// client credentials came from.
const (
	CredentialSourceDB  = "database"
	CredentialSourceEnv = "environment"
)

// ClientFactory assembles the oauth2 client configuration once and caches
// it. Database-stored credentials take precedence over environment defaults;
// saving or deleting credentials invalidates the cache.
type ClientFactory struct {
	store StoreAPI
	env   Credentials

	mu     sync.Mutex
	cached *oauth2.Config
}

func NewClientFactory(store StoreAPI, env Credentials) *ClientFactory {
	return &ClientFactory{store: store, env: env}
}

// Credentials returns the effective client credentials and their source.
func (f *ClientFactory) Credentials(ctx context.Context) (Credentials, string, error) {
	stored, err := f.store.GetCredentials(ctx)
	if err != nil {
		return Credentials{}, "", err
	}
	if stored != nil && stored.ClientID != "" {
		return *stored, CredentialSourceDB, nil
	}
	if f.env.ClientID != "" {
		return f.env, CredentialSourceEnv, nil
	}
	return Credentials{}, "", ErrNoCredentials
}

// OAuthConfig returns the cached oauth2 configuration, building it on first
// use.
func (f *ClientFactory) OAuthConfig(ctx context.Context) (*oauth2.Config, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cached != nil {
		return f.cached, nil
	}

	creds, _, err := f.Credentials(ctx)
	if err != nil {
		return nil, err
	}
	f.cached = &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		RedirectURL:  creds.RedirectURI,
		Scopes:       []string{gcal.CalendarScope},
		Endpoint:     google.Endpoint,
	}
	return f.cached, nil
}

// Invalidate drops the cached configuration; called after credential writes.
func (f *ClientFactory) Invalidate() {
	f.mu.Lock()
	f.cached = nil
	f.mu.Unlock()
}
