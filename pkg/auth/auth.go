// Package auth resolves the bearer token used for remote sync and runs the
// interactive OAuth flows that obtain it.
package auth

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"golang.org/x/oauth2/microsoft"

	"github.com/harrisonrobin/priority-manager/pkg/config"
	"github.com/harrisonrobin/priority-manager/pkg/remote/gtasks"
)

const (
	// TokenEnv holds a Microsoft Graph bearer token and wins over every
	// other source.
	TokenEnv = "MS_TODO_TOKEN"

	// DefaultClientID is the public Microsoft client used when none is
	// configured.
	DefaultClientID = "14d82eec-204b-4c2f-b7e8-296a70dab67e"

	// LocalhostAuthPort is the port the local web server listens on to
	// capture the Google OAuth redirect.
	LocalhostAuthPort = "6789"
)

// ErrAuthRequired is returned when no usable token is available.
var ErrAuthRequired = errors.New("authentication required")

// MicrosoftScopes are requested by the device-code flow.
var MicrosoftScopes = []string{"Tasks.ReadWrite", "offline_access"}

// Manager resolves tokens for the configured provider.
type Manager struct {
	Provider        string
	ClientID        string
	Tenant          string
	Token           string
	CredentialsPath string
	CachePath       string

	// Out receives instructions for the user during interactive flows.
	Out io.Writer
	// Getenv defaults to os.Getenv.
	Getenv func(string) string
	// Endpoint overrides the provider's OAuth endpoint.
	Endpoint *oauth2.Endpoint
}

// NewManager creates a Manager from cfg.
func NewManager(cfg *config.Config) *Manager {
	provider := cfg.Remote.Provider
	if provider == "" {
		provider = config.ProviderMSTodo
	}
	clientID := cfg.Remote.ClientID
	if clientID == "" && provider == config.ProviderMSTodo {
		clientID = DefaultClientID
	}
	tenant := cfg.Remote.Tenant
	if tenant == "" {
		tenant = "common"
	}
	return &Manager{
		Provider:        provider,
		ClientID:        clientID,
		Tenant:          tenant,
		Token:           cfg.Remote.Token,
		CredentialsPath: cfg.CredentialsPath(),
		CachePath:       filepath.Join(cfg.Home(), "token_"+provider+".json"),
		Out:             os.Stdout,
		Getenv:          os.Getenv,
	}
}

func (m *Manager) cache() tokenCache {
	return tokenCache{path: m.CachePath}
}

// OAuthConfig returns the OAuth2 client configuration of the provider.
func (m *Manager) OAuthConfig() (*oauth2.Config, error) {
	var cfg *oauth2.Config
	switch m.Provider {
	case config.ProviderMSTodo:
		endpoint := microsoft.AzureADEndpoint(m.Tenant)
		endpoint.DeviceAuthURL = fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/devicecode", m.Tenant)
		cfg = &oauth2.Config{
			ClientID: m.ClientID,
			Endpoint: endpoint,
			Scopes:   MicrosoftScopes,
		}
	case config.ProviderGTasks:
		b, err := os.ReadFile(m.CredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read client secret file %s: %w", m.CredentialsPath, err)
		}
		cfg, err = google.ConfigFromJSON(b, gtasks.Scopes...)
		if err != nil {
			return nil, fmt.Errorf("unable to parse client secret file to config: %w", err)
		}
		cfg.RedirectURL = localRedirect(cfg.RedirectURL)
	default:
		return nil, fmt.Errorf("unknown remote provider %q", m.Provider)
	}
	if m.Endpoint != nil {
		cfg.Endpoint = *m.Endpoint
	}
	return cfg, nil
}

// TokenSource returns the token source used for remote calls. For
// Microsoft To Do the environment token wins over the configured token,
// which wins over the cache.
func (m *Manager) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	if m.Provider == config.ProviderMSTodo {
		if tok := m.getenv(TokenEnv); tok != "" {
			return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok}), nil
		}
		if m.Token != "" {
			return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: m.Token}), nil
		}
	}

	cached, err := m.cache().load()
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrAuthRequired
	}
	if err != nil {
		return nil, err
	}
	if cached.AccessToken == "" && cached.RefreshToken == "" {
		return nil, ErrAuthRequired
	}
	cfg, err := m.OAuthConfig()
	if err != nil {
		return nil, err
	}
	return &savingTokenSource{
		base:  cfg.TokenSource(ctx, cached),
		cache: m.cache(),
		last:  cached,
	}, nil
}

// HTTPClient returns a client that authorizes requests with TokenSource.
func (m *Manager) HTTPClient(ctx context.Context) (*http.Client, error) {
	ts, err := m.TokenSource(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.NewClient(ctx, ts), nil
}

// Login obtains a token and caches it. With silent set only the cache is
// consulted, refreshing the token if needed.
func (m *Manager) Login(ctx context.Context, silent bool) (*oauth2.Token, error) {
	if silent {
		ts, err := m.TokenSource(ctx)
		if err != nil {
			return nil, err
		}
		return ts.Token()
	}

	cfg, err := m.OAuthConfig()
	if err != nil {
		return nil, err
	}

	var tok *oauth2.Token
	switch m.Provider {
	case config.ProviderMSTodo:
		tok, err = m.deviceFlow(ctx, cfg)
	default:
		tok, err = m.webFlow(ctx, cfg)
	}
	if err != nil {
		return nil, err
	}
	if err := m.cache().save(tok); err != nil {
		return nil, err
	}
	fmt.Fprintf(m.Out, "Saving authentication token to: %s\n", m.CachePath)
	return tok, nil
}

// ResetCache deletes the token cache and reports whether it existed.
func (m *Manager) ResetCache() (bool, error) {
	return m.cache().remove()
}

func (m *Manager) deviceFlow(ctx context.Context, cfg *oauth2.Config) (*oauth2.Token, error) {
	da, err := cfg.DeviceAuth(ctx)
	if err != nil {
		return nil, fmt.Errorf("device authorization failed: %w", err)
	}
	uri := da.VerificationURI
	if da.VerificationURIComplete != "" {
		uri = da.VerificationURIComplete
	}
	fmt.Fprintf(m.Out, "To sign in, open %s and enter the code %s\n", uri, da.UserCode)

	tok, err := cfg.DeviceAccessToken(ctx, da)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token: %w", err)
	}
	return tok, nil
}

func (m *Manager) getenv(key string) string {
	if m.Getenv == nil {
		return os.Getenv(key)
	}
	return m.Getenv(key)
}

// localRedirect forces localhost and out-of-band redirect URLs onto the
// port the local server listens on.
func localRedirect(redirect string) string {
	if redirect == "urn:ietf:wg:oauth:2.0:oob" || redirect == "" {
		return fmt.Sprintf("http://localhost:%s/oauth2callback", LocalhostAuthPort)
	}
	parsed, err := url.Parse(redirect)
	if err != nil {
		log.Printf("Warning: Could not parse RedirectURL '%s': %v. Using it as is.", redirect, err)
		return redirect
	}
	if parsed.Hostname() != "localhost" && parsed.Hostname() != "127.0.0.1" {
		log.Printf("Warning: Configured RedirectURL is not a localhost callback: %s", redirect)
		return redirect
	}
	if parsed.Port() != LocalhostAuthPort {
		parsed.Host = parsed.Hostname() + ":" + LocalhostAuthPort
	}
	return parsed.String()
}
