package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	ProviderGitHub      = "github"
	defaultGitHubAPIURL = "https://api.github.com"
)

// ProviderProfile là thông tin người dùng lấy từ nhà cung cấp OAuth.
type ProviderProfile struct {
	ID            string
	Login         string
	Name          string
	Email         string
	EmailVerified bool
	AvatarURL     string
}

// GitHubProvider thực hiện luồng OAuth authorization code (PKCE S256) với GitHub.
type GitHubProvider struct {
	oauth      *oauth2.Config
	apiURL     string
	httpClient *http.Client
}

type GitHubOption func(*GitHubProvider)

// WithGitHubEndpoints đổi địa chỉ authorize/token/API, dùng khi test với server giả.
func WithGitHubEndpoints(authURL, tokenURL, apiURL string) GitHubOption {
	return func(p *GitHubProvider) {
		p.oauth.Endpoint = oauth2.Endpoint{AuthURL: authURL, TokenURL: tokenURL, AuthStyle: oauth2.AuthStyleInParams}
		p.apiURL = strings.TrimRight(apiURL, "/")
	}
}

func WithHTTPClient(client *http.Client) GitHubOption {
	return func(p *GitHubProvider) {
		p.httpClient = client
	}
}

func NewGitHubProvider(clientID, clientSecret, redirectURL string, scopes []string, opts ...GitHubOption) *GitHubProvider {
	if len(scopes) == 0 {
		scopes = []string{"read:user", "user:email"}
	}
	p := &GitHubProvider{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoints.GitHub,
			Scopes:       scopes,
		},
		apiURL:     defaultGitHubAPIURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *GitHubProvider) ID() string { return ProviderGitHub }

// AuthCodeURL trả về URL chuyển hướng người dùng sang trang đồng ý của GitHub.
func (p *GitHubProvider) AuthCodeURL(state, verifier string) string {
	return p.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange đổi authorization code lấy access token.
func (p *GitHubProvider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	token, err := p.oauth.Exchange(p.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderExchange, err)
	}
	return token, nil
}

// FetchProfile đọc /user; nếu email bị ẩn thì lấy email primary đã xác minh từ /user/emails.
func (p *GitHubProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*ProviderProfile, error) {
	client := p.oauth.Client(p.clientContext(ctx), token)

	var user struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := p.getJSON(ctx, client, "/user", &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, fmt.Errorf("%w: missing user id", ErrProviderProfile)
	}

	profile := &ProviderProfile{
		ID:        strconv.FormatInt(user.ID, 10),
		Login:     user.Login,
		Name:      firstNonEmpty(user.Name, user.Login),
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
	}

	var emails []struct {
		Email    string `json:"email"`
		Primary  bool   `json:"primary"`
		Verified bool   `json:"verified"`
	}
	if err := p.getJSON(ctx, client, "/user/emails", &emails); err != nil && profile.Email == "" {
		return nil, err
	}
	for _, e := range emails {
		if profile.Email == "" && e.Primary {
			profile.Email = e.Email
		}
		if strings.EqualFold(e.Email, profile.Email) {
			profile.EmailVerified = e.Verified
		}
	}

	if profile.Email == "" {
		return nil, fmt.Errorf("%w: email not found", ErrProviderProfile)
	}
	return profile, nil
}

func (p *GitHubProvider) getJSON(ctx context.Context, client *http.Client, path string, dst interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiURL+path, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderProfile, err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("User-Agent", "studyflash-backend")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderProfile, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: GET %s returned %d", ErrProviderProfile, path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrProviderProfile, path, err)
	}
	return nil
}

func (p *GitHubProvider) clientContext(ctx context.Context) context.Context {
	if p.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
