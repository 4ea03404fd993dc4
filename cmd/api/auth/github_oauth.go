package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"

	"autoblog/config"
	"autoblog/services"
)

const githubAPIBaseURL = "https://api.github.com"

type GithubOAuthClient struct {
	config  *oauth2.Config
	apiBase string
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func NewGithubOAuthClient(cfg config.AuthConfig) (*GithubOAuthClient, error) {
	if cfg.GithubClientID == "" || cfg.GithubClientSecret == "" || cfg.GithubRedirectURL == "" {
		return nil, fmt.Errorf("github oauth not configured: GITHUB_CLIENT_ID/SECRET/CALLBACK_URL are required")
	}

	oc := &oauth2.Config{
		ClientID:     cfg.GithubClientID,
		ClientSecret: cfg.GithubClientSecret,
		RedirectURL:  cfg.GithubRedirectURL,
		Scopes:       []string{"read:user", "user:email"},
		Endpoint:     github.Endpoint,
	}
	return &GithubOAuthClient{config: oc, apiBase: githubAPIBaseURL}, nil
}

func (c *GithubOAuthClient) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (c *GithubOAuthClient) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.config.Exchange(ctx, code)
}

// FetchProfile 은 /user 를 읽고, 공개 이메일이 없으면 /user/emails 에서 검증된 primary 이메일을 찾는다.
func (c *GithubOAuthClient) FetchProfile(ctx context.Context, token *oauth2.Token) (services.GithubProfile, error) {
	httpClient := c.config.Client(ctx, token)

	var u githubUser
	if err := c.getJSON(ctx, httpClient, "/user", &u); err != nil {
		return services.GithubProfile{}, err
	}
	profile := services.GithubProfile{
		ID:        strconv.FormatInt(u.ID, 10),
		Login:     u.Login,
		Name:      u.Name,
		Email:     u.Email,
		AvatarURL: u.AvatarURL,
	}
	if profile.Email != "" {
		return profile, nil
	}

	var emails []githubEmail
	if err := c.getJSON(ctx, httpClient, "/user/emails", &emails); err != nil {
		// 이메일 권한이 없어도 로그인은 진행한다.
		return profile, nil
	}
	profile.Email = pickEmail(emails)
	return profile, nil
}

func (c *GithubOAuthClient) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimSuffix(c.apiBase, "/")+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github %s: unexpected status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func pickEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}
