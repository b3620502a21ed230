package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// TokenClientConfig はIdPトークンエンドポイントのクライアント設定。
type TokenClientConfig struct {
	TokenURL string
	APIKey   string // IdPが要求する場合のみ設定する
}

// TokenClient はHTTPベースのIdentityProvider実装。
// パスワードグラントとリフレッシュグラントをトークンエンドポイントに対して実行する。
type TokenClient struct {
	config     TokenClientConfig
	httpClient *http.Client
}

// NewTokenClient はTokenClientを生成する。
// httpClientがnilの場合はhttp.DefaultClientを使用する。
func NewTokenClient(config TokenClientConfig, httpClient *http.Client) *TokenClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &TokenClient{config: config, httpClient: httpClient}
}

// tokenResponse はトークンエンドポイントのレスポンス。
type tokenResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
}

// SignIn はメールアドレスとパスワードでトークンを取得する。
func (c *TokenClient) SignIn(ctx context.Context, email, password string) (*ProviderTokens, error) {
	data := url.Values{
		"grant_type": {"password"},
		"email":      {email},
		"password":   {password},
	}
	return c.requestTokens(ctx, data)
}

// Refresh はリフレッシュトークンで新しいIDトークンを取得する。
func (c *TokenClient) Refresh(ctx context.Context, refreshToken string) (*ProviderTokens, error) {
	data := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
	}
	return c.requestTokens(ctx, data)
}

// requestTokens はトークンエンドポイントへのリクエストを実行する。
func (c *TokenClient) requestTokens(ctx context.Context, data url.Values) (*ProviderTokens, error) {
	if c.config.APIKey != "" {
		data.Set("key", c.config.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read token response: %w", err)
	}

	// 400/401はグラント拒否として扱い、セッション側で未認証に遷移させる
	if resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: status %d: %s", ErrInvalidGrant, resp.StatusCode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("failed to parse token response: %w", err)
	}

	if tokenResp.IDToken == "" {
		return nil, fmt.Errorf("empty id token in response")
	}

	return &ProviderTokens{
		IDToken:      tokenResp.IDToken,
		RefreshToken: tokenResp.RefreshToken,
		ExpiresIn:    tokenResp.ExpiresIn,
	}, nil
}

// compile-time interface check
var _ IdentityProvider = (*TokenClient)(nil)
