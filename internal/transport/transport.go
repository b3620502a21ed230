// Package transport はドメインAPIへの送信経路を提供する。
// 送信ごとに現在のベアラークレデンシャルを取得して付与する。
package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/tanvir/sharebite/internal/model"
)

// CredentialSource は送信時点のクレデンシャル取得インターフェース。
// session.Sessionの部分集合として定義する。
type CredentialSource interface {
	// Credential は現在のベアラートークンを返す。
	// アイデンティティが無い場合はUnauthenticated分類のエラーを返す。
	Credential(ctx context.Context) (string, error)
}

// AuthorizedTransport はhttp.RoundTripperを実装し、
// アイデンティティが存在する場合にAuthorizationヘッダーを付与する。
//
// クレデンシャルはインストール時ではなく送信の都度取得する。
// プロセス内でアイデンティティは呼び出しの合間に変わり得るため。
// 匿名状態ではヘッダーなしで送信を継続する。公開エンドポイント
// （提供可能食品の閲覧など）は認証を要求しないため、匿名であること
// だけを理由に呼び出しを中断してはならない。
type AuthorizedTransport struct {
	credentials CredentialSource
	base        http.RoundTripper
	limiter     *rate.Limiter // nilの場合はスロットルしない
	logger      *slog.Logger
}

// Option はAuthorizedTransportの構成オプション。
type Option func(*AuthorizedTransport)

// WithBase は下位のRoundTripperを差し替える。未指定時はhttp.DefaultTransport。
func WithBase(base http.RoundTripper) Option {
	return func(t *AuthorizedTransport) { t.base = base }
}

// WithRateLimit は送信レートの上限を設定する（プロセス全体で共有）。
func WithRateLimit(perSec float64, burst int) Option {
	return func(t *AuthorizedTransport) {
		t.limiter = rate.NewLimiter(rate.Limit(perSec), burst)
	}
}

// New はAuthorizedTransportを生成する。
// loggerがnilの場合はデフォルトロガーを使用する。
func New(credentials CredentialSource, logger *slog.Logger, opts ...Option) *AuthorizedTransport {
	if logger == nil {
		logger = slog.Default()
	}
	t := &AuthorizedTransport{
		credentials: credentials,
		base:        http.DefaultTransport,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// RoundTrip はリクエストにベアラークレデンシャルを付与して送信する。
func (t *AuthorizedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	token, err := t.credentials.Credential(req.Context())
	switch {
	case err == nil && token != "":
		// RoundTripperはリクエストを変更してはならない規約のため複製する
		req = req.Clone(req.Context())
		req.Header.Set("Authorization", "Bearer "+token)
	case model.IsKind(err, model.KindUnauthenticated):
		// 匿名のまま送信する。認証必須のエンドポイントの事前チェックは
		// RouteGuard / RequestWorkflow側の責務。
	case err != nil:
		// クレデンシャル取得の一時障害。送信自体は匿名で継続する。
		t.logger.Warn("クレデンシャルの取得に失敗したため匿名で送信します",
			slog.String("url", req.URL.Path),
			slog.String("error", err.Error()),
		)
	}

	return t.base.RoundTrip(req)
}

// NewClient はAuthorizedTransportを組み込んだhttp.Clientを生成する。
func NewClient(credentials CredentialSource, logger *slog.Logger, timeout time.Duration, opts ...Option) *http.Client {
	return &http.Client{
		Transport: New(credentials, logger, opts...),
		Timeout:   timeout,
	}
}

// compile-time interface check
var _ http.RoundTripper = (*AuthorizedTransport)(nil)
