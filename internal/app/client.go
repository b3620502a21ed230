package app

import (
	"bufio"
	"io"
	"log/slog"
	"strings"

	"github.com/tanvir/sharebite/internal/api"
	"github.com/tanvir/sharebite/internal/cache"
	"github.com/tanvir/sharebite/internal/config"
	"github.com/tanvir/sharebite/internal/guard"
	"github.com/tanvir/sharebite/internal/imagehost"
	"github.com/tanvir/sharebite/internal/metrics"
	"github.com/tanvir/sharebite/internal/query"
	"github.com/tanvir/sharebite/internal/security"
	"github.com/tanvir/sharebite/internal/session"
	"github.com/tanvir/sharebite/internal/transport"
	"github.com/tanvir/sharebite/internal/workflow"

	"github.com/prometheus/client_golang/prometheus"
)

// Client は組み立て済みのクライアントスタック一式を保持する。
// 埋め込み先（CLI、テストハーネス等）はここから各コンポーネントにアクセスする。
type Client struct {
	Session  *session.Session
	Views    *query.Service
	Workflow *workflow.Workflow
	Guard    *guard.RouteGuard
	Uploader imagehost.Uploader
	Metrics  *metrics.Collector
	Registry *prometheus.Registry

	unsubscribe func()
}

// Close はセッション購読を解除する。
func (c *Client) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
	}
}

// BuildClient は設定から全コンポーネントをワイヤリングしてClientを返す。
// notifier / confirmer がnilの場合はログ通知と常時拒否の実装を使用する。
func BuildClient(cfg *config.Config, logger *slog.Logger, notifier workflow.Notifier, confirmer workflow.Confirmer) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	if confirmer == nil {
		confirmer = declineConfirmer{}
	}

	// 1. メトリクス
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	// 2. セッションと認可付きトランスポート
	urlGuard := security.NewImageURLGuard()
	provider := session.NewTokenClient(session.TokenClientConfig{
		TokenURL: cfg.IDPTokenURL,
		APIKey:   cfg.IDPAPIKey,
	}, nil)
	sess := session.NewSession(provider, logger)

	httpClient := transport.NewClient(sess, logger, cfg.RequestTimeout,
		transport.WithRateLimit(cfg.OutboundRatePerSec, cfg.OutboundBurst),
	)

	// 3. APIクライアントとキャッシュ
	apiClient := api.NewClient(cfg.APIBaseURL, httpClient, logger, collector)
	domainCache := cache.New(cfg.CacheTTL, logger, collector)

	// 4. 読み取り・書き込みサービス
	views := query.NewService(apiClient, apiClient, sess, domainCache, notifier, logger)
	wf := workflow.New(
		apiClient, apiClient, sess, domainCache,
		security.NewTextSanitizer(), urlGuard,
		notifier, confirmer, logger, collector,
	)

	// 5. サインアウト時にユーザー固有のビューを破棄する
	snapshots, unsubscribe := sess.Subscribe()
	go func() {
		for snapshot := range snapshots {
			if snapshot.State == session.StateUnauthenticated {
				domainCache.Clear()
			}
		}
	}()

	// 6. ルートガードと画像アップローダ
	// アップローダは外部URLを扱うため、SSRF防止付きクライアントを使う
	uploader := imagehost.NewClient(
		cfg.ImageHostURL, cfg.ImageHostAPIKey, cfg.ImageMaxSize,
		urlGuard.NewSafeClient(cfg.RequestTimeout), logger,
	)

	return &Client{
		Session:     sess,
		Views:       views,
		Workflow:    wf,
		Guard:       guard.New(sess, logger),
		Uploader:    uploader,
		Metrics:     collector,
		Registry:    registry,
		unsubscribe: unsubscribe,
	}
}

// LogNotifier は操作結果を構造化ログとして通知するNotifier実装。
type LogNotifier struct {
	logger *slog.Logger
}

var _ workflow.Notifier = (*LogNotifier)(nil)

// NewLogNotifier はLogNotifierを生成する。
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Success(message string) {
	n.logger.Info("operation succeeded", slog.String("message", message))
}

func (n *LogNotifier) Failure(err error) {
	n.logger.Error("operation failed", slog.String("error", err.Error()))
}

// PromptConfirmer は入力ストリームから確認応答を読み取るConfirmer実装。
// "y" または "yes"（大文字小文字を区別しない）のみを承諾とみなす。
type PromptConfirmer struct {
	in  *bufio.Scanner
	out io.Writer
}

var _ workflow.Confirmer = (*PromptConfirmer)(nil)

// NewPromptConfirmer はPromptConfirmerを生成する。
func NewPromptConfirmer(in io.Reader, out io.Writer) *PromptConfirmer {
	return &PromptConfirmer{in: bufio.NewScanner(in), out: out}
}

func (c *PromptConfirmer) Confirm(message string) bool {
	io.WriteString(c.out, message+" [y/N]: ")
	if !c.in.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(c.in.Text()))
	return answer == "y" || answer == "yes"
}

// declineConfirmer は常に拒否するConfirmer。
// 対話手段のない環境で破壊的操作を暗黙に実行しないための既定値。
type declineConfirmer struct{}

func (declineConfirmer) Confirm(string) bool { return false }
