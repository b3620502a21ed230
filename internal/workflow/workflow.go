// Package workflow はフードとリクエストのミューテーションワークフローを提供する。
// 各操作は事前条件の検証、サニタイズ、API呼び出し、キャッシュ無効化、
// ユーザー通知までを1つの単位として実行する。
package workflow

import (
	"context"
	"log/slog"
	"sync"

	"github.com/tanvir/sharebite/internal/cache"
	"github.com/tanvir/sharebite/internal/model"
	"github.com/tanvir/sharebite/internal/session"
)

// FoodAPI はワークフローが必要とするフードAPIのインターフェース。
type FoodAPI interface {
	GetFood(ctx context.Context, foodID string) (*model.Food, error)
	CreateFood(ctx context.Context, input model.CreateFoodInput) (*model.Food, error)
	UpdateFood(ctx context.Context, foodID string, input model.UpdateFoodInput) (*model.Food, error)
	DeleteFood(ctx context.Context, foodID string) error
}

// RequestAPI はワークフローが必要とするリクエストAPIのインターフェース。
type RequestAPI interface {
	CreateRequest(ctx context.Context, input model.CreateRequestInput) (*model.Request, error)
	SetRequestStatus(ctx context.Context, requestID string, status model.RequestStatus) (*model.Request, error)
	MyRequestForFood(ctx context.Context, foodID string) (*model.Request, error)
}

// SessionReader はセッションの現在状態を参照するインターフェース。
type SessionReader interface {
	Current() session.Snapshot
}

// Notifier はユーザーへのフィードバックチャネルのインターフェース。
// 表示方法は呼び出し側の責務であり、ワークフローは結果の種別と
// メッセージだけを伝える。
type Notifier interface {
	Success(message string)
	Failure(err error)
}

// Confirmer は破壊的操作の確認プロンプトのインターフェース。
type Confirmer interface {
	// Confirm はユーザーに確認を求め、承諾した場合にtrueを返す。
	Confirm(message string) bool
}

// Sanitizer は自由記述テキストのサニタイズのインターフェース。
type Sanitizer interface {
	Sanitize(raw string) string
}

// URLValidator は画像URLの安全性検証のインターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// MetricsRecorder はミューテーションの計測インターフェース。
type MetricsRecorder interface {
	RecordMutation(operation string, success bool)
}

// Workflow はミューテーションワークフローのサービス。
type Workflow struct {
	foods     FoodAPI
	requests  RequestAPI
	session   SessionReader
	cache     *cache.Cache
	sanitizer Sanitizer
	urlGuard  URLValidator
	notifier  Notifier
	confirmer Confirmer
	logger    *slog.Logger
	metrics   MetricsRecorder // nilの場合は計測しない

	mu       sync.Mutex
	inflight map[string]struct{}
}

// New はWorkflowを生成する。
func New(
	foods FoodAPI,
	requests RequestAPI,
	sess SessionReader,
	c *cache.Cache,
	sanitizer Sanitizer,
	urlGuard URLValidator,
	notifier Notifier,
	confirmer Confirmer,
	logger *slog.Logger,
	metrics MetricsRecorder,
) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Workflow{
		foods:     foods,
		requests:  requests,
		session:   sess,
		cache:     c,
		sanitizer: sanitizer,
		urlGuard:  urlGuard,
		notifier:  notifier,
		confirmer: confirmer,
		logger:    logger,
		metrics:   metrics,
		inflight:  make(map[string]struct{}),
	}
}

// identity はサインイン中のアイデンティティを返す。
// 未認証の場合は未認証エラーを返す。
func (w *Workflow) identity() (*model.Identity, error) {
	snapshot := w.session.Current()
	if snapshot.State != session.StateAuthenticated || snapshot.Identity == nil {
		return nil, model.NewUnauthenticatedError()
	}
	return snapshot.Identity, nil
}

// begin は操作キーを実行中として登録する。
// 同じキーの操作が実行中の場合は二重送信エラーを返す。
func (w *Workflow) begin(op string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inflight[op]; ok {
		return model.NewSubmitInFlightError(op)
	}
	w.inflight[op] = struct{}{}
	return nil
}

// end は操作キーの実行中登録を解除する。
func (w *Workflow) end(op string) {
	w.mu.Lock()
	delete(w.inflight, op)
	w.mu.Unlock()
}

// report は操作結果を通知と計測に反映し、エラーをそのまま返す。
func (w *Workflow) report(op, successMessage string, err error) error {
	if w.metrics != nil {
		w.metrics.RecordMutation(op, err == nil)
	}
	if err != nil {
		w.logger.Warn("ミューテーションが失敗しました",
			slog.String("operation", op),
			slog.String("code", model.CodeOf(err)),
			slog.String("error", err.Error()),
		)
		w.notifier.Failure(err)
		return err
	}
	w.notifier.Success(successMessage)
	return nil
}
