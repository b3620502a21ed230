package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tanvir/sharebite/internal/model"
)

// State はセッションの三状態を表す。
// 初回の観測が届くまでの「ロード中」を明示的にモデル化する。
type State string

const (
	// StateLoading はIdPからの初回観測が届く前の状態。
	StateLoading State = "loading"
	// StateAuthenticated はアイデンティティが存在する状態。
	StateAuthenticated State = "authenticated"
	// StateUnauthenticated はアイデンティティが存在しない状態。
	StateUnauthenticated State = "unauthenticated"
)

// Snapshot はある時点のセッション状態の観測値を表す。
type Snapshot struct {
	State    State
	Identity *model.Identity // StateAuthenticated以外ではnil
}

// credentialMargin はクレデンシャルの失効前リフレッシュの余裕時間。
// 送信中の失効を避けるため、残り30秒を切ったら送信前にリフレッシュする。
const credentialMargin = 30 * time.Second

// Session は「誰がサインインしているか」を追跡し、
// 要求の都度、新鮮なベアラークレデンシャルを供給する。
// プロセス内の単一の信頼できる情報源であり、状態変化は購読者へ通知される。
type Session struct {
	provider IdentityProvider
	logger   *slog.Logger
	now      func() time.Time // テスト用に差し替え可能

	mu           sync.Mutex
	state        State
	identity     *model.Identity
	cred         model.Credential
	refreshToken string
	subs         map[int]chan Snapshot
	nextSubID    int
}

// NewSession はSessionを生成する。初期状態はStateLoading。
// loggerがnilの場合はデフォルトロガーを使用する。
func NewSession(provider IdentityProvider, logger *slog.Logger) *Session {
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		provider: provider,
		logger:   logger,
		now:      time.Now,
		state:    StateLoading,
		subs:     make(map[int]chan Snapshot),
	}
}

// Current は現在のセッション状態の観測値を返す。
// 消費者はこれを一度きりの読み取りではなく、Subscribeと併用して
// 生きた値として扱わなければならない。
func (s *Session) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe は状態変化の通知チャネルと購読解除関数を返す。
// チャネルはバッファ付きで、受信が追いつかない通知は破棄される
// （購読者はCurrentでいつでも最新値を取得できる）。
// 購読解除するとチャネルはクローズされる。
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextSubID
	s.nextSubID++
	ch := make(chan Snapshot, 8)
	s.subs[id] = ch

	unsubscribe := func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if ch, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Resolve は保存済みリフレッシュトークンから初期状態を解決する。
// トークンが無い、またはIdPが利用できない場合は未認証状態に倒す（fail open）。
// IdPの不調でアプリ全体を待たせてはならない。
func (s *Session) Resolve(ctx context.Context, storedRefreshToken string) {
	if storedRefreshToken == "" {
		s.transitionUnauthenticated()
		return
	}

	tokens, err := s.provider.Refresh(ctx, storedRefreshToken)
	if err != nil {
		s.logger.Warn("セッションの復元に失敗したため未認証として扱います",
			slog.String("error", err.Error()),
		)
		s.transitionUnauthenticated()
		return
	}

	if err := s.applyTokens(tokens); err != nil {
		s.logger.Warn("復元したトークンの解析に失敗したため未認証として扱います",
			slog.String("error", err.Error()),
		)
		s.transitionUnauthenticated()
	}
}

// SignIn はメールアドレスとパスワードでサインインする。
// 成功すると認証済み状態へ遷移し、購読者へ通知する。
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	tokens, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			return fmt.Errorf("sign in rejected: %w", err)
		}
		return fmt.Errorf("sign in failed: %w", err)
	}

	if err := s.applyTokens(tokens); err != nil {
		return fmt.Errorf("failed to apply tokens: %w", err)
	}

	s.logger.Info("signed in",
		slog.String("email", s.Current().Identity.Email),
	)
	return nil
}

// SignOut はアイデンティティをクリアする。冪等であり、
// 既に未認証の場合は通知を発しない。
func (s *Session) SignOut() {
	s.transitionUnauthenticated()
}

// Credential は現在のベアラートークンを返す。
// アイデンティティが無い場合はUnauthenticatedエラーを返す。
// 残り有効期間が余裕を切っている場合はリフレッシュしてから返す。
// リクエストごとに1回呼ばれる前提であり、呼び出し側でのキャッシュを仮定しない。
func (s *Session) Credential(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAuthenticated {
		return "", model.NewUnauthenticatedError()
	}

	if s.cred.Valid(s.now(), credentialMargin) {
		return s.cred.Token, nil
	}

	tokens, err := s.provider.Refresh(ctx, s.refreshToken)
	if err != nil {
		if errors.Is(err, ErrInvalidGrant) {
			// リフレッシュトークンの失効はサインアウトと同義
			s.logger.Warn("リフレッシュトークンが失効したためサインアウトします")
			s.clearLocked()
			s.notifyLocked()
			return "", model.NewUnauthenticatedError()
		}
		return "", fmt.Errorf("failed to refresh credential: %w", err)
	}

	if err := s.applyTokensLocked(tokens); err != nil {
		return "", fmt.Errorf("failed to apply refreshed tokens: %w", err)
	}
	return s.cred.Token, nil
}

// applyTokens はトークンの組からセッション状態を更新し、購読者へ通知する。
func (s *Session) applyTokens(tokens *ProviderTokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyTokensLocked(tokens)
}

func (s *Session) applyTokensLocked(tokens *ProviderTokens) error {
	identity, expiresAt, err := IdentityFromToken(tokens.IDToken)
	if err != nil {
		return err
	}

	// expクレームが無いトークンはexpires_inから補完する
	if expiresAt.IsZero() {
		expiresAt = s.now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	}

	changed := s.state != StateAuthenticated ||
		s.identity == nil || s.identity.Email != identity.Email

	s.state = StateAuthenticated
	s.identity = identity
	s.cred = model.Credential{Token: tokens.IDToken, ExpiresAt: expiresAt}
	if tokens.RefreshToken != "" {
		s.refreshToken = tokens.RefreshToken
	}

	if changed {
		s.notifyLocked()
	}
	return nil
}

// transitionUnauthenticated は未認証状態へ遷移する。状態が変わる場合のみ通知する。
func (s *Session) transitionUnauthenticated() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateUnauthenticated {
		return
	}
	s.clearLocked()
	s.notifyLocked()
}

func (s *Session) clearLocked() {
	s.state = StateUnauthenticated
	s.identity = nil
	s.cred = model.Credential{}
	s.refreshToken = ""
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{State: s.state, Identity: s.identity}
}

// notifyLocked は全購読者へ現在の状態を通知する。
// 受信できない購読者への通知は破棄し、送信側を決してブロックしない。
func (s *Session) notifyLocked() {
	snap := s.snapshotLocked()
	for _, ch := range s.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}
