// Package guard は保護された画面への遷移判定を提供する。
// 未認証のアクセスはサインイン画面へのリダイレクトへ変換し、
// サインイン完了後に元の行き先へ戻れるよう記憶する。
package guard

import (
	"log/slog"
	"sync"

	"github.com/tanvir/sharebite/internal/session"
)

// Decision は保護された画面への遷移判定の結果。
type Decision string

const (
	// DecisionLoading はセッションの初回観測を待つべき状態。
	// この状態でリダイレクトしてはならない。
	DecisionLoading Decision = "loading"
	// DecisionProceed は遷移を許可する状態。
	DecisionProceed Decision = "proceed"
	// DecisionRedirect はサインイン画面へリダイレクトすべき状態。
	DecisionRedirect Decision = "redirect"
)

// SessionReader はセッションの現在状態を参照するインターフェース。
type SessionReader interface {
	Current() session.Snapshot
}

// RouteGuard は保護された画面への遷移をセッション状態で判定する。
type RouteGuard struct {
	session SessionReader
	logger  *slog.Logger

	mu      sync.Mutex
	pending string
}

// New はRouteGuardを生成する。
func New(sess SessionReader, logger *slog.Logger) *RouteGuard {
	if logger == nil {
		logger = slog.Default()
	}
	return &RouteGuard{session: sess, logger: logger}
}

// Decide は保護された行き先への遷移可否を判定する。
// セッションが解決中の間はリダイレクトせずに待機を指示する。
// 未認証の場合は行き先を記憶してリダイレクトを指示する。
func (g *RouteGuard) Decide(target string) Decision {
	switch g.session.Current().State {
	case session.StateLoading:
		return DecisionLoading
	case session.StateAuthenticated:
		return DecisionProceed
	default:
		g.mu.Lock()
		g.pending = target
		g.mu.Unlock()
		g.logger.Debug("未認証のためサインインへリダイレクトします",
			slog.String("target", target),
		)
		return DecisionRedirect
	}
}

// Resume はサインイン完了後に戻るべき行き先を返して消費する。
// 記憶された行き先がない場合はfalseを返す。
func (g *RouteGuard) Resume() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == "" {
		return "", false
	}
	target := g.pending
	g.pending = ""
	return target, true
}
