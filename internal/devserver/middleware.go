package devserver

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tanvir/sharebite/internal/model"
	"github.com/tanvir/sharebite/internal/session"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

// identityContextKey はリクエストコンテキストにアイデンティティを格納するためのキー。
var identityContextKey = contextKey("identity")

// NewAuthMiddleware はAuthorizationヘッダーのベアラートークンから
// アイデンティティを読み取るミドルウェアを返す。
// 開発用スタブのため署名は検証せず、クレームのみを信頼する。
// トークンがないリクエストには401 Unauthorizedを返す。
func NewAuthMiddleware(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// 1. Authorizationヘッダーからトークンを取得
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, model.NewUnauthenticatedError())
				return
			}

			// 2. トークンのクレームからアイデンティティを復元
			identity, _, err := session.IdentityFromToken(token)
			if err != nil {
				logger.Warn("トークンの解析に失敗しました",
					slog.String("error", err.Error()),
				)
				writeError(w, model.NewUnauthenticatedError())
				return
			}

			// 3. アイデンティティをコンテキストに注入
			ctx := context.WithValue(r.Context(), identityContextKey, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// identityFromContext はリクエストコンテキストからアイデンティティを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func identityFromContext(ctx context.Context) (*model.Identity, error) {
	identity, ok := ctx.Value(identityContextKey).(*model.Identity)
	if !ok || identity == nil {
		return nil, model.NewUnauthenticatedError()
	}
	return identity, nil
}
