// Package session は認証セッションの管理を提供する。
// 外部IdPの観測、三状態（ロード中・認証済み・未認証）の追跡、
// 短命ベアラークレデンシャルのオンデマンド供給を含む。
package session

import (
	"context"
	"errors"
)

// ProviderTokens はIdPのトークンエンドポイントが発行するトークンの組を表す。
type ProviderTokens struct {
	IDToken      string // 短命のベアラークレデンシャル（JWT形式）
	RefreshToken string
	ExpiresIn    int // IDTokenの有効期間（秒）
}

// ErrInvalidGrant はIdPがクレデンシャルまたはリフレッシュトークンを拒否したことを表す。
// セッションはこのエラーを未認証状態への遷移として扱う。
var ErrInvalidGrant = errors.New("identity provider rejected the grant")

// IdentityProvider は外部IdPのトークン発行インターフェース。
// IdP内部のプロトコルは不透明な能力として扱う: 「現在のユーザーと
// ベアラークレデンシャルを生成する」以上のことを仮定しない。
type IdentityProvider interface {
	// SignIn はメールアドレスとパスワードでトークンを取得する。
	// クレデンシャルが拒否された場合はErrInvalidGrantを返す。
	SignIn(ctx context.Context, email, password string) (*ProviderTokens, error)
	// Refresh はリフレッシュトークンで新しいIDトークンを取得する。
	// トークンが失効している場合はErrInvalidGrantを返す。
	Refresh(ctx context.Context, refreshToken string) (*ProviderTokens, error)
}
