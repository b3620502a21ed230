package session

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tanvir/sharebite/internal/model"
)

// identityClaims はIDトークンから読み取るクレーム。
// 署名検証はトークンを受け取るサーバー側の責務であり、
// クライアントは表示用のアイデンティティを取り出すだけなので検証なしでパースする。
type identityClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	jwt.RegisteredClaims
}

// IdentityFromToken はIDトークンのクレームからアイデンティティと有効期限を取り出す。
// emailクレームが欠けているトークンはドメインの相関キーを持たないため拒否する。
func IdentityFromToken(idToken string) (*model.Identity, time.Time, error) {
	var claims identityClaims
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(idToken, &claims); err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to parse id token: %w", err)
	}

	if claims.Email == "" {
		return nil, time.Time{}, fmt.Errorf("id token has no email claim")
	}

	identity := &model.Identity{
		UID:       claims.Subject,
		Email:     claims.Email,
		Name:      claims.Name,
		AvatarURL: claims.Picture,
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return identity, expiresAt, nil
}
