// Package model はドメインモデルを定義する。
package model

import "time"

// Identity は外部IdPが管理する認証済みプリンシパルを表す。
// IdPが所有するデータであり、このアプリケーションは観測するのみで変更しない。
// Emailがドメイン上の相関キーとなる（ドナー判定・リクエスター判定に使用）。
type Identity struct {
	UID       string // IdP内の一意識別子
	Email     string
	Name      string // 表示名（任意）
	AvatarURL string // アバター画像参照（任意）
}

// Credential はIdPが発行する短命のベアラートークンを表す。
type Credential struct {
	Token     string
	ExpiresAt time.Time
}

// Valid はトークンがmargin分の余裕を持って有効かを判定する。
// 送信直前の失効を避けるため、呼び出し側は余裕を持たせて判定する。
func (c Credential) Valid(now time.Time, margin time.Duration) bool {
	if c.Token == "" {
		return false
	}
	return now.Add(margin).Before(c.ExpiresAt)
}
