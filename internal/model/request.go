// Package model はドメインモデルを定義する。
package model

import "strings"

// RequestStatus は食品リクエストのステータスを表す。
// 遷移は Pending → Accepted | Rejected のみ。Accepted / Rejected は終端状態であり、
// 一度到達したら以後の遷移は認められない。
type RequestStatus string

const (
	// RequestStatusPending は出品者の判断待ちの状態。
	RequestStatusPending RequestStatus = "Pending"
	// RequestStatusAccepted は受諾された終端状態。親Foodを Donated に遷移させる。
	RequestStatusAccepted RequestStatus = "Accepted"
	// RequestStatusRejected は拒否された終端状態。親Foodには影響しない。
	RequestStatusRejected RequestStatus = "Rejected"
)

// ParseRequestStatus はワイヤ上のステータス文字列を正規化する。
// 未知の値は空文字列を返す。
func ParseRequestStatus(s string) RequestStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pending":
		return RequestStatusPending
	case "accepted":
		return RequestStatusAccepted
	case "rejected":
		return RequestStatusRejected
	default:
		return RequestStatus("")
	}
}

// Terminal はこのステータスが終端状態かを判定する。
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusAccepted || s == RequestStatusRejected
}

// CanTransitionTo は現在のステータスからnextへの遷移が許可されるかを判定する。
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	return s == RequestStatusPending && next.Terminal()
}

// Request は非ドナーによる食品への受け取り申請を表す。
type Request struct {
	ID             string
	FoodID         string       // 参照先Food（ID参照）
	Food           *FoodSummary // 表示用に解決された要約。未解決の場合はnil
	RequesterName  string
	RequesterEmail string
	Location       string // 受け取り場所
	Reason         string
	ContactNo      string
	Status         RequestStatus
}

// CreateFoodInput は食品出品の入力を表す。
// ドナー情報は現在の認証アイデンティティからサーバー側で設定される。
type CreateFoodInput struct {
	Name           string
	ImageURL       string
	Quantity       string
	PickupLocation string
	ExpireDate     string
	Notes          string
}

// UpdateFoodInput は食品編集の入力を表す。nilのフィールドは変更しない。
type UpdateFoodInput struct {
	Name           *string
	ImageURL       *string
	Quantity       *string
	PickupLocation *string
	ExpireDate     *string
	Notes          *string
	Status         *FoodStatus
}

// CreateRequestInput はリクエスト作成の入力を表す。
// リクエスター情報は現在の認証アイデンティティからサーバー側で設定される。
type CreateRequestInput struct {
	FoodID    string
	Location  string
	Reason    string
	ContactNo string
}
