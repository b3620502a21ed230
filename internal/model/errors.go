// Package model はドメインモデルを定義する。
package model

import (
	"errors"
	"fmt"
)

// ErrorKind はエラーの分類を表す。
// ワークフロー層がユーザー向けメッセージへの変換とリトライ可否の判断に使用する。
type ErrorKind string

const (
	// KindUnauthenticated は認証が必要な操作で認証情報が無い状態。
	// RouteGuardによるサインイン画面へのリダイレクトで解決される。
	KindUnauthenticated ErrorKind = "unauthenticated"
	// KindForbidden は認証済みだが対象エンティティへの権限が無い状態。
	// ドナー専用操作を非ドナーが実行した場合など。
	KindForbidden ErrorKind = "forbidden"
	// KindConflict は状態マシンの事前条件違反。
	// Available でない Food への リクエスト作成、終端状態の Request の再遷移など。
	KindConflict ErrorKind = "conflict"
	// KindNotFound は参照先の Food / Request が存在しない状態。
	KindNotFound ErrorKind = "not_found"
	// KindTransient はネットワーク・インフラ起因の一時的な失敗。
	// 読み取りはリトライ可能。ミューテーションは副作用の重複を避けるためリトライしない。
	KindTransient ErrorKind = "transient"
)

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code    string    // エラーコード
	Message string    // エラーメッセージ
	Kind    ErrorKind // エラー分類
	Action  string    // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthenticated  = "UNAUTHENTICATED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeFoodNotFound     = "FOOD_NOT_FOUND"
	ErrCodeRequestNotFound  = "REQUEST_NOT_FOUND"
	ErrCodeFoodNotAvailable = "FOOD_NOT_AVAILABLE"
	ErrCodeRequestTerminal  = "REQUEST_TERMINAL"
	ErrCodeDuplicateRequest = "DUPLICATE_REQUEST"
	ErrCodeOwnFoodRequest   = "OWN_FOOD_REQUEST"
	ErrCodeSubmitInFlight   = "SUBMIT_IN_FLIGHT"
	ErrCodeAcceptPartial    = "ACCEPT_PARTIAL"
	ErrCodeTransient        = "TRANSIENT"
	ErrCodeInvalidPayload   = "INVALID_PAYLOAD"
	ErrCodeUnsafeImageURL   = "UNSAFE_IMAGE_URL"
)

// KindOf はエラーチェーンからAPIErrorの分類を取り出す。
// APIErrorでない場合はKindTransientとして扱う（未知の失敗はリトライ可能な読み取り失敗に寄せる）。
func KindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindTransient
}

// IsKind はエラーが指定の分類に属するかを判定する。
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// CodeOf はエラーチェーンからエラーコードを取り出す。見つからない場合は空文字列を返す。
func CodeOf(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

// NewUnauthenticatedError は未認証エラーを生成する。
func NewUnauthenticatedError() *APIError {
	return &APIError{
		Code:    ErrCodeUnauthenticated,
		Message: "認証が必要です。",
		Kind:    KindUnauthenticated,
		Action:  "ログインしてください。",
	}
}

// NewForbiddenError は権限エラーを生成する。
// opには拒否された操作の説明を渡す。
func NewForbiddenError(op string) *APIError {
	return &APIError{
		Code:    ErrCodeForbidden,
		Message: fmt.Sprintf("この操作を行う権限がありません: %s", op),
		Kind:    KindForbidden,
		Action:  "出品者のアカウントでログインしているか確認してください。",
	}
}

// NewFoodNotFoundError はFood未検出エラーを生成する。
func NewFoodNotFoundError(foodID string) *APIError {
	return &APIError{
		Code:    ErrCodeFoodNotFound,
		Message: fmt.Sprintf("指定された食品が見つかりません: %s", foodID),
		Kind:    KindNotFound,
		Action:  "一覧を再読み込みしてください。削除済みの可能性があります。",
	}
}

// NewRequestNotFoundError はRequest未検出エラーを生成する。
func NewRequestNotFoundError(requestID string) *APIError {
	return &APIError{
		Code:    ErrCodeRequestNotFound,
		Message: fmt.Sprintf("指定されたリクエストが見つかりません: %s", requestID),
		Kind:    KindNotFound,
		Action:  "リクエスト一覧を再読み込みしてください。",
	}
}

// NewFoodNotAvailableError はAvailableでないFoodに対する操作のエラーを生成する。
func NewFoodNotAvailableError(foodID string) *APIError {
	return &APIError{
		Code:    ErrCodeFoodNotAvailable,
		Message: fmt.Sprintf("この食品は既に提供済みです: %s", foodID),
		Kind:    KindConflict,
		Action:  "他の食品をお探しください。",
	}
}

// NewRequestTerminalError は終端状態のRequestへの再遷移エラーを生成する。
func NewRequestTerminalError(requestID string, status RequestStatus) *APIError {
	return &APIError{
		Code:    ErrCodeRequestTerminal,
		Message: fmt.Sprintf("このリクエストは既に %s のため変更できません: %s", status, requestID),
		Kind:    KindConflict,
		Action:  "リクエスト一覧を再読み込みしてください。",
	}
}

// NewDuplicateRequestError は同一Foodへの重複リクエストのエラーを生成する。
func NewDuplicateRequestError(foodID string) *APIError {
	return &APIError{
		Code:    ErrCodeDuplicateRequest,
		Message: "この食品には既にリクエスト済みです。",
		Kind:    KindConflict,
		Action:  "マイリクエストから状況を確認してください。",
	}
}

// NewOwnFoodRequestError は出品者自身によるリクエスト作成のエラーを生成する。
func NewOwnFoodRequestError() *APIError {
	return &APIError{
		Code:    ErrCodeOwnFoodRequest,
		Message: "自分が出品した食品にはリクエストできません。",
		Kind:    KindForbidden,
		Action:  "他の食品をお探しください。",
	}
}

// NewSubmitInFlightError は送信中の二重送信を拒否するエラーを生成する。
func NewSubmitInFlightError(op string) *APIError {
	return &APIError{
		Code:    ErrCodeSubmitInFlight,
		Message: fmt.Sprintf("送信処理が進行中です: %s", op),
		Kind:    KindConflict,
		Action:  "処理の完了を待ってから再度お試しください。",
	}
}

// NewAcceptPartialError は受諾処理の部分的成功を表すエラーを生成する。
// Requestの受諾は成功したがFoodのステータス更新に失敗した状態であり、
// 全体失敗とは区別してユーザーに提示しなければならない。
func NewAcceptPartialError(requestID, foodID string) *APIError {
	return &APIError{
		Code:    ErrCodeAcceptPartial,
		Message: fmt.Sprintf("リクエスト %s は受諾済みですが、食品 %s のステータス更新に失敗しました。", requestID, foodID),
		Kind:    KindTransient,
		Action:  "食品一覧を再読み込みし、ステータスが更新されていない場合は食品を編集してください。",
	}
}

// NewTransientError は一時的な通信失敗のエラーを生成する。
func NewTransientError(reason string) *APIError {
	return &APIError{
		Code:    ErrCodeTransient,
		Message: fmt.Sprintf("通信に失敗しました: %s", reason),
		Kind:    KindTransient,
		Action:  "しばらく待ってから再度お試しください。",
	}
}

// NewInvalidPayloadError はサーバー応答の解析失敗のエラーを生成する。
// 不正な形式の応答は未定義フィールドのまま伝播させず、この時点で拒否する。
func NewInvalidPayloadError(reason string) *APIError {
	return &APIError{
		Code:    ErrCodeInvalidPayload,
		Message: fmt.Sprintf("サーバー応答の解析に失敗しました: %s", reason),
		Kind:    KindTransient,
		Action:  "しばらく待ってから再度お試しください。",
	}
}

// NewUnsafeImageURLError は安全でない画像URLのエラーを生成する。
func NewUnsafeImageURLError(reason string) *APIError {
	return &APIError{
		Code:    ErrCodeUnsafeImageURL,
		Message: fmt.Sprintf("指定された画像URLは使用できません: %s", reason),
		Kind:    KindConflict,
		Action:  "公開されている画像のURL（https）を指定してください。",
	}
}
