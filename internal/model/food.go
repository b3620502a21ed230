// Package model はドメインモデルを定義する。
package model

import "strings"

// FoodStatus は食品の提供ステータスを表す。
// 遷移は Available → Donated の一方向のみ。逆方向の遷移は存在しない。
type FoodStatus string

const (
	// FoodStatusUnknown はロード前の未確定状態。
	FoodStatusUnknown FoodStatus = ""
	// FoodStatusAvailable は提供可能な状態。
	FoodStatusAvailable FoodStatus = "Available"
	// FoodStatusDonated は提供済みの状態。Requestの受諾によってのみ到達する。
	FoodStatusDonated FoodStatus = "Donated"
)

// ParseFoodStatus はワイヤ上のステータス文字列を正規化する。
// 過去のAPIが 'Available' と 'donated' を混在させていたため、大文字小文字を区別しない。
// 未知の値はFoodStatusUnknownを返す。
func ParseFoodStatus(s string) FoodStatus {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "available":
		return FoodStatusAvailable
	case "donated":
		return FoodStatusDonated
	default:
		return FoodStatusUnknown
	}
}

// Donor は食品の出品者情報を表す。Food作成時に設定され、以後不変。
// Emailがドナー専用操作の認可キーとなる。
type Donor struct {
	Name      string
	Email     string
	AvatarURL string
}

// Food は余剰食品の出品を表す。
type Food struct {
	ID             string // サーバー採番、不変
	Name           string
	Quantity       string // 自由記述（"3 boxes" 等）
	PickupLocation string
	ExpireDate     string // YYYY-MM-DD
	Notes          string
	ImageURL       string
	Status         FoodStatus
	Donor          Donor
}

// IsDonor は指定Emailがこの食品の出品者かを判定する。
func (f *Food) IsDonor(email string) bool {
	return f.Donor.Email != "" && f.Donor.Email == email
}

// FoodSummary はRequest表示用に非正規化された食品の要約を表す。
type FoodSummary struct {
	ID       string
	Name     string
	ImageURL string
	Status   FoodStatus
}

// Summary は表示用の要約を生成する。
func (f *Food) Summary() FoodSummary {
	return FoodSummary{
		ID:       f.ID,
		Name:     f.Name,
		ImageURL: f.ImageURL,
		Status:   f.Status,
	}
}
