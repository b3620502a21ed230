package cache

// Key はキャッシュエントリの識別子。
// 同じパラメータから構築したキーは必ず同じエントリを指す。
type Key string

const (
	keyAvailableFoods Key = "available-foods"
	keyFeaturedFoods  Key = "featured-foods"

	prefixMyFoods         = "my-foods/"
	prefixFoodDetail      = "food-detail/"
	prefixMyRequests      = "my-requests/"
	prefixDonorRequests   = "donor-requests/"
	prefixFoodRequests    = "food-requests/"
	prefixMyRequestStatus = "my-request-status/"
)

// AvailableFoodsKey は提供可能なフード一覧のキー。
func AvailableFoodsKey() Key { return keyAvailableFoods }

// FeaturedFoodsKey は注目フード一覧のキー。
func FeaturedFoodsKey() Key { return keyFeaturedFoods }

// MyFoodsKey は特定ユーザーが提供者であるフード一覧のキー。
func MyFoodsKey(email string) Key { return Key(prefixMyFoods + email) }

// FoodDetailKey はフード詳細のキー。
func FoodDetailKey(foodID string) Key { return Key(prefixFoodDetail + foodID) }

// MyRequestsKey は特定ユーザーが申請したリクエスト一覧のキー。
func MyRequestsKey(email string) Key { return Key(prefixMyRequests + email) }

// DonorRequestsKey は特定ユーザーのフードへのリクエスト一覧のキー。
func DonorRequestsKey(email string) Key { return Key(prefixDonorRequests + email) }

// FoodRequestsKey は特定フードへのリクエスト一覧のキー。
func FoodRequestsKey(foodID string) Key { return Key(prefixFoodRequests + foodID) }

// MyRequestStatusKey は特定ユーザーの特定フードに対する申請状況のキー。
func MyRequestStatusKey(foodID, email string) Key {
	return Key(prefixMyRequestStatus + foodID + "/" + email)
}

// MyRequestStatusPrefix は特定フードに対する全ユーザーの申請状況を
// まとめて無効化するための接頭辞。
func MyRequestStatusPrefix(foodID string) Key {
	return Key(prefixMyRequestStatus + foodID + "/")
}
