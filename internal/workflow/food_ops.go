package workflow

import (
	"context"
	"log/slog"

	"github.com/tanvir/sharebite/internal/cache"
	"github.com/tanvir/sharebite/internal/model"
)

// CreateFood は新しいフードを登録する。
// 成功すると提供可能一覧・注目一覧・本人の提供一覧のキャッシュを無効化する。
func (w *Workflow) CreateFood(ctx context.Context, input model.CreateFoodInput) (*model.Food, error) {
	const op = "createFood"
	identity, err := w.identity()
	if err != nil {
		return nil, w.report(op, "", err)
	}
	if err := w.begin(op); err != nil {
		return nil, w.report(op, "", err)
	}
	defer w.end(op)

	if err := validateCreateFoodInput(input); err != nil {
		return nil, w.report(op, "", err)
	}
	if err := w.urlGuard.ValidateURL(input.ImageURL); err != nil {
		return nil, w.report(op, "", model.NewUnsafeImageURLError(err.Error()))
	}
	input.Notes = w.sanitizer.Sanitize(input.Notes)

	food, err := w.foods.CreateFood(ctx, input)
	if err != nil {
		return nil, w.report(op, "", err)
	}

	w.cache.Invalidate(
		cache.AvailableFoodsKey(),
		cache.FeaturedFoodsKey(),
		cache.MyFoodsKey(identity.Email),
	)
	w.logger.Info("フードを登録しました",
		slog.String("food_id", food.ID),
		slog.String("donor_email", identity.Email),
	)
	return food, w.report(op, "フードを登録しました。", nil)
}

// UpdateFood はフードを部分更新する。提供者本人のみ実行できる。
// ステータスはリクエスト承認の副作用としてのみ変化するため、
// この操作では常に無視する。
func (w *Workflow) UpdateFood(ctx context.Context, foodID string, input model.UpdateFoodInput) (*model.Food, error) {
	op := "updateFood/" + foodID
	identity, err := w.identity()
	if err != nil {
		return nil, w.report(op, "", err)
	}
	if err := w.begin(op); err != nil {
		return nil, w.report(op, "", err)
	}
	defer w.end(op)

	current, err := w.foods.GetFood(ctx, foodID)
	if err != nil {
		return nil, w.report(op, "", err)
	}
	if !current.IsDonor(identity.Email) {
		return nil, w.report(op, "", model.NewForbiddenError(op))
	}

	input.Status = nil
	if input.ImageURL != nil {
		if err := w.urlGuard.ValidateURL(*input.ImageURL); err != nil {
			return nil, w.report(op, "", model.NewUnsafeImageURLError(err.Error()))
		}
	}
	if input.Notes != nil {
		sanitized := w.sanitizer.Sanitize(*input.Notes)
		input.Notes = &sanitized
	}

	food, err := w.foods.UpdateFood(ctx, foodID, input)
	if err != nil {
		return nil, w.report(op, "", err)
	}

	w.cache.Invalidate(
		cache.FoodDetailKey(foodID),
		cache.MyFoodsKey(identity.Email),
		cache.AvailableFoodsKey(),
		cache.FeaturedFoodsKey(),
	)
	return food, w.report(op, "フードを更新しました。", nil)
}

// DeleteFood はフードを削除する。提供者本人のみ実行でき、
// 実行前に確認プロンプトを表示する。ユーザーが承諾しなかった場合は
// 何もせずにfalseを返す。
func (w *Workflow) DeleteFood(ctx context.Context, foodID string) (bool, error) {
	op := "deleteFood/" + foodID
	identity, err := w.identity()
	if err != nil {
		return false, w.report(op, "", err)
	}
	if err := w.begin(op); err != nil {
		return false, w.report(op, "", err)
	}
	defer w.end(op)

	current, err := w.foods.GetFood(ctx, foodID)
	if err != nil {
		return false, w.report(op, "", err)
	}
	if !current.IsDonor(identity.Email) {
		return false, w.report(op, "", model.NewForbiddenError(op))
	}

	if !w.confirmer.Confirm("このフードを削除しますか？削除すると元に戻せません。") {
		w.logger.Debug("削除がキャンセルされました", slog.String("food_id", foodID))
		return false, nil
	}

	if err := w.foods.DeleteFood(ctx, foodID); err != nil {
		return false, w.report(op, "", err)
	}

	w.cache.Invalidate(
		cache.FoodDetailKey(foodID),
		cache.MyFoodsKey(identity.Email),
		cache.AvailableFoodsKey(),
		cache.FeaturedFoodsKey(),
		cache.FoodRequestsKey(foodID),
	)
	w.cache.InvalidatePrefix(cache.MyRequestStatusPrefix(foodID))
	return true, w.report(op, "フードを削除しました。", nil)
}

// validateCreateFoodInput は登録入力の必須フィールドを検証する。
func validateCreateFoodInput(input model.CreateFoodInput) error {
	switch {
	case input.Name == "":
		return model.NewInvalidPayloadError("name is required")
	case input.Quantity == "":
		return model.NewInvalidPayloadError("quantity is required")
	case input.PickupLocation == "":
		return model.NewInvalidPayloadError("pickupLocation is required")
	case input.ExpireDate == "":
		return model.NewInvalidPayloadError("expireDate is required")
	}
	return nil
}
