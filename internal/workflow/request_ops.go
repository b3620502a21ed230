package workflow

import (
	"context"
	"log/slog"

	"github.com/tanvir/sharebite/internal/cache"
	"github.com/tanvir/sharebite/internal/model"
)

// CreateRequest はフードに対するリクエストを作成する。
// 事前条件: フードが提供可能であること、申請者が提供者本人でないこと、
// 同じフードへの申請が存在しないこと。
func (w *Workflow) CreateRequest(ctx context.Context, input model.CreateRequestInput) (*model.Request, error) {
	op := "createRequest/" + input.FoodID
	identity, err := w.identity()
	if err != nil {
		return nil, w.report(op, "", err)
	}
	if err := w.begin(op); err != nil {
		return nil, w.report(op, "", err)
	}
	defer w.end(op)

	food, err := w.foods.GetFood(ctx, input.FoodID)
	if err != nil {
		return nil, w.report(op, "", err)
	}
	if food.IsDonor(identity.Email) {
		return nil, w.report(op, "", model.NewOwnFoodRequestError())
	}
	if food.Status != model.FoodStatusAvailable {
		return nil, w.report(op, "", model.NewFoodNotAvailableError(input.FoodID))
	}

	prior, err := w.requests.MyRequestForFood(ctx, input.FoodID)
	if err != nil {
		return nil, w.report(op, "", err)
	}
	if prior != nil {
		return nil, w.report(op, "", model.NewDuplicateRequestError(input.FoodID))
	}

	input.Reason = w.sanitizer.Sanitize(input.Reason)

	request, err := w.requests.CreateRequest(ctx, input)
	if err != nil {
		return nil, w.report(op, "", err)
	}

	w.cache.Invalidate(
		cache.MyRequestsKey(identity.Email),
		cache.FoodRequestsKey(input.FoodID),
		cache.MyRequestStatusKey(input.FoodID, identity.Email),
	)
	w.logger.Info("リクエストを作成しました",
		slog.String("request_id", request.ID),
		slog.String("food_id", input.FoodID),
	)
	return request, w.report(op, "リクエストを送信しました。", nil)
}

// SetRequestStatus はリクエストを承認または却下する。
// フードの提供者本人のみ実行できる。承認の場合はフードを提供済みへ
// 遷移させ、リクエスト更新後のフード更新が失敗したときは
// 全体失敗とは区別された部分成功エラーを返す。
func (w *Workflow) SetRequestStatus(ctx context.Context, requestID, foodID string, newStatus model.RequestStatus) error {
	op := "setRequestStatus/" + requestID
	identity, err := w.identity()
	if err != nil {
		return w.report(op, "", err)
	}
	if !newStatus.Terminal() {
		return w.report(op, "", model.NewInvalidPayloadError("status must be Accepted or Rejected"))
	}
	if err := w.begin(op); err != nil {
		return w.report(op, "", err)
	}
	defer w.end(op)

	food, err := w.foods.GetFood(ctx, foodID)
	if err != nil {
		return w.report(op, "", err)
	}
	if !food.IsDonor(identity.Email) {
		return w.report(op, "", model.NewForbiddenError(op))
	}
	// 承認はフードが提供可能なうちに限り許可する。すでに提供済みの
	// フードに対して二つ目の承認が成立することを防ぐ。
	if newStatus == model.RequestStatusAccepted && food.Status != model.FoodStatusAvailable {
		return w.report(op, "", model.NewFoodNotAvailableError(foodID))
	}

	updated, err := w.requests.SetRequestStatus(ctx, requestID, newStatus)
	if err != nil {
		return w.report(op, "", err)
	}

	if newStatus == model.RequestStatusAccepted {
		donated := model.FoodStatusDonated
		if _, err := w.foods.UpdateFood(ctx, foodID, model.UpdateFoodInput{Status: &donated}); err != nil {
			// リクエストはすでに終端状態へ遷移している。
			// 全体失敗として報告するとユーザーが再試行してしまうため、
			// 部分成功として区別して通知する。
			w.invalidateAfterStatusChange(identity.Email, updated.RequesterEmail, foodID)
			return w.report(op, "", model.NewAcceptPartialError(requestID, foodID))
		}
	}

	w.invalidateAfterStatusChange(identity.Email, updated.RequesterEmail, foodID)
	w.logger.Info("リクエストのステータスを変更しました",
		slog.String("request_id", requestID),
		slog.String("food_id", foodID),
		slog.String("status", string(newStatus)),
	)

	message := "リクエストを却下しました。"
	if newStatus == model.RequestStatusAccepted {
		message = "リクエストを承認しました。"
	}
	return w.report(op, message, nil)
}

// invalidateAfterStatusChange はステータス遷移に影響されるすべての
// ビューのキャッシュを無効化する。
func (w *Workflow) invalidateAfterStatusChange(donorEmail, requesterEmail, foodID string) {
	w.cache.Invalidate(
		cache.FoodRequestsKey(foodID),
		cache.DonorRequestsKey(donorEmail),
		cache.MyRequestsKey(requesterEmail),
		cache.AvailableFoodsKey(),
		cache.FeaturedFoodsKey(),
		cache.FoodDetailKey(foodID),
		cache.MyRequestStatusKey(foodID, requesterEmail),
	)
}
