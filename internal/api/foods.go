package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tanvir/sharebite/internal/model"
)

// foodDTO はフードのワイヤ表現。フィールド名はサーバーのJSON契約に従う。
type foodDTO struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	ImageURL       string `json:"imageUrl"`
	Quantity       string `json:"quantity"`
	PickupLocation string `json:"pickupLocation"`
	ExpireDate     string `json:"expireDate"`
	Notes          string `json:"notes"`
	Status         string `json:"status"`
	DonorName      string `json:"donorName"`
	DonorEmail     string `json:"donorEmail"`
	DonorAvatar    string `json:"donorAvatar"`
}

// toModel はワイヤ表現をドメインモデルへ変換する。
// ステータス文字列は大文字小文字を区別せず正規化する。
func (d foodDTO) toModel() (*model.Food, error) {
	if d.ID == "" {
		return nil, model.NewInvalidPayloadError("food is missing _id")
	}
	return &model.Food{
		ID:             d.ID,
		Name:           d.Name,
		ImageURL:       d.ImageURL,
		Quantity:       d.Quantity,
		PickupLocation: d.PickupLocation,
		ExpireDate:     d.ExpireDate,
		Notes:          d.Notes,
		Status:         model.ParseFoodStatus(d.Status),
		Donor: model.Donor{
			Name:      d.DonorName,
			Email:     d.DonorEmail,
			AvatarURL: d.DonorAvatar,
		},
	}, nil
}

func foodsToModel(dtos []foodDTO) ([]model.Food, error) {
	foods := make([]model.Food, 0, len(dtos))
	for _, d := range dtos {
		f, err := d.toModel()
		if err != nil {
			return nil, err
		}
		foods = append(foods, *f)
	}
	return foods, nil
}

// createFoodBody はフード登録のリクエストボディ。
type createFoodBody struct {
	Name           string `json:"name"`
	ImageURL       string `json:"imageUrl"`
	Quantity       string `json:"quantity"`
	PickupLocation string `json:"pickupLocation"`
	ExpireDate     string `json:"expireDate"`
	Notes          string `json:"notes"`
}

// updateFoodBody は部分更新のリクエストボディ。nilのフィールドは送信しない。
type updateFoodBody struct {
	Name           *string `json:"name,omitempty"`
	ImageURL       *string `json:"imageUrl,omitempty"`
	Quantity       *string `json:"quantity,omitempty"`
	PickupLocation *string `json:"pickupLocation,omitempty"`
	ExpireDate     *string `json:"expireDate,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	Status         *string `json:"status,omitempty"`
}

// ListAvailableFoods は提供可能なフードの一覧を取得する。認証不要。
func (c *Client) ListAvailableFoods(ctx context.Context) ([]model.Food, error) {
	query := url.Values{"status": {string(model.FoodStatusAvailable)}}
	var dtos []foodDTO
	if err := c.do(ctx, http.MethodGet, "/foods", query, nil, &dtos); err != nil {
		return nil, err
	}
	return foodsToModel(dtos)
}

// FeaturedFoods は注目フード（数量の多い順の上位）を取得する。認証不要。
func (c *Client) FeaturedFoods(ctx context.Context) ([]model.Food, error) {
	var dtos []foodDTO
	if err := c.do(ctx, http.MethodGet, "/foods/featured", nil, nil, &dtos); err != nil {
		return nil, err
	}
	return foodsToModel(dtos)
}

// MyFoods はサインイン中のユーザーが提供者であるフードの一覧を取得する。
func (c *Client) MyFoods(ctx context.Context) ([]model.Food, error) {
	var dtos []foodDTO
	if err := c.do(ctx, http.MethodGet, "/foods/my", nil, nil, &dtos); err != nil {
		return nil, err
	}
	return foodsToModel(dtos)
}

// GetFood はフードの詳細を取得する。認証不要。
func (c *Client) GetFood(ctx context.Context, foodID string) (*model.Food, error) {
	var dto foodDTO
	if err := c.do(ctx, http.MethodGet, "/foods/"+url.PathEscape(foodID), nil, nil, &dto); err != nil {
		if model.IsKind(err, model.KindNotFound) {
			return nil, model.NewFoodNotFoundError(foodID)
		}
		return nil, err
	}
	return dto.toModel()
}

// CreateFood は新しいフードを登録する。
func (c *Client) CreateFood(ctx context.Context, input model.CreateFoodInput) (*model.Food, error) {
	body := createFoodBody{
		Name:           input.Name,
		ImageURL:       input.ImageURL,
		Quantity:       input.Quantity,
		PickupLocation: input.PickupLocation,
		ExpireDate:     input.ExpireDate,
		Notes:          input.Notes,
	}
	var dto foodDTO
	if err := c.do(ctx, http.MethodPost, "/foods", nil, body, &dto); err != nil {
		return nil, err
	}
	return dto.toModel()
}

// UpdateFood はフードを部分更新する。提供者本人のみ許可される。
func (c *Client) UpdateFood(ctx context.Context, foodID string, input model.UpdateFoodInput) (*model.Food, error) {
	body := updateFoodBody{
		Name:           input.Name,
		ImageURL:       input.ImageURL,
		Quantity:       input.Quantity,
		PickupLocation: input.PickupLocation,
		ExpireDate:     input.ExpireDate,
		Notes:          input.Notes,
	}
	if input.Status != nil {
		s := string(*input.Status)
		body.Status = &s
	}
	var dto foodDTO
	if err := c.do(ctx, http.MethodPatch, "/foods/"+url.PathEscape(foodID), nil, body, &dto); err != nil {
		if model.IsKind(err, model.KindNotFound) {
			return nil, model.NewFoodNotFoundError(foodID)
		}
		return nil, err
	}
	return dto.toModel()
}

// DeleteFood はフードを削除する。提供者本人のみ許可される。
func (c *Client) DeleteFood(ctx context.Context, foodID string) error {
	err := c.do(ctx, http.MethodDelete, "/foods/"+url.PathEscape(foodID), nil, nil, nil)
	if err != nil && model.IsKind(err, model.KindNotFound) {
		return model.NewFoodNotFoundError(foodID)
	}
	return err
}
