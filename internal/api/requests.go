package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/tanvir/sharebite/internal/model"
)

// requestDTO はリクエストのワイヤ表現。フードは正規化されておらずIDのみを持つ。
type requestDTO struct {
	ID             string `json:"_id"`
	FoodID         string `json:"foodId"`
	RequesterName  string `json:"requesterName"`
	RequesterEmail string `json:"requesterEmail"`
	Location       string `json:"location"`
	Reason         string `json:"reason"`
	ContactNo      string `json:"contactNo"`
	Status         string `json:"status"`
}

func (d requestDTO) toModel() (*model.Request, error) {
	if d.ID == "" {
		return nil, model.NewInvalidPayloadError("request is missing _id")
	}
	return &model.Request{
		ID:             d.ID,
		FoodID:         d.FoodID,
		RequesterName:  d.RequesterName,
		RequesterEmail: d.RequesterEmail,
		Location:       d.Location,
		Reason:         d.Reason,
		ContactNo:      d.ContactNo,
		Status:         model.ParseRequestStatus(d.Status),
	}, nil
}

func requestsToModel(dtos []requestDTO) ([]model.Request, error) {
	requests := make([]model.Request, 0, len(dtos))
	for _, d := range dtos {
		r, err := d.toModel()
		if err != nil {
			return nil, err
		}
		requests = append(requests, *r)
	}
	return requests, nil
}

// createRequestBody はリクエスト作成のリクエストボディ。
type createRequestBody struct {
	FoodID    string `json:"foodId"`
	Location  string `json:"location"`
	Reason    string `json:"reason"`
	ContactNo string `json:"contactNo"`
}

// setRequestStatusBody はステータス遷移のリクエストボディ。
type setRequestStatusBody struct {
	Status string `json:"status"`
}

// CreateRequest はフードに対するリクエストを作成する。
func (c *Client) CreateRequest(ctx context.Context, input model.CreateRequestInput) (*model.Request, error) {
	body := createRequestBody{
		FoodID:    input.FoodID,
		Location:  input.Location,
		Reason:    input.Reason,
		ContactNo: input.ContactNo,
	}
	var dto requestDTO
	if err := c.do(ctx, http.MethodPost, "/requests", nil, body, &dto); err != nil {
		return nil, err
	}
	return dto.toModel()
}

// MyRequests はサインイン中のユーザーが申請したリクエストの一覧を取得する。
func (c *Client) MyRequests(ctx context.Context) ([]model.Request, error) {
	var dtos []requestDTO
	if err := c.do(ctx, http.MethodGet, "/requests/my", nil, nil, &dtos); err != nil {
		return nil, err
	}
	return requestsToModel(dtos)
}

// DonorRequests はサインイン中のユーザーが提供者であるフードへの
// リクエストの一覧を取得する。
func (c *Client) DonorRequests(ctx context.Context) ([]model.Request, error) {
	var dtos []requestDTO
	if err := c.do(ctx, http.MethodGet, "/requests/donor", nil, nil, &dtos); err != nil {
		return nil, err
	}
	return requestsToModel(dtos)
}

// FoodRequests は特定のフードに対するリクエストの一覧を取得する。
// 提供者本人のみ許可される。
func (c *Client) FoodRequests(ctx context.Context, foodID string) ([]model.Request, error) {
	var dtos []requestDTO
	if err := c.do(ctx, http.MethodGet, "/requests/food/"+url.PathEscape(foodID), nil, nil, &dtos); err != nil {
		return nil, err
	}
	return requestsToModel(dtos)
}

// MyRequestForFood はサインイン中のユーザーが特定のフードに対して
// 申請済みのリクエストを取得する。未申請の場合は(nil, nil)を返す。
func (c *Client) MyRequestForFood(ctx context.Context, foodID string) (*model.Request, error) {
	var dto requestDTO
	err := c.do(ctx, http.MethodGet, "/requests/food/"+url.PathEscape(foodID)+"/mine", nil, nil, &dto)
	if err != nil {
		if model.IsKind(err, model.KindNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return dto.toModel()
}

// SetRequestStatus はリクエストのステータスを遷移させる。
// 提供者本人のみ許可され、Pending以外からの遷移はサーバーが拒否する。
func (c *Client) SetRequestStatus(ctx context.Context, requestID string, status model.RequestStatus) (*model.Request, error) {
	body := setRequestStatusBody{Status: string(status)}
	var dto requestDTO
	err := c.do(ctx, http.MethodPatch, "/requests/"+url.PathEscape(requestID)+"/status", nil, body, &dto)
	if err != nil {
		if model.IsKind(err, model.KindNotFound) {
			return nil, model.NewRequestNotFoundError(requestID)
		}
		return nil, err
	}
	return dto.toModel()
}
