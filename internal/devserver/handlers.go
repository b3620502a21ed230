package devserver

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tanvir/sharebite/internal/model"
)

// foodResponse はフードのワイヤ表現。
type foodResponse struct {
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

func toFoodResponse(food model.Food) foodResponse {
	return foodResponse{
		ID:             food.ID,
		Name:           food.Name,
		ImageURL:       food.ImageURL,
		Quantity:       food.Quantity,
		PickupLocation: food.PickupLocation,
		ExpireDate:     food.ExpireDate,
		Notes:          food.Notes,
		Status:         string(food.Status),
		DonorName:      food.Donor.Name,
		DonorEmail:     food.Donor.Email,
		DonorAvatar:    food.Donor.AvatarURL,
	}
}

func toFoodResponses(foods []model.Food) []foodResponse {
	responses := make([]foodResponse, 0, len(foods))
	for _, food := range foods {
		responses = append(responses, toFoodResponse(food))
	}
	return responses
}

// requestResponse はリクエストのワイヤ表現。
type requestResponse struct {
	ID             string `json:"_id"`
	FoodID         string `json:"foodId"`
	RequesterName  string `json:"requesterName"`
	RequesterEmail string `json:"requesterEmail"`
	Location       string `json:"location"`
	Reason         string `json:"reason"`
	ContactNo      string `json:"contactNo"`
	Status         string `json:"status"`
}

func toRequestResponse(request model.Request) requestResponse {
	return requestResponse{
		ID:             request.ID,
		FoodID:         request.FoodID,
		RequesterName:  request.RequesterName,
		RequesterEmail: request.RequesterEmail,
		Location:       request.Location,
		Reason:         request.Reason,
		ContactNo:      request.ContactNo,
		Status:         string(request.Status),
	}
}

func toRequestResponses(requests []model.Request) []requestResponse {
	responses := make([]requestResponse, 0, len(requests))
	for _, request := range requests {
		responses = append(responses, toRequestResponse(request))
	}
	return responses
}

// errorResponseBody はAPIエラーレスポンスの統一フォーマット。
type errorResponseBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Action  string `json:"action"`
}

// statusForError はエラー分類をHTTPステータスコードへ写像する。
// 不正なリクエストボディはクライアント起因のため400として返す。
func statusForError(apiErr *model.APIError) int {
	if apiErr.Code == model.ErrCodeInvalidPayload {
		return http.StatusBadRequest
	}
	switch apiErr.Kind {
	case model.KindUnauthenticated:
		return http.StatusUnauthorized
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError は統一エラーフォーマットでHTTPエラーレスポンスを書き込む。
func writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	var apiErr *model.APIError
	if e, ok := err.(*model.APIError); ok {
		apiErr = e
	} else {
		apiErr = model.NewTransientError(err.Error())
	}
	w.WriteHeader(statusForError(apiErr))
	json.NewEncoder(w).Encode(errorResponseBody{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Action:  apiErr.Action,
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(body)
}

// handlers はドメインAPIスタブのHTTPハンドラー群。
type handlers struct {
	store *Store
}

// ListFoods はフード一覧を返す。
// GET /foods?status=Available
func (h *handlers) ListFoods(w http.ResponseWriter, r *http.Request) {
	status := model.ParseFoodStatus(r.URL.Query().Get("status"))
	writeJSON(w, http.StatusOK, toFoodResponses(h.store.ListFoods(status)))
}

// FeaturedFoods は注目フード一覧を返す。
// GET /foods/featured
func (h *handlers) FeaturedFoods(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toFoodResponses(h.store.FeaturedFoods()))
}

// MyFoods はサインイン中のユーザーのフード一覧を返す。
// GET /foods/my
func (h *handlers) MyFoods(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFoodResponses(h.store.FoodsByDonor(identity.Email)))
}

// GetFood はフード詳細を返す。
// GET /foods/{foodID}
func (h *handlers) GetFood(w http.ResponseWriter, r *http.Request) {
	food, err := h.store.GetFood(chi.URLParam(r, "foodID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFoodResponse(*food))
}

// createFoodRequest はフード登録リクエストのボディ。
type createFoodRequest struct {
	Name           string `json:"name"`
	ImageURL       string `json:"imageUrl"`
	Quantity       string `json:"quantity"`
	PickupLocation string `json:"pickupLocation"`
	ExpireDate     string `json:"expireDate"`
	Notes          string `json:"notes"`
}

// CreateFood は新しいフードを登録する。
// POST /foods
func (h *handlers) CreateFood(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req createFoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewInvalidPayloadError(err.Error()))
		return
	}
	if req.Name == "" {
		writeError(w, model.NewInvalidPayloadError("name is required"))
		return
	}

	donor := model.Donor{
		Name:      identity.Name,
		Email:     identity.Email,
		AvatarURL: identity.AvatarURL,
	}
	food := h.store.CreateFood(donor, model.CreateFoodInput{
		Name:           req.Name,
		ImageURL:       req.ImageURL,
		Quantity:       req.Quantity,
		PickupLocation: req.PickupLocation,
		ExpireDate:     req.ExpireDate,
		Notes:          req.Notes,
	})
	writeJSON(w, http.StatusCreated, toFoodResponse(*food))
}

// updateFoodRequest は部分更新リクエストのボディ。
type updateFoodRequest struct {
	Name           *string `json:"name"`
	ImageURL       *string `json:"imageUrl"`
	Quantity       *string `json:"quantity"`
	PickupLocation *string `json:"pickupLocation"`
	ExpireDate     *string `json:"expireDate"`
	Notes          *string `json:"notes"`
	Status         *string `json:"status"`
}

// UpdateFood はフードを部分更新する。
// PATCH /foods/{foodID}
func (h *handlers) UpdateFood(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req updateFoodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewInvalidPayloadError(err.Error()))
		return
	}

	input := model.UpdateFoodInput{
		Name:           req.Name,
		ImageURL:       req.ImageURL,
		Quantity:       req.Quantity,
		PickupLocation: req.PickupLocation,
		ExpireDate:     req.ExpireDate,
		Notes:          req.Notes,
	}
	if req.Status != nil {
		status := model.ParseFoodStatus(*req.Status)
		if status == model.FoodStatusUnknown {
			writeError(w, model.NewInvalidPayloadError("unknown status: "+*req.Status))
			return
		}
		input.Status = &status
	}

	food, err := h.store.UpdateFood(chi.URLParam(r, "foodID"), identity.Email, input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFoodResponse(*food))
}

// DeleteFood はフードを削除する。
// DELETE /foods/{foodID}
func (h *handlers) DeleteFood(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.store.DeleteFood(chi.URLParam(r, "foodID"), identity.Email); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// createRequestRequest はリクエスト作成のボディ。
type createRequestRequest struct {
	FoodID    string `json:"foodId"`
	Location  string `json:"location"`
	Reason    string `json:"reason"`
	ContactNo string `json:"contactNo"`
}

// CreateRequest はフードへのリクエストを作成する。
// POST /requests
func (h *handlers) CreateRequest(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req createRequestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewInvalidPayloadError(err.Error()))
		return
	}
	if req.FoodID == "" {
		writeError(w, model.NewInvalidPayloadError("foodId is required"))
		return
	}

	request, err := h.store.CreateRequest(*identity, model.CreateRequestInput{
		FoodID:    req.FoodID,
		Location:  req.Location,
		Reason:    req.Reason,
		ContactNo: req.ContactNo,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestResponse(*request))
}

// MyRequests はサインイン中のユーザーの申請一覧を返す。
// GET /requests/my
func (h *handlers) MyRequests(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponses(h.store.RequestsByRequester(identity.Email)))
}

// DonorRequests はサインイン中のユーザーのフードへのリクエスト一覧を返す。
// GET /requests/donor
func (h *handlers) DonorRequests(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponses(h.store.RequestsByDonor(identity.Email)))
}

// FoodRequests は特定フードへのリクエスト一覧を返す。提供者専用。
// GET /requests/food/{foodID}
func (h *handlers) FoodRequests(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	requests, err := h.store.RequestsByFood(chi.URLParam(r, "foodID"), identity.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponses(requests))
}

// MyRequestForFood はサインイン中のユーザーの特定フードへの申請を返す。
// GET /requests/food/{foodID}/mine
func (h *handlers) MyRequestForFood(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	request, err := h.store.RequestForFood(chi.URLParam(r, "foodID"), identity.Email)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(*request))
}

// setRequestStatusRequest はステータス遷移のボディ。
type setRequestStatusRequest struct {
	Status string `json:"status"`
}

// SetRequestStatus はリクエストのステータスを遷移させる。
// PATCH /requests/{requestID}/status
func (h *handlers) SetRequestStatus(w http.ResponseWriter, r *http.Request) {
	identity, err := identityFromContext(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	var req setRequestStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, model.NewInvalidPayloadError(err.Error()))
		return
	}
	status := model.ParseRequestStatus(req.Status)
	if !status.Terminal() {
		writeError(w, model.NewInvalidPayloadError("status must be Accepted or Rejected"))
		return
	}

	request, err := h.store.SetRequestStatus(chi.URLParam(r, "requestID"), identity.Email, status)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestResponse(*request))
}
