// Package devserver は開発と結合テスト用のドメインAPIスタブを提供する。
// 本番のAPIサーバーと同じワイヤ契約と状態遷移の不変条件を
// インメモリで実装する。
package devserver

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tanvir/sharebite/internal/model"
)

// featuredLimit は注目フード一覧の件数上限。
const featuredLimit = 6

// Store はフードとリクエストのインメモリストア。
// すべての操作はストア全体のロックの下で実行されるため、
// 承認によるリクエストとフードの同時遷移は原子的に観測される。
type Store struct {
	mu       sync.RWMutex
	foods    map[string]*model.Food
	requests map[string]*model.Request
	foodSeq  []string
	reqSeq   []string
}

// NewStore はStoreを生成する。
func NewStore() *Store {
	return &Store{
		foods:    make(map[string]*model.Food),
		requests: make(map[string]*model.Request),
	}
}

// CreateFood は新しいフードを登録する。提供者は作成時に固定され、
// 以後変更されない。
func (s *Store) CreateFood(donor model.Donor, input model.CreateFoodInput) *model.Food {
	s.mu.Lock()
	defer s.mu.Unlock()

	food := &model.Food{
		ID:             uuid.NewString(),
		Name:           input.Name,
		ImageURL:       input.ImageURL,
		Quantity:       input.Quantity,
		PickupLocation: input.PickupLocation,
		ExpireDate:     input.ExpireDate,
		Notes:          input.Notes,
		Status:         model.FoodStatusAvailable,
		Donor:          donor,
	}
	s.foods[food.ID] = food
	s.foodSeq = append(s.foodSeq, food.ID)
	copied := *food
	return &copied
}

// ListFoods はフードの一覧を返す。statusが空でない場合は絞り込む。
func (s *Store) ListFoods(status model.FoodStatus) []model.Food {
	s.mu.RLock()
	defer s.mu.RUnlock()

	foods := make([]model.Food, 0, len(s.foodSeq))
	for _, id := range s.foodSeq {
		food, ok := s.foods[id]
		if !ok {
			continue
		}
		if status != model.FoodStatusUnknown && food.Status != status {
			continue
		}
		foods = append(foods, *food)
	}
	return foods
}

// FeaturedFoods は提供可能なフードを数量の多い順に上位数件返す。
func (s *Store) FeaturedFoods() []model.Food {
	foods := s.ListFoods(model.FoodStatusAvailable)
	sort.SliceStable(foods, func(i, j int) bool {
		return quantityValue(foods[i].Quantity) > quantityValue(foods[j].Quantity)
	})
	if len(foods) > featuredLimit {
		foods = foods[:featuredLimit]
	}
	return foods
}

// quantityValue は"3個"のような数量文字列の先頭の数値を取り出す。
// 数値で始まらない場合は0として扱う。
func quantityValue(quantity string) int {
	trimmed := strings.TrimSpace(quantity)
	end := 0
	for end < len(trimmed) && trimmed[end] >= '0' && trimmed[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, err := strconv.Atoi(trimmed[:end])
	if err != nil {
		return 0
	}
	return n
}

// FoodsByDonor は特定の提供者のフード一覧を返す。
func (s *Store) FoodsByDonor(email string) []model.Food {
	s.mu.RLock()
	defer s.mu.RUnlock()

	foods := make([]model.Food, 0)
	for _, id := range s.foodSeq {
		food, ok := s.foods[id]
		if !ok {
			continue
		}
		if food.IsDonor(email) {
			foods = append(foods, *food)
		}
	}
	return foods
}

// GetFood はフードを取得する。
func (s *Store) GetFood(foodID string) (*model.Food, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	food, ok := s.foods[foodID]
	if !ok {
		return nil, model.NewFoodNotFoundError(foodID)
	}
	copied := *food
	return &copied, nil
}

// UpdateFood はフードを部分更新する。提供者本人のみ許可される。
// ステータスはAvailable→Donatedの一方向にのみ遷移でき、
// すでにDonatedのフードへ同じ値を再設定する操作は冪等に成功する。
func (s *Store) UpdateFood(foodID, callerEmail string, input model.UpdateFoodInput) (*model.Food, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	food, ok := s.foods[foodID]
	if !ok {
		return nil, model.NewFoodNotFoundError(foodID)
	}
	if !food.IsDonor(callerEmail) {
		return nil, model.NewForbiddenError("updateFood")
	}
	if input.Status != nil {
		next := *input.Status
		if food.Status == model.FoodStatusDonated && next == model.FoodStatusAvailable {
			return nil, model.NewFoodNotAvailableError(foodID)
		}
		food.Status = next
	}
	if input.Name != nil {
		food.Name = *input.Name
	}
	if input.ImageURL != nil {
		food.ImageURL = *input.ImageURL
	}
	if input.Quantity != nil {
		food.Quantity = *input.Quantity
	}
	if input.PickupLocation != nil {
		food.PickupLocation = *input.PickupLocation
	}
	if input.ExpireDate != nil {
		food.ExpireDate = *input.ExpireDate
	}
	if input.Notes != nil {
		food.Notes = *input.Notes
	}

	copied := *food
	return &copied, nil
}

// DeleteFood はフードとそのフードへのリクエストを削除する。
// 提供者本人のみ許可される。
func (s *Store) DeleteFood(foodID, callerEmail string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	food, ok := s.foods[foodID]
	if !ok {
		return model.NewFoodNotFoundError(foodID)
	}
	if !food.IsDonor(callerEmail) {
		return model.NewForbiddenError("deleteFood")
	}

	delete(s.foods, foodID)
	for id, request := range s.requests {
		if request.FoodID == foodID {
			delete(s.requests, id)
		}
	}
	return nil
}

// CreateRequest はフードに対するリクエストを作成する。
// フードが提供可能であること、申請者が提供者本人でないこと、
// 同じ申請者の既存リクエストがないことをサーバー側でも強制する。
func (s *Store) CreateRequest(requester model.Identity, input model.CreateRequestInput) (*model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	food, ok := s.foods[input.FoodID]
	if !ok {
		return nil, model.NewFoodNotFoundError(input.FoodID)
	}
	if food.IsDonor(requester.Email) {
		return nil, model.NewOwnFoodRequestError()
	}
	if food.Status != model.FoodStatusAvailable {
		return nil, model.NewFoodNotAvailableError(input.FoodID)
	}
	for _, existing := range s.requests {
		if existing.FoodID == input.FoodID && existing.RequesterEmail == requester.Email {
			return nil, model.NewDuplicateRequestError(input.FoodID)
		}
	}

	request := &model.Request{
		ID:             uuid.NewString(),
		FoodID:         input.FoodID,
		RequesterName:  requester.Name,
		RequesterEmail: requester.Email,
		Location:       input.Location,
		Reason:         input.Reason,
		ContactNo:      input.ContactNo,
		Status:         model.RequestStatusPending,
	}
	s.requests[request.ID] = request
	s.reqSeq = append(s.reqSeq, request.ID)
	copied := *request
	return &copied, nil
}

// RequestsByRequester は特定の申請者のリクエスト一覧を返す。
func (s *Store) RequestsByRequester(email string) []model.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()

	requests := make([]model.Request, 0)
	for _, id := range s.reqSeq {
		request, ok := s.requests[id]
		if !ok {
			continue
		}
		if request.RequesterEmail == email {
			requests = append(requests, *request)
		}
	}
	return requests
}

// RequestsByDonor は特定の提供者のフードへのリクエスト一覧を返す。
func (s *Store) RequestsByDonor(email string) []model.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()

	requests := make([]model.Request, 0)
	for _, id := range s.reqSeq {
		request, ok := s.requests[id]
		if !ok {
			continue
		}
		food, ok := s.foods[request.FoodID]
		if !ok {
			continue
		}
		if food.IsDonor(email) {
			requests = append(requests, *request)
		}
	}
	return requests
}

// RequestsByFood は特定フードへのリクエスト一覧を返す。
// フードの提供者本人のみ許可される。
func (s *Store) RequestsByFood(foodID, callerEmail string) ([]model.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	food, ok := s.foods[foodID]
	if !ok {
		return nil, model.NewFoodNotFoundError(foodID)
	}
	if !food.IsDonor(callerEmail) {
		return nil, model.NewForbiddenError("listFoodRequests")
	}

	requests := make([]model.Request, 0)
	for _, id := range s.reqSeq {
		request, ok := s.requests[id]
		if !ok {
			continue
		}
		if request.FoodID == foodID {
			requests = append(requests, *request)
		}
	}
	return requests, nil
}

// RequestForFood は特定の申請者の特定フードに対するリクエストを返す。
// 存在しない場合はリクエスト未発見エラーを返す。
func (s *Store) RequestForFood(foodID, requesterEmail string) (*model.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, id := range s.reqSeq {
		request, ok := s.requests[id]
		if !ok {
			continue
		}
		if request.FoodID == foodID && request.RequesterEmail == requesterEmail {
			copied := *request
			return &copied, nil
		}
	}
	return nil, model.NewRequestNotFoundError(foodID)
}

// SetRequestStatus はリクエストのステータスを遷移させる。
// Pending以外からの遷移は拒否される。承認の場合はフードが提供可能で
// あることを検証したうえで、同じロックの下でフードをDonatedへ遷移させる。
// これにより提供済みフードに対する二つ目の承認は必ず競合エラーになる。
func (s *Store) SetRequestStatus(requestID, callerEmail string, next model.RequestStatus) (*model.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.requests[requestID]
	if !ok {
		return nil, model.NewRequestNotFoundError(requestID)
	}
	food, ok := s.foods[request.FoodID]
	if !ok {
		return nil, model.NewFoodNotFoundError(request.FoodID)
	}
	if !food.IsDonor(callerEmail) {
		return nil, model.NewForbiddenError("setRequestStatus")
	}
	if !request.Status.CanTransitionTo(next) {
		return nil, model.NewRequestTerminalError(requestID, request.Status)
	}
	if next == model.RequestStatusAccepted {
		if food.Status != model.FoodStatusAvailable {
			return nil, model.NewFoodNotAvailableError(request.FoodID)
		}
		food.Status = model.FoodStatusDonated
	}
	request.Status = next

	copied := *request
	return &copied, nil
}
