package query

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/tanvir/sharebite/internal/cache"
	"github.com/tanvir/sharebite/internal/model"
	"github.com/tanvir/sharebite/internal/session"
)

type mockFoodAPI struct {
	listAvailableFoodsFn func(ctx context.Context) ([]model.Food, error)
	featuredFoodsFn      func(ctx context.Context) ([]model.Food, error)
	myFoodsFn            func(ctx context.Context) ([]model.Food, error)
	getFoodFn            func(ctx context.Context, foodID string) (*model.Food, error)
}

func (m *mockFoodAPI) ListAvailableFoods(ctx context.Context) ([]model.Food, error) {
	return m.listAvailableFoodsFn(ctx)
}

func (m *mockFoodAPI) FeaturedFoods(ctx context.Context) ([]model.Food, error) {
	return m.featuredFoodsFn(ctx)
}

func (m *mockFoodAPI) MyFoods(ctx context.Context) ([]model.Food, error) {
	return m.myFoodsFn(ctx)
}

func (m *mockFoodAPI) GetFood(ctx context.Context, foodID string) (*model.Food, error) {
	return m.getFoodFn(ctx, foodID)
}

type mockRequestAPI struct {
	myRequestsFn       func(ctx context.Context) ([]model.Request, error)
	donorRequestsFn    func(ctx context.Context) ([]model.Request, error)
	foodRequestsFn     func(ctx context.Context, foodID string) ([]model.Request, error)
	myRequestForFoodFn func(ctx context.Context, foodID string) (*model.Request, error)
}

func (m *mockRequestAPI) MyRequests(ctx context.Context) ([]model.Request, error) {
	return m.myRequestsFn(ctx)
}

func (m *mockRequestAPI) DonorRequests(ctx context.Context) ([]model.Request, error) {
	return m.donorRequestsFn(ctx)
}

func (m *mockRequestAPI) FoodRequests(ctx context.Context, foodID string) ([]model.Request, error) {
	return m.foodRequestsFn(ctx, foodID)
}

func (m *mockRequestAPI) MyRequestForFood(ctx context.Context, foodID string) (*model.Request, error) {
	return m.myRequestForFoodFn(ctx, foodID)
}

type mockSession struct {
	snapshot session.Snapshot
}

func (m *mockSession) Current() session.Snapshot { return m.snapshot }

func authenticatedSession(email string) *mockSession {
	return &mockSession{snapshot: session.Snapshot{
		State:    session.StateAuthenticated,
		Identity: &model.Identity{UID: "uid-1", Email: email, Name: "テストユーザー"},
	}}
}

func TestService_AvailableFoodsReadsThroughCache(t *testing.T) {
	var fetches atomic.Int32
	foods := &mockFoodAPI{
		listAvailableFoodsFn: func(ctx context.Context) ([]model.Food, error) {
			fetches.Add(1)
			return []model.Food{{ID: "food-1", Status: model.FoodStatusAvailable}}, nil
		},
	}
	s := NewService(foods, &mockRequestAPI{}, &mockSession{}, cache.New(0, nil, nil), nil, nil)

	for i := 0; i < 3; i++ {
		got, err := s.AvailableFoods(context.Background())
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(got) != 1 || got[0].ID != "food-1" {
			t.Errorf("unexpected foods: %+v", got)
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestService_MyFoodsRequiresAuthentication(t *testing.T) {
	s := NewService(&mockFoodAPI{}, &mockRequestAPI{}, &mockSession{snapshot: session.Snapshot{State: session.StateUnauthenticated}}, cache.New(0, nil, nil), nil, nil)

	_, err := s.MyFoods(context.Background())
	if !model.IsKind(err, model.KindUnauthenticated) {
		t.Fatalf("error kind = %v, want unauthenticated: %v", model.KindOf(err), err)
	}
}

func TestService_MyFoodsKeyedByUser(t *testing.T) {
	var fetches atomic.Int32
	foods := &mockFoodAPI{
		myFoodsFn: func(ctx context.Context) ([]model.Food, error) {
			fetches.Add(1)
			return nil, nil
		},
	}
	sess := authenticatedSession("a@example.com")
	c := cache.New(0, nil, nil)
	s := NewService(foods, &mockRequestAPI{}, sess, c, nil, nil)

	s.MyFoods(context.Background())
	// 別のユーザーに切り替わると同じビューでも再フェッチされる
	sess.snapshot.Identity.Email = "b@example.com"
	s.MyFoods(context.Background())

	if got := fetches.Load(); got != 2 {
		t.Errorf("fetches = %d, want 2", got)
	}
}

func TestService_MyRequestsAttachesFoodSummaries(t *testing.T) {
	var foodFetches atomic.Int32
	foods := &mockFoodAPI{
		getFoodFn: func(ctx context.Context, foodID string) (*model.Food, error) {
			foodFetches.Add(1)
			return &model.Food{ID: foodID, Name: "おにぎり", Status: model.FoodStatusAvailable}, nil
		},
	}
	requests := &mockRequestAPI{
		myRequestsFn: func(ctx context.Context) ([]model.Request, error) {
			return []model.Request{
				{ID: "req-1", FoodID: "food-1", Status: model.RequestStatusPending},
				{ID: "req-2", FoodID: "food-1", Status: model.RequestStatusPending},
				{ID: "req-3", FoodID: "food-2", Status: model.RequestStatusAccepted},
			}, nil
		},
	}
	s := NewService(foods, requests, authenticatedSession("a@example.com"), cache.New(0, nil, nil), nil, nil)

	got, err := s.MyRequests(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len(requests) = %d, want 3", len(got))
	}
	for i, req := range got {
		if req.Food == nil {
			t.Fatalf("requests[%d].Food = nil, want summary", i)
		}
		if req.Food.ID != req.FoodID {
			t.Errorf("requests[%d].Food.ID = %q, want %q", i, req.Food.ID, req.FoodID)
		}
	}
	// 同じフードへの参照は1回の解決にまとめられる
	if got := foodFetches.Load(); got != 2 {
		t.Errorf("food fetches = %d, want 2", got)
	}
}

func TestService_MyRequestsToleratesDeletedFood(t *testing.T) {
	foods := &mockFoodAPI{
		getFoodFn: func(ctx context.Context, foodID string) (*model.Food, error) {
			return nil, model.NewFoodNotFoundError(foodID)
		},
	}
	requests := &mockRequestAPI{
		myRequestsFn: func(ctx context.Context) ([]model.Request, error) {
			return []model.Request{{ID: "req-1", FoodID: "gone", Status: model.RequestStatusPending}}, nil
		},
	}
	s := NewService(foods, requests, authenticatedSession("a@example.com"), cache.New(0, nil, nil), nil, nil)

	got, err := s.MyRequests(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got[0].Food != nil {
		t.Errorf("Food = %+v, want nil for deleted food", got[0].Food)
	}
}

func TestService_MyRequestStatusAbsenceIsCached(t *testing.T) {
	var fetches atomic.Int32
	requests := &mockRequestAPI{
		myRequestForFoodFn: func(ctx context.Context, foodID string) (*model.Request, error) {
			fetches.Add(1)
			return nil, nil
		},
	}
	s := NewService(&mockFoodAPI{}, requests, authenticatedSession("a@example.com"), cache.New(0, nil, nil), nil, nil)

	for i := 0; i < 2; i++ {
		req, err := s.MyRequestStatus(context.Background(), "food-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req != nil {
			t.Errorf("request = %+v, want nil", req)
		}
	}
	if got := fetches.Load(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestService_FoodRequestsRequiresAuthentication(t *testing.T) {
	s := NewService(&mockFoodAPI{}, &mockRequestAPI{}, &mockSession{snapshot: session.Snapshot{State: session.StateLoading}}, cache.New(0, nil, nil), nil, nil)

	_, err := s.FoodRequests(context.Background(), "food-1")
	if !model.IsKind(err, model.KindUnauthenticated) {
		t.Fatalf("error kind = %v, want unauthenticated: %v", model.KindOf(err), err)
	}
}

type recordingNotifier struct {
	failures []error
}

func (n *recordingNotifier) Failure(err error) { n.failures = append(n.failures, err) }

func TestService_LoadFailureNotifies(t *testing.T) {
	foods := &mockFoodAPI{
		listAvailableFoodsFn: func(ctx context.Context) ([]model.Food, error) {
			return nil, model.NewTransientError("接続できません")
		},
	}
	notifier := &recordingNotifier{}
	s := NewService(foods, &mockRequestAPI{}, &mockSession{}, cache.New(0, nil, nil), notifier, nil)

	_, err := s.AvailableFoods(context.Background())
	if !model.IsKind(err, model.KindTransient) {
		t.Fatalf("error kind = %v, want transient: %v", model.KindOf(err), err)
	}
	if len(notifier.failures) != 1 {
		t.Fatalf("failures = %d, want 1", len(notifier.failures))
	}
}

func TestService_UnauthenticatedDoesNotNotify(t *testing.T) {
	notifier := &recordingNotifier{}
	s := NewService(&mockFoodAPI{}, &mockRequestAPI{}, &mockSession{snapshot: session.Snapshot{State: session.StateUnauthenticated}}, cache.New(0, nil, nil), notifier, nil)

	if _, err := s.MyFoods(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(notifier.failures) != 0 {
		t.Errorf("failures = %d, want 0", len(notifier.failures))
	}
}
