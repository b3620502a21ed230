package devserver

import (
	"context"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tanvir/sharebite/internal/api"
	"github.com/tanvir/sharebite/internal/model"
	"github.com/tanvir/sharebite/internal/transport"
)

type staticCredentials struct {
	token string
}

func (s staticCredentials) Credential(ctx context.Context) (string, error) {
	if s.token == "" {
		return "", model.NewUnauthenticatedError()
	}
	return s.token, nil
}

func signedToken(t *testing.T, identity model.Identity) string {
	t.Helper()
	claims := jwt.MapClaims{
		"sub":   identity.UID,
		"email": identity.Email,
		"name":  identity.Name,
		"exp":   time.Now().Add(time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("dev-signing-key"))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return signed
}

func newAPIClient(t *testing.T, serverURL, token string) *api.Client {
	t.Helper()
	logger := slog.New(slog.NewJSONHandler(testWriter{t}, nil))
	httpClient := transport.NewClient(staticCredentials{token: token}, logger, 5*time.Second)
	return api.NewClient(serverURL, httpClient, logger, nil)
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

// TestEndToEnd_RequestAcceptanceFlow は提供から承認までの一連の流れを
// 実際のHTTPスタック越しに検証する。
func TestEndToEnd_RequestAcceptanceFlow(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(testWriter{t}, nil))
	server := httptest.NewServer(NewRouter(NewStore(), logger))
	defer server.Close()

	donor := newAPIClient(t, server.URL, signedToken(t, donorIdentity))
	requester := newAPIClient(t, server.URL, signedToken(t, requesterIdentity))
	second := newAPIClient(t, server.URL, signedToken(t, secondRequester))
	anonymous := newAPIClient(t, server.URL, "")
	ctx := context.Background()

	// 1. 提供者がフードを登録する
	food, err := donor.CreateFood(ctx, model.CreateFoodInput{
		Name:           "Rice",
		Quantity:       "5人前",
		PickupLocation: "渋谷駅",
		ExpireDate:     "2026-09-05",
	})
	if err != nil {
		t.Fatalf("createFood failed: %v", err)
	}
	if food.Status != model.FoodStatusAvailable {
		t.Fatalf("food status = %q, want Available", food.Status)
	}

	// 2. 公開一覧には未認証でもアクセスできる
	foods, err := anonymous.ListAvailableFoods(ctx)
	if err != nil {
		t.Fatalf("listAvailableFoods failed: %v", err)
	}
	if len(foods) != 1 || foods[0].ID != food.ID {
		t.Fatalf("unexpected available foods: %+v", foods)
	}

	// 3. 申請者がリクエストを作成する
	request, err := requester.CreateRequest(ctx, model.CreateRequestInput{
		FoodID:    food.ID,
		Location:  "新宿区",
		Reason:    "家族の分が足りません",
		ContactNo: "090-0000-0000",
	})
	if err != nil {
		t.Fatalf("createRequest failed: %v", err)
	}
	if request.Status != model.RequestStatusPending {
		t.Fatalf("request status = %q, want Pending", request.Status)
	}

	// 4. 提供者がリクエストを承認するとフードも提供済みになる
	accepted, err := donor.SetRequestStatus(ctx, request.ID, model.RequestStatusAccepted)
	if err != nil {
		t.Fatalf("setRequestStatus failed: %v", err)
	}
	if accepted.Status != model.RequestStatusAccepted {
		t.Fatalf("status = %q, want Accepted", accepted.Status)
	}
	detail, err := anonymous.GetFood(ctx, food.ID)
	if err != nil {
		t.Fatalf("getFood failed: %v", err)
	}
	if detail.Status != model.FoodStatusDonated {
		t.Fatalf("food status = %q, want Donated after accept", detail.Status)
	}

	// 5. 二人目の申請者のリクエストは競合で拒否される
	_, err = second.CreateRequest(ctx, model.CreateRequestInput{FoodID: food.ID})
	if !model.IsKind(err, model.KindConflict) {
		t.Fatalf("error kind = %v, want conflict: %v", model.KindOf(err), err)
	}
}

func TestRouter_AuthenticatedRoutesRejectAnonymous(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(testWriter{t}, nil))
	server := httptest.NewServer(NewRouter(NewStore(), logger))
	defer server.Close()

	anonymous := newAPIClient(t, server.URL, "")
	ctx := context.Background()

	if _, err := anonymous.MyFoods(ctx); !model.IsKind(err, model.KindUnauthenticated) {
		t.Errorf("MyFoods error kind = %v, want unauthenticated: %v", model.KindOf(err), err)
	}
	if _, err := anonymous.CreateFood(ctx, model.CreateFoodInput{Name: "おにぎり"}); !model.IsKind(err, model.KindUnauthenticated) {
		t.Errorf("CreateFood error kind = %v, want unauthenticated: %v", model.KindOf(err), err)
	}
}

func TestRouter_DonorOnlyRoutes(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(testWriter{t}, nil))
	server := httptest.NewServer(NewRouter(NewStore(), logger))
	defer server.Close()

	donor := newAPIClient(t, server.URL, signedToken(t, donorIdentity))
	requester := newAPIClient(t, server.URL, signedToken(t, requesterIdentity))
	ctx := context.Background()

	food, err := donor.CreateFood(ctx, model.CreateFoodInput{Name: "パン", Quantity: "1個"})
	if err != nil {
		t.Fatalf("createFood failed: %v", err)
	}

	// 非提供者によるフード編集は403
	name := "改名"
	if _, err := requester.UpdateFood(ctx, food.ID, model.UpdateFoodInput{Name: &name}); !model.IsKind(err, model.KindForbidden) {
		t.Errorf("UpdateFood error kind = %v, want forbidden: %v", model.KindOf(err), err)
	}

	// 非提供者によるリクエスト一覧の閲覧は403
	if _, err := requester.FoodRequests(ctx, food.ID); !model.IsKind(err, model.KindForbidden) {
		t.Errorf("FoodRequests error kind = %v, want forbidden: %v", model.KindOf(err), err)
	}
}

func TestRouter_MyRequestForFoodAbsence(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(testWriter{t}, nil))
	server := httptest.NewServer(NewRouter(NewStore(), logger))
	defer server.Close()

	donor := newAPIClient(t, server.URL, signedToken(t, donorIdentity))
	requester := newAPIClient(t, server.URL, signedToken(t, requesterIdentity))
	ctx := context.Background()

	food, err := donor.CreateFood(ctx, model.CreateFoodInput{Name: "パン", Quantity: "1個"})
	if err != nil {
		t.Fatalf("createFood failed: %v", err)
	}

	// 未申請のフードに対する自分のリクエスト照会はnilを返す
	prior, err := requester.MyRequestForFood(ctx, food.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prior != nil {
		t.Errorf("prior request = %+v, want nil", prior)
	}
}
