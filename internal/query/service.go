// Package query は画面が購読する読み取りビューを提供する。
// すべての読み取りはキャッシュを経由し、リクエスト一覧には
// dataloaderでフード概要をバッチ解決して付与する。
package query

import (
	"context"
	"log/slog"

	"github.com/tanvir/sharebite/internal/cache"
	"github.com/tanvir/sharebite/internal/model"
	"github.com/tanvir/sharebite/internal/session"
)

// SessionReader はセッションの現在状態を参照するインターフェース。
type SessionReader interface {
	Current() session.Snapshot
}

// FoodAPI はビューが必要とするフード読み取りAPIのインターフェース。
type FoodAPI interface {
	ListAvailableFoods(ctx context.Context) ([]model.Food, error)
	FeaturedFoods(ctx context.Context) ([]model.Food, error)
	MyFoods(ctx context.Context) ([]model.Food, error)
	GetFood(ctx context.Context, foodID string) (*model.Food, error)
}

// RequestAPI はビューが必要とするリクエスト読み取りAPIのインターフェース。
type RequestAPI interface {
	MyRequests(ctx context.Context) ([]model.Request, error)
	DonorRequests(ctx context.Context) ([]model.Request, error)
	FoodRequests(ctx context.Context, foodID string) ([]model.Request, error)
	MyRequestForFood(ctx context.Context, foodID string) (*model.Request, error)
}

// Notifier は読み取り失敗をユーザーに通知するインターフェース。
type Notifier interface {
	Failure(err error)
}

// Service は読み取りビューのサービス。
type Service struct {
	foods    FoodAPI
	requests RequestAPI
	session  SessionReader
	cache    *cache.Cache
	notifier Notifier
	logger   *slog.Logger
}

// NewService はServiceを生成する。
// notifierがnilの場合は読み取り失敗の通知を行わない。
func NewService(foods FoodAPI, requests RequestAPI, sess SessionReader, c *cache.Cache, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		foods:    foods,
		requests: requests,
		session:  sess,
		cache:    c,
		notifier: notifier,
		logger:   logger,
	}
}

// report は読み取り失敗をログと通知チャネルに流す。
// 未認証はルーティングで扱う状態であり通知の対象外とする。
func (s *Service) report(view string, err error) error {
	if err == nil {
		return nil
	}
	s.logger.Warn("view load failed",
		slog.String("view", view),
		slog.String("error", err.Error()),
	)
	if s.notifier != nil && !model.IsKind(err, model.KindUnauthenticated) {
		s.notifier.Failure(err)
	}
	return err
}

// identity はサインイン中のアイデンティティを返す。
// 未認証の場合は未認証エラーを返す。
func (s *Service) identity() (*model.Identity, error) {
	snapshot := s.session.Current()
	if snapshot.State != session.StateAuthenticated || snapshot.Identity == nil {
		return nil, model.NewUnauthenticatedError()
	}
	return snapshot.Identity, nil
}

// AvailableFoods は提供可能なフード一覧のビュー。認証不要。
func (s *Service) AvailableFoods(ctx context.Context) ([]model.Food, error) {
	foods, err := cache.ReadAs(ctx, s.cache, cache.AvailableFoodsKey(), s.foods.ListAvailableFoods)
	return foods, s.report("availableFoods", err)
}

// FeaturedFoods は注目フード一覧のビュー。認証不要。
func (s *Service) FeaturedFoods(ctx context.Context) ([]model.Food, error) {
	foods, err := cache.ReadAs(ctx, s.cache, cache.FeaturedFoodsKey(), s.foods.FeaturedFoods)
	return foods, s.report("featuredFoods", err)
}

// MyFoods はサインイン中のユーザーが提供者であるフード一覧のビュー。
func (s *Service) MyFoods(ctx context.Context) ([]model.Food, error) {
	identity, err := s.identity()
	if err != nil {
		return nil, err
	}
	foods, err := cache.ReadAs(ctx, s.cache, cache.MyFoodsKey(identity.Email), s.foods.MyFoods)
	return foods, s.report("myFoods", err)
}

// FoodDetail はフード詳細のビュー。認証不要。
func (s *Service) FoodDetail(ctx context.Context, foodID string) (*model.Food, error) {
	food, err := cache.ReadAs(ctx, s.cache, cache.FoodDetailKey(foodID), func(ctx context.Context) (*model.Food, error) {
		return s.foods.GetFood(ctx, foodID)
	})
	return food, s.report("foodDetail", err)
}

// MyRequests はサインイン中のユーザーが申請したリクエスト一覧のビュー。
// 各リクエストには参照先フードの概要を付与する。
func (s *Service) MyRequests(ctx context.Context) ([]model.Request, error) {
	identity, err := s.identity()
	if err != nil {
		return nil, err
	}
	requests, err := cache.ReadAs(ctx, s.cache, cache.MyRequestsKey(identity.Email), s.requests.MyRequests)
	if err != nil {
		return nil, s.report("myRequests", err)
	}
	return s.attachFoodSummaries(ctx, requests)
}

// DonorRequests はサインイン中のユーザーのフードへのリクエスト一覧のビュー。
func (s *Service) DonorRequests(ctx context.Context) ([]model.Request, error) {
	identity, err := s.identity()
	if err != nil {
		return nil, err
	}
	requests, err := cache.ReadAs(ctx, s.cache, cache.DonorRequestsKey(identity.Email), s.requests.DonorRequests)
	if err != nil {
		return nil, s.report("donorRequests", err)
	}
	return s.attachFoodSummaries(ctx, requests)
}

// FoodRequests は特定フードへのリクエスト一覧のビュー。提供者専用。
func (s *Service) FoodRequests(ctx context.Context, foodID string) ([]model.Request, error) {
	if _, err := s.identity(); err != nil {
		return nil, err
	}
	requests, err := cache.ReadAs(ctx, s.cache, cache.FoodRequestsKey(foodID), func(ctx context.Context) ([]model.Request, error) {
		return s.requests.FoodRequests(ctx, foodID)
	})
	return requests, s.report("foodRequests", err)
}

// MyRequestStatus はサインイン中のユーザーの特定フードに対する
// 申請状況のビュー。未申請の場合は(nil, nil)を返す。
func (s *Service) MyRequestStatus(ctx context.Context, foodID string) (*model.Request, error) {
	identity, err := s.identity()
	if err != nil {
		return nil, err
	}
	key := cache.MyRequestStatusKey(foodID, identity.Email)
	request, err := cache.ReadAs(ctx, s.cache, key, func(ctx context.Context) (*model.Request, error) {
		return s.requests.MyRequestForFood(ctx, foodID)
	})
	return request, s.report("myRequestStatus", err)
}
