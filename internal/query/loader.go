package query

import (
	"context"
	"sync"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/tanvir/sharebite/internal/model"
)

const (
	summaryBatchWait     = 2 * time.Millisecond
	summaryBatchCapacity = 50
)

// newSummaryLoader はフード概要をバッチ解決するローダーを生成する。
// ビューの描画1回ごとに生成し、同じフードIDの重複解決を1回にまとめる。
func (s *Service) newSummaryLoader() *dataloader.Loader[string, *model.FoodSummary] {
	return dataloader.NewBatchedLoader(
		s.summaryBatchFn,
		dataloader.WithWait[string, *model.FoodSummary](summaryBatchWait),
		dataloader.WithBatchCapacity[string, *model.FoodSummary](summaryBatchCapacity),
	)
}

// summaryBatchFn はバッチ内の各フードIDを並行して解決する。
// 削除済みフードの参照はエラーにせずnilの概要として扱う。
func (s *Service) summaryBatchFn(ctx context.Context, foodIDs []string) []*dataloader.Result[*model.FoodSummary] {
	results := make([]*dataloader.Result[*model.FoodSummary], len(foodIDs))
	var wg sync.WaitGroup
	for i, foodID := range foodIDs {
		wg.Add(1)
		go func(i int, foodID string) {
			defer wg.Done()
			food, err := s.FoodDetail(ctx, foodID)
			if err != nil {
				if model.IsKind(err, model.KindNotFound) {
					results[i] = &dataloader.Result[*model.FoodSummary]{Data: nil}
					return
				}
				results[i] = &dataloader.Result[*model.FoodSummary]{Error: err}
				return
			}
			summary := food.Summary()
			results[i] = &dataloader.Result[*model.FoodSummary]{Data: &summary}
		}(i, foodID)
	}
	wg.Wait()
	return results
}

// attachFoodSummaries はリクエスト一覧に参照先フードの概要を付与する。
func (s *Service) attachFoodSummaries(ctx context.Context, requests []model.Request) ([]model.Request, error) {
	if len(requests) == 0 {
		return requests, nil
	}

	loader := s.newSummaryLoader()
	thunks := make([]func() (*model.FoodSummary, error), len(requests))
	for i, req := range requests {
		thunks[i] = loader.Load(ctx, req.FoodID)
	}

	attached := make([]model.Request, len(requests))
	for i, req := range requests {
		summary, err := thunks[i]()
		if err != nil {
			return nil, err
		}
		req.Food = summary
		attached[i] = req
	}
	return attached, nil
}
