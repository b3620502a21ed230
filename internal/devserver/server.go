package devserver

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter はドメインAPIスタブの全ルーティングを構成したchi.Routerを返す。
//
// 公開ルート（認証不要）:
//
//	GET /healthz, GET /foods, GET /foods/featured, GET /foods/{foodID}
//
// それ以外のルートはベアラートークンによる認証を必要とする。
func NewRouter(store *Store, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{store: store}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)

	// --- 認証不要のルート ---
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/foods", h.ListFoods)
	r.Get("/foods/featured", h.FeaturedFoods)

	// --- 認証必須のルート ---
	r.Group(func(r chi.Router) {
		r.Use(NewAuthMiddleware(logger))

		r.Get("/foods/my", h.MyFoods)
		r.Post("/foods", h.CreateFood)
		r.Patch("/foods/{foodID}", h.UpdateFood)
		r.Delete("/foods/{foodID}", h.DeleteFood)

		r.Route("/requests", func(r chi.Router) {
			r.Post("/", h.CreateRequest)
			r.Get("/my", h.MyRequests)
			r.Get("/donor", h.DonorRequests)
			r.Get("/food/{foodID}", h.FoodRequests)
			r.Get("/food/{foodID}/mine", h.MyRequestForFood)
			r.Patch("/{requestID}/status", h.SetRequestStatus)
		})
	})

	// フード詳細は同じパターンのPATCH/DELETEと異なり認証不要
	r.Get("/foods/{foodID}", h.GetFood)

	return r
}
