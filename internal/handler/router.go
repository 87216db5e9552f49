package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	apiHandler "github.com/zhouzirui/mindpeers/client/internal/handler/api"
	middlewarePkg "github.com/zhouzirui/mindpeers/client/internal/middleware"
	"github.com/zhouzirui/mindpeers/client/internal/service/replay"
	"github.com/zhouzirui/mindpeers/client/pkg/utils"
)

// NewRouter 创建替身服务路由。
func NewRouter(svc *replay.Service, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.Logger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	r.Route("/api", func(api chi.Router) {
		apiHandler.New(svc, logger).RegisterRoutes(api)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		utils.RespondError(w, http.StatusNotFound, "not found")
	})

	return r
}
