package health

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/heartchat/backend/pkg/utils"
)

// Pinger checks that the backing store answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Components reports which optional features are wired.
type Components struct {
	AI     bool `json:"ai"`
	Speech bool `json:"speech"`
	OCR    bool `json:"ocr"`
}

// Handler 健康检查
type Handler struct {
	store      Pinger
	components Components
	logger     *zap.Logger
}

// New 创建健康检查处理器
func New(store Pinger, components Components, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, components: components, logger: logger.Named("health")}
}

// RegisterRoutes 注册健康检查路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.handleHealth)
}

type healthResponse struct {
	Status string `json:"status"`
	Components
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	if h.store != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.store.Ping(ctx); err != nil {
			h.logger.Warn("store ping failed", zap.Error(err))
			utils.RespondJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "degraded", Components: h.components})
			return
		}
	}
	utils.RespondJSON(w, http.StatusOK, healthResponse{Status: "ok", Components: h.components})
}
