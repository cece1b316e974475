package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/zhouzirui/heartchat/backend/internal/handler/auth"
	"github.com/zhouzirui/heartchat/backend/internal/handler/chat"
	"github.com/zhouzirui/heartchat/backend/internal/handler/health"
	"github.com/zhouzirui/heartchat/backend/internal/handler/image"
	"github.com/zhouzirui/heartchat/backend/internal/handler/speech"
	"github.com/zhouzirui/heartchat/backend/internal/metrics"
	middlewarePkg "github.com/zhouzirui/heartchat/backend/internal/middleware"
	authService "github.com/zhouzirui/heartchat/backend/internal/service/auth"
	chatService "github.com/zhouzirui/heartchat/backend/internal/service/chat"
	"github.com/zhouzirui/heartchat/backend/internal/service/ocr"
	speechService "github.com/zhouzirui/heartchat/backend/internal/service/speech"
)

// Deps 路由所需的全部服务
type Deps struct {
	Chat    *chatService.Service
	Auth    *authService.Service
	Speech  *speechService.Service
	OCR     *ocr.Service
	Store   health.Pinger
	Metrics *metrics.Collector
	// AIEnabled 仅用于健康检查输出
	AIEnabled bool

	AllowedOrigins []string
	SecureCookie   bool
	Logger         *zap.Logger
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger(logger))
	r.Use(middlewarePkg.Recoverer(logger))
	r.Use(middlewarePkg.CORS(deps.AllowedOrigins))
	r.Use(middlewarePkg.Sessions(deps.Auth, logger))

	healthHandler := health.New(deps.Store, health.Components{
		AI:     deps.AIEnabled,
		Speech: deps.Speech.Enabled(),
		OCR:    deps.OCR.Enabled(),
	}, logger)

	r.Route("/api", func(api chi.Router) {
		healthHandler.RegisterRoutes(api)
		auth.New(deps.Auth, deps.SecureCookie, logger).RegisterRoutes(api)
		chat.New(deps.Chat, logger).RegisterRoutes(api)
		image.New(deps.OCR, logger).RegisterRoutes(api)
		speech.New(deps.Speech, logger).RegisterRoutes(api)
	})

	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	return r
}
