package auth

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/heartchat/backend/internal/middleware"
	authService "github.com/zhouzirui/heartchat/backend/internal/service/auth"
	"github.com/zhouzirui/heartchat/backend/pkg/utils"
)

// Handler 账号注册、登录与登出
type Handler struct {
	authSvc      *authService.Service
	secureCookie bool
	logger       *zap.Logger
}

// New 创建认证处理器；secureCookie 控制会话 Cookie 的 Secure 标记。
func New(authSvc *authService.Service, secureCookie bool, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{authSvc: authSvc, secureCookie: secureCookie, logger: logger.Named("auth")}
}

// RegisterRoutes 注册认证相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/signup", h.handleSignup)
	r.Post("/login", h.handleLogin)
	r.Get("/logout", h.handleLogout)
	r.Post("/logout", h.handleLogout)
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, sess, err := h.authSvc.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authService.ErrCredentialsRequired):
			utils.RespondError(w, http.StatusBadRequest, "Email and password required.")
		case errors.Is(err, authService.ErrEmailTaken):
			utils.RespondError(w, http.StatusConflict, "Email already registered.")
		default:
			h.logger.Error("signup failed", zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, "Server error during signup.")
		}
		return
	}

	middleware.SetSessionCookie(w, sess.Token, sess.ExpiresAt, h.secureCookie)
	utils.RespondJSON(w, http.StatusCreated, map[string]any{"success": true, "userId": u.ID})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := utils.DecodeJSON(w, r, &req); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	u, sess, err := h.authSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, authService.ErrCredentialsRequired), errors.Is(err, authService.ErrInvalidCredentials):
			utils.RespondError(w, http.StatusUnauthorized, "Invalid credentials.")
		default:
			h.logger.Error("login failed", zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, "Server error during login.")
		}
		return
	}

	middleware.SetSessionCookie(w, sess.Token, sess.ExpiresAt, h.secureCookie)
	utils.RespondJSON(w, http.StatusOK, map[string]any{"success": true, "userId": u.ID})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.authSvc.Logout(r.Context(), middleware.SessionToken(r)); err != nil {
		// 会话删除失败不影响客户端登出
		h.logger.Warn("logout failed", zap.Error(err))
	}
	middleware.ClearSessionCookie(w, h.secureCookie)
	utils.RespondJSON(w, http.StatusOK, map[string]bool{"success": true})
}
