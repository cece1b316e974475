package chat

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/heartchat/backend/internal/middleware"
	chatService "github.com/zhouzirui/heartchat/backend/internal/service/chat"
	"github.com/zhouzirui/heartchat/backend/pkg/utils"
)

// Handler 聊天服务的HTTP处理器
type Handler struct {
	chatSvc *chatService.Service
	logger  *zap.Logger
}

// New 创建聊天处理器
func New(chatSvc *chatService.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{chatSvc: chatSvc, logger: logger.Named("chat")}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	// 兼容旧前端的路径
	r.Post("/get", h.handleChat)
	r.With(middleware.RequireSession).Get("/history", h.handleHistory)
}

// message 字段保留原始 JSON，由 decodeText 自行解码以丢弃非法编码
type chatPayload struct {
	Message json.RawMessage `json:"message"`
	Legacy  json.RawMessage `json:"msd"`
	UserID  json.Number     `json:"userId"`
}

// handleChat 生成回复并记录对话
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatPayload
	if err := utils.DecodeJSON(w, r, &payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req := chatService.ChatRequest{}
	if text, ok := decodeText(payload.Message); ok {
		req.Message = text
	} else if text, ok := decodeText(payload.Legacy); ok {
		req.Message = text
	}

	if raw := strings.TrimSpace(payload.UserID.String()); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid user ID")
			return
		}
		req.UserID = &id
	} else if id, ok := middleware.UserID(r.Context()); ok {
		req.UserID = &id
	}

	resp, err := h.chatSvc.Reply(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, chatService.ErrUserIDRequired):
			utils.RespondError(w, http.StatusBadRequest, "User ID not provided")
		case errors.Is(err, chatService.ErrMessageRequired):
			utils.RespondError(w, http.StatusBadRequest, "Invalid input")
		default:
			h.logger.Error("chat request failed", zap.Error(err))
			utils.RespondError(w, http.StatusInternalServerError, "Failed to record conversation.")
		}
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"response": resp.Response})
}

// handleHistory 返回当前登录用户的对话记录
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	entries, err := h.chatSvc.History(r.Context(), userID)
	if err != nil {
		h.logger.Error("history lookup failed", zap.Int64("userId", userID), zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to load history.")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]any{"history": entries})
}
