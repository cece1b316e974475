package speech

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	speechmodel "github.com/zhouzirui/heartchat/backend/internal/model/speech"
	speechsvc "github.com/zhouzirui/heartchat/backend/internal/service/speech"
	"github.com/zhouzirui/heartchat/backend/pkg/utils"
)

const maxAudioUpload = 32 << 20

// SpeechService 抽象语音业务，便于测试与替换实现
type SpeechService interface {
	Enabled() bool
	TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format, language string) (speechmodel.ASRResponse, error)
}

// Handler 语音服务的HTTP处理器
type Handler struct {
	speechSvc SpeechService
	logger    *zap.Logger
}

// New 创建语音处理器
func New(speechSvc SpeechService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{speechSvc: speechSvc, logger: logger.Named("speech")}
}

// RegisterRoutes 注册语音相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/speech", func(speechRouter chi.Router) {
		speechRouter.Post("/transcribe", h.handleTranscribe)
		speechRouter.Post("/transcribe/{sessionID}", h.handleTranscribeWithSession)
	})
}

// handleTranscribe 处理语音转文本请求
func (h *Handler) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	h.processTranscribe(w, r, "")
}

// handleTranscribeWithSession 处理带会话ID的语音转文本请求
func (h *Handler) handleTranscribeWithSession(w http.ResponseWriter, r *http.Request) {
	h.processTranscribe(w, r, chi.URLParam(r, "sessionID"))
}

func (h *Handler) processTranscribe(w http.ResponseWriter, r *http.Request, overrideSessionID string) {
	if h.speechSvc == nil || !h.speechSvc.Enabled() {
		utils.RespondError(w, http.StatusServiceUnavailable, "speech recognition unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUpload)
	if err := r.ParseMultipartForm(maxAudioUpload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("audio")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "failed to read audio file")
		return
	}

	sessionID := overrideSessionID
	if sessionID == "" {
		sessionID = r.FormValue("sessionId")
	}
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	format := r.FormValue("format")
	if format == "" {
		format = inferAudioFormat(header.Filename)
	}

	resp, err := h.speechSvc.TranscribeBuffer(r.Context(), sessionID, audio, format, r.FormValue("language"))
	if err != nil {
		if errors.Is(err, speechsvc.ErrNoAudio) {
			utils.RespondError(w, http.StatusBadRequest, "audio file is empty")
			return
		}
		h.logger.Error("ASR error", zap.String("sessionId", sessionID), zap.Error(err))
		utils.RespondError(w, http.StatusBadGateway, "speech recognition failed")
		return
	}

	utils.RespondJSON(w, http.StatusOK, resp)
}

// inferAudioFormat 从文件名推断音频格式
func inferAudioFormat(filename string) string {
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".mp3", ".ogg", ".pcm":
		return strings.TrimPrefix(ext, ".")
	case ".raw":
		return "pcm"
	default:
		return "wav"
	}
}
