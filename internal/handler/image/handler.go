package image

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/zhouzirui/heartchat/backend/internal/service/ocr"
	"github.com/zhouzirui/heartchat/backend/pkg/utils"
)

const maxImageUpload = 16 << 20

// Reader 抽象 OCR 业务
type Reader interface {
	Enabled() bool
	Read(ctx context.Context, image io.Reader) (string, error)
}

// Handler 图片文字识别的HTTP处理器
type Handler struct {
	ocrSvc Reader
	logger *zap.Logger
}

// New 创建图片处理器
func New(ocrSvc Reader, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{ocrSvc: ocrSvc, logger: logger.Named("image")}
}

// RegisterRoutes 注册图片相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/image", h.handleImage)
}

func (h *Handler) handleImage(w http.ResponseWriter, r *http.Request) {
	if h.ocrSvc == nil || !h.ocrSvc.Enabled() {
		utils.RespondError(w, http.StatusServiceUnavailable, "image recognition unavailable")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxImageUpload)
	if err := r.ParseMultipartForm(maxImageUpload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "No image file uploaded")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		utils.RespondError(w, http.StatusBadRequest, "No image file uploaded")
		return
	}
	defer file.Close()

	text, err := h.ocrSvc.Read(r.Context(), file)
	if err != nil {
		if errors.Is(err, ocr.ErrDisabled) {
			utils.RespondError(w, http.StatusServiceUnavailable, "image recognition unavailable")
			return
		}
		h.logger.Error("image processing failed", zap.Error(err))
		utils.RespondError(w, http.StatusInternalServerError, "Failed to process image.")
		return
	}

	utils.RespondJSON(w, http.StatusOK, map[string]string{"text": text})
}
