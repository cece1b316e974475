package speech

import (
	"bytes"
	"context"
	"errors"

	"go.uber.org/zap"

	speechmodel "github.com/zhouzirui/heartchat/backend/internal/model/speech"
)

// ErrDisabled 表示未配置语音识别凭证。
var ErrDisabled = errors.New("speech recognition is disabled")

// Transcriber converts a recorded clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, req speechmodel.ASRRequest) (speechmodel.ASRResponse, error)
}

// Service 语音服务核心业务逻辑
type Service struct {
	transcriber Transcriber
	logger      *zap.Logger
}

// NewService 根据配置创建语音服务；凭证缺失时服务处于禁用状态。
func NewService(cfg speechmodel.Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	var t Transcriber
	if cfg.Enabled() {
		t = NewVolcengineASRClient(cfg, logger)
	}
	return NewServiceWithTranscriber(t, logger)
}

// NewServiceWithTranscriber wires an explicit transcriber; nil disables the service.
func NewServiceWithTranscriber(t Transcriber, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{transcriber: t, logger: logger.Named("speech")}
}

// Enabled reports whether transcription is available.
func (s *Service) Enabled() bool {
	return s != nil && s.transcriber != nil
}

// TranscribeBuffer 语音转文字（使用字节数组）
func (s *Service) TranscribeBuffer(ctx context.Context, sessionID string, audio []byte, format, language string) (speechmodel.ASRResponse, error) {
	if !s.Enabled() {
		return speechmodel.ASRResponse{}, ErrDisabled
	}
	if len(audio) == 0 {
		return speechmodel.ASRResponse{}, ErrNoAudio
	}

	resp, err := s.transcriber.Transcribe(ctx, speechmodel.ASRRequest{
		SessionID: sessionID,
		Audio:     bytes.NewReader(audio),
		Format:    format,
		Language:  language,
	})
	if err != nil {
		s.logger.Error("transcription failed", zap.String("sessionId", sessionID), zap.Error(err))
		return speechmodel.ASRResponse{}, err
	}
	s.logger.Info("transcription finished",
		zap.String("sessionId", resp.SessionID),
		zap.Int("chars", len(resp.Text)),
		zap.Int64("durationMs", resp.Duration))
	return resp, nil
}
