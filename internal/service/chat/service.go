package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/heartchat/backend/internal/model/chat"
	"github.com/zhouzirui/heartchat/backend/internal/service/reply"
)

var (
	ErrValidation      = errors.New("invalid chat request")
	ErrUserIDRequired  = fmt.Errorf("%w: user ID is required", ErrValidation)
	ErrMessageRequired = fmt.Errorf("%w: message cannot be empty", ErrValidation)
	ErrPersistence     = errors.New("failed to record conversation")
)

// ReplySelector picks the response for a message.
type ReplySelector interface {
	Select(ctx context.Context, text string) reply.Reply
}

// ChatRequest is one inbound chat turn. UserID is nil when the caller did not supply one.
type ChatRequest struct {
	UserID  *int64
	Message string
}

// ChatResponse carries the reply exactly as it was recorded.
type ChatResponse struct {
	Response string
	Entry    chat.HistoryEntry
	Reply    reply.Reply
}

// Service runs validate → select → record for every chat turn.
type Service struct {
	selector ReplySelector
	recorder *Recorder
	logger   *zap.Logger
}

// NewService wires the chat pipeline.
func NewService(selector ReplySelector, recorder *Recorder, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{selector: selector, recorder: recorder, logger: logger.Named("chat")}
}

// Reply validates the request, selects a response and records the turn.
// Validation failures wrap ErrValidation and nothing is stored; storage
// failures wrap ErrPersistence.
func (s *Service) Reply(ctx context.Context, req ChatRequest) (ChatResponse, error) {
	if req.UserID == nil {
		return ChatResponse{}, ErrUserIDRequired
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return ChatResponse{}, ErrMessageRequired
	}

	selected := s.selector.Select(ctx, message)

	entry, err := s.recorder.Record(ctx, *req.UserID, message, selected.Text)
	if err != nil {
		return ChatResponse{}, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	s.logger.Info("chat reply",
		zap.Int64("userId", *req.UserID),
		zap.String("emotion", string(selected.Emotion)),
		zap.String("source", string(selected.Source)))

	return ChatResponse{Response: entry.Response, Entry: entry, Reply: selected}, nil
}

// History lists a user's recorded turns.
func (s *Service) History(ctx context.Context, userID int64) ([]chat.HistoryEntry, error) {
	entries, err := s.recorder.History(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return entries, nil
}
