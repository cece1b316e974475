package chat

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/heartchat/backend/internal/metrics"
	"github.com/zhouzirui/heartchat/backend/internal/model/chat"
)

// HistoryStore is the append-only persistence the recorder writes through.
type HistoryStore interface {
	AppendHistory(ctx context.Context, userID int64, message, response string) (chat.HistoryEntry, error)
	ListHistory(ctx context.Context, userID int64) ([]chat.HistoryEntry, error)
}

// Recorder persists conversation turns.
type Recorder struct {
	store   HistoryStore
	logger  *zap.Logger
	metrics *metrics.Collector
}

// NewRecorder wires a recorder to its store.
func NewRecorder(store HistoryStore, logger *zap.Logger, collector *metrics.Collector) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{store: store, logger: logger.Named("recorder"), metrics: collector}
}

// Record drops invalid UTF-8 from both texts and appends the turn.
// The returned entry holds exactly what was stored.
func (r *Recorder) Record(ctx context.Context, userID int64, message, response string) (chat.HistoryEntry, error) {
	entry, err := r.store.AppendHistory(ctx, userID, Sanitize(message), Sanitize(response))
	r.metrics.HistoryWritten(err == nil)
	if err != nil {
		r.logger.Error("failed to record history", zap.Int64("userId", userID), zap.Error(err))
		return chat.HistoryEntry{}, err
	}
	return entry, nil
}

// History returns the stored turns of a user, oldest first.
func (r *Recorder) History(ctx context.Context, userID int64) ([]chat.HistoryEntry, error) {
	return r.store.ListHistory(ctx, userID)
}

// Sanitize removes byte sequences that are not valid UTF-8.
func Sanitize(s string) string {
	return strings.ToValidUTF8(s, "")
}
