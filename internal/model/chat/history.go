package chat

import "time"

// HistoryEntry 是一轮已持久化的对话：用户消息与最终回复。
type HistoryEntry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Message   string    `json:"message"`
	Response  string    `json:"response"`
	CreatedAt time.Time `json:"createdAt"`
}
