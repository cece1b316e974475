package speech

import "io"

// ASRRequest 语音识别请求
type ASRRequest struct {
	SessionID string    `json:"sessionId"`
	Audio     io.Reader `json:"-"`
	Format    string    `json:"format"`   // wav, pcm, mp3, ogg
	Language  string    `json:"language"` // en-US, zh-CN, etc.
}
