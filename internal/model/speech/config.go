package speech

import "time"

// DefaultASREndpoint 为火山引擎大模型流式输入识别端点。
const DefaultASREndpoint = "wss://openspeech.bytedance.com/api/v3/sauc/bigmodel_nostream"

// Config 语音识别配置
type Config struct {
	AppID       string
	AccessToken string
	// Endpoint 可覆盖，便于接入代理或本地测试服务。
	Endpoint       string
	ConcurrentMode bool // ASR 并发版（false 为小时版）
	Language       string
	Format         string
	// ChunkInterval paces audio packets like a live microphone. Zero sends them back to back.
	ChunkInterval time.Duration
	Timeout       time.Duration
}

// Enabled 表示是否具备调用语音识别所需的凭证。
func (c Config) Enabled() bool {
	return c.AppID != "" && c.AccessToken != ""
}
