package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"

	"github.com/zhouzirui/heartchat/backend/internal/logging"
	speechmodel "github.com/zhouzirui/heartchat/backend/internal/model/speech"
	"github.com/zhouzirui/heartchat/backend/internal/service/ai"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server ServerConfig
	Store  StoreConfig
	AI     AIConfig
	Speech SpeechConfig
	OCR    OCRConfig
	Log    logging.Config
}

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	aiCfg, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	ocr, err := loadOCRConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		Store:  StoreConfig{Path: getEnvOrDefault("DB_PATH", "data/heartchat.db")},
		AI:     aiCfg,
		Speech: speech,
		OCR:    ocr,
		Log:    logCfg,
	}, nil
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
	SessionTTL     time.Duration
	CookieSecure   bool
}

// StoreConfig 指定 SQLite 数据库文件位置。
type StoreConfig struct {
	Path string
}

// loadServerConfig 解析服务器监听地址与会话设置。
func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "5000"
	}

	var addr string
	switch {
	case strings.Contains(port, ":"):
		// 允许用户直接传入 ":5000" 或 "127.0.0.1:5000"。
		addr = port
	case strings.Contains(port, " "):
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	default:
		addr = ":" + port
	}

	ttl, err := parseDurationEnv("SESSION_TTL", 7*24*time.Hour)
	if err != nil {
		return ServerConfig{}, err
	}

	secure, err := parseBoolEnv("COOKIE_SECURE", false)
	if err != nil {
		return ServerConfig{}, err
	}

	return ServerConfig{
		Addr:           addr,
		AllowedOrigins: parseListEnv("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		SessionTTL:     ttl,
		CookieSecure:   secure,
	}, nil
}

// AI 提供方
const (
	ProviderArk   = "ark"
	ProviderLocal = "local"
)

// AIConfig 描述大模型相关配置。
type AIConfig struct {
	Provider     string
	APIKey       string
	AccessKey    string
	SecretKey    string
	Model        string
	BaseURL      string
	Region       string
	LocalBaseURL string
	LocalAPIKey  string
	// Temperature 为 0 时按贪心解码显式下发，不回落到服务端默认值
	Temperature  *float64
	TopP         *float64
	MaxTokens    *int
	Timeout      time.Duration
}

// arkReady 表示是否提供了 Ark 必需的密钥。
func (c AIConfig) arkReady() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// Enabled 表示是否配置了可用的生成模型。
func (c AIConfig) Enabled() bool {
	switch c.Provider {
	case ProviderArk:
		return c.arkReady()
	case ProviderLocal:
		return c.LocalBaseURL != ""
	default:
		return false
	}
}

// ResponderOptions 将采样参数转换为生成器选项，未设置的字段保留默认值。
func (c AIConfig) ResponderOptions() ai.Options {
	opts := ai.DefaultOptions()
	if c.MaxTokens != nil {
		opts.MaxTokens = *c.MaxTokens
	}
	if c.Temperature != nil {
		opts.Temperature = float32(*c.Temperature)
	}
	if c.TopP != nil {
		opts.TopP = float32(*c.TopP)
	}
	if c.Timeout > 0 {
		opts.Timeout = c.Timeout
	}
	return opts
}

// NewCompleter 使用配置创建补全器。
func (c AIConfig) NewCompleter(ctx context.Context) (ai.Completer, error) {
	switch c.Provider {
	case ProviderArk:
		if !c.arkReady() {
			return nil, fmt.Errorf("Ark 凭证或模型配置缺失，至少提供 ARK_API_KEY + AI_MODEL 或 AK/SK 组合")
		}
		chatModel, err := ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:   c.BaseURL,
			Region:    c.Region,
			APIKey:    c.APIKey,
			AccessKey: c.AccessKey,
			SecretKey: c.SecretKey,
			Model:     c.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("create ark chat model: %w", err)
		}
		return ai.NewChatCompleter(ctx, chatModel)

	case ProviderLocal:
		if c.LocalBaseURL == "" {
			return nil, fmt.Errorf("LOCAL_MODEL_URL is required for the local provider")
		}
		return ai.NewLocalCompleter(c.LocalBaseURL, c.LocalAPIKey, c.Model), nil

	default:
		return nil, fmt.Errorf("no AI provider configured")
	}
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("AI_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("AI_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("AI_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	timeout, err := parseDurationEnv("AI_TIMEOUT", 180*time.Second)
	if err != nil {
		return AIConfig{}, err
	}

	cfg := AIConfig{
		Provider:     strings.ToLower(strings.TrimSpace(os.Getenv("AI_PROVIDER"))),
		APIKey:       strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:    strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:    strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:        getEnvOrDefault("AI_MODEL", strings.TrimSpace(os.Getenv("Model"))),
		BaseURL:      getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:       getEnvOrDefault("ARK_REGION", "cn-beijing"),
		LocalBaseURL: strings.TrimSpace(os.Getenv("LOCAL_MODEL_URL")),
		LocalAPIKey:  strings.TrimSpace(os.Getenv("LOCAL_MODEL_API_KEY")),
		Temperature:  temperature,
		TopP:         topP,
		MaxTokens:    maxTokens,
		Timeout:      timeout,
	}

	switch cfg.Provider {
	case "":
		// 未显式指定时按可用凭证推断
		if cfg.arkReady() {
			cfg.Provider = ProviderArk
		} else if cfg.LocalBaseURL != "" {
			cfg.Provider = ProviderLocal
		}
	case ProviderArk, ProviderLocal:
	default:
		return AIConfig{}, fmt.Errorf("invalid AI_PROVIDER value %q", cfg.Provider)
	}

	return cfg, nil
}

// SpeechConfig 描述语音识别相关配置
type SpeechConfig struct {
	AppID          string
	AccessToken    string
	Endpoint       string
	ConcurrentMode bool
	Language       string
	Format         string
	ChunkInterval  time.Duration
	Timeout        time.Duration
}

// Enabled 表示是否提供了必需的凭证。
func (c SpeechConfig) Enabled() bool {
	return c.AppID != "" && c.AccessToken != ""
}

// Model 转换为语音服务使用的配置。
func (c SpeechConfig) Model() speechmodel.Config {
	return speechmodel.Config{
		AppID:          c.AppID,
		AccessToken:    c.AccessToken,
		Endpoint:       c.Endpoint,
		ConcurrentMode: c.ConcurrentMode,
		Language:       c.Language,
		Format:         c.Format,
		ChunkInterval:  c.ChunkInterval,
		Timeout:        c.Timeout,
	}
}

func loadSpeechConfig() (SpeechConfig, error) {
	timeout, err := parseDurationEnv("SPEECH_TIMEOUT", 30*time.Second)
	if err != nil {
		return SpeechConfig{}, err
	}

	interval, err := parseDurationEnv("SPEECH_CHUNK_INTERVAL", 200*time.Millisecond)
	if err != nil {
		return SpeechConfig{}, err
	}

	concurrent, err := parseBoolEnv("SPEECH_CONCURRENT_MODE", false)
	if err != nil {
		return SpeechConfig{}, err
	}

	accessToken := strings.TrimSpace(os.Getenv("SPEECH_ACCESS_TOKEN"))
	if accessToken == "" {
		// 兼容旧配置的 API Key
		accessToken = strings.TrimSpace(os.Getenv("SPEECH_API_KEY"))
	}

	return SpeechConfig{
		AppID:          strings.TrimSpace(os.Getenv("SPEECH_APP_ID")),
		AccessToken:    accessToken,
		Endpoint:       getEnvOrDefault("SPEECH_ASR_ENDPOINT", speechmodel.DefaultASREndpoint),
		ConcurrentMode: concurrent,
		Language:       getEnvOrDefault("SPEECH_ASR_LANGUAGE", "en-US"),
		Format:         getEnvOrDefault("SPEECH_ASR_FORMAT", "wav"),
		ChunkInterval:  interval,
		Timeout:        timeout,
	}, nil
}

// OCRConfig 描述图片文字识别配置。
type OCRConfig struct {
	Command  string
	Language string
	Enabled  bool
}

func loadOCRConfig() (OCRConfig, error) {
	enabled, err := parseBoolEnv("OCR_ENABLED", true)
	if err != nil {
		return OCRConfig{}, err
	}
	return OCRConfig{
		Command:  getEnvOrDefault("TESSERACT_CMD", "tesseract"),
		Language: getEnvOrDefault("OCR_LANGUAGE", "eng"),
		Enabled:  enabled,
	}, nil
}

func loadLogConfig() (logging.Config, error) {
	dev, err := parseBoolEnv("LOG_DEVELOPMENT", false)
	if err != nil {
		return logging.Config{}, err
	}
	return logging.Config{
		Level:       getEnvOrDefault("LOG_LEVEL", "info"),
		Development: dev,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseListEnv(key string, defaultValue []string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

// parseDurationEnv 接受 Go duration（"90s"）或纯数字秒数（"90"）。
func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	if seconds, err := strconv.Atoi(raw); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
		}
		return time.Duration(seconds) * time.Second, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
