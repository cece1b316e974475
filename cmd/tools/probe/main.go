package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/zhouzirui/heartchat/backend/internal/config"
	"github.com/zhouzirui/heartchat/backend/internal/logging"
	"github.com/zhouzirui/heartchat/backend/internal/service/ai"
	"github.com/zhouzirui/heartchat/backend/internal/service/reply"
	"github.com/zhouzirui/heartchat/backend/internal/service/speech"
)

func main() {
	mode := flag.String("mode", "", "测试模式: reply 或 asr")
	text := flag.String("text", "", "reply 模式的输入消息")
	audioPath := flag.String("audio", "", "ASR 输入音频文件路径")
	format := flag.String("format", "", "ASR 输入音频格式，默认按扩展名推断")
	language := flag.String("lang", "", "语言代码，默认使用配置中的语言")
	session := flag.String("session", "", "自定义 sessionID，留空则自动生成")
	timeout := flag.Duration("timeout", 3*time.Minute, "请求超时时间")
	flag.Parse()

	logger, err := logging.New(logging.Config{Level: "debug", Development: true})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if err := godotenv.Load(); err != nil {
		logger.Warn("无法加载 .env，改用系统环境变量", zap.Error(err))
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("配置加载失败", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	switch *mode {
	case "reply":
		runReply(ctx, logger, cfg, *text)
	case "asr":
		sessionID := *session
		if sessionID == "" {
			sessionID = fmt.Sprintf("manual-%d", time.Now().UnixNano())
		}
		runASR(ctx, logger, cfg, sessionID, *audioPath, *format, *language)
	default:
		flag.Usage()
		logger.Fatal("请通过 -mode=reply 或 -mode=asr 指定测试模式")
	}
}

// runReply 走一遍完整的回复选择流程，不写入历史记录。
func runReply(ctx context.Context, logger *zap.Logger, cfg *config.Config, text string) {
	if strings.TrimSpace(text) == "" {
		logger.Fatal("reply 模式需要通过 -text 提供输入消息")
	}

	var completer ai.Completer
	if cfg.AI.Enabled() {
		c, err := cfg.AI.NewCompleter(ctx)
		if err != nil {
			logger.Fatal("模型初始化失败", zap.Error(err))
		}
		completer = c
	} else {
		logger.Warn("AI 模型未配置，中性消息将得到不可用提示")
	}

	responder := ai.NewResponder(completer, cfg.AI.ResponderOptions(), logger, nil)
	selector := reply.NewSelector(responder, reply.WithLogger(logger))

	start := time.Now()
	out := selector.Select(ctx, text)
	logger.Info("回复生成完成",
		zap.String("emotion", string(out.Emotion)),
		zap.String("source", string(out.Source)),
		zap.Duration("elapsed", time.Since(start)))
	fmt.Println(out.Text)
}

func runASR(ctx context.Context, logger *zap.Logger, cfg *config.Config, sessionID, audioPath, format, language string) {
	if !cfg.Speech.Enabled() {
		logger.Fatal("语音服务未启用，请先在环境变量中配置 SPEECH_*")
	}
	if audioPath == "" {
		logger.Fatal("ASR 模式需要通过 -audio 指定音频文件路径")
	}

	audio, err := os.ReadFile(audioPath)
	if err != nil {
		logger.Fatal("读取音频文件失败", zap.Error(err))
	}

	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(audioPath)), ".")
	}

	svc := speech.NewService(cfg.Speech.Model(), logger)
	logger.Info("开始进行 ASR 测试",
		zap.String("session", sessionID), zap.String("format", format), zap.String("language", language))

	resp, err := svc.TranscribeBuffer(ctx, sessionID, audio, format, language)
	if err != nil {
		logger.Fatal("ASR 调用失败", zap.Error(err))
	}

	logger.Info("ASR 识别成功", zap.Int64("durationMs", resp.Duration), zap.String("logId", resp.LogID))
	fmt.Println(resp.Text)
}
