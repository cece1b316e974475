package speech

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	speechmodel "github.com/zhouzirui/heartchat/backend/internal/model/speech"
)

// ErrNoAudio is returned for empty uploads.
var ErrNoAudio = errors.New("no audio data to send")

const (
	// 16kHz, 16bit, mono, 200ms
	audioChunkSize = 6400
	// FullClientRequest 占用序号 1，音频从 2 开始
	firstAudioSequence int32 = 2
	asrSuccessCode           = 20000000
)

// VolcengineASRClient 火山引擎 ASR WebSocket 客户端
type VolcengineASRClient struct {
	cfg    speechmodel.Config
	dialer *websocket.Dialer
	logger *zap.Logger
}

type asrUtterance struct {
	Text      string `json:"text"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Definite  bool   `json:"definite"`
}

type asrServerMessage struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Result   struct {
		Text       string         `json:"text"`
		Utterances []asrUtterance `json:"utterances,omitempty"`
	} `json:"result,omitempty"`
	AudioInfo struct {
		Duration int64 `json:"duration"`
	} `json:"audio_info,omitempty"`
}

// asrSessionRequest 为首包 JSON 参数（按火山引擎文档格式）。
type asrSessionRequest struct {
	User struct {
		UID string `json:"uid,omitempty"`
	} `json:"user,omitempty"`
	Audio struct {
		Language string `json:"language,omitempty"`
		Format   string `json:"format"`
		Codec    string `json:"codec,omitempty"`
		Rate     int    `json:"rate,omitempty"`
		Bits     int    `json:"bits,omitempty"`
		Channel  int    `json:"channel,omitempty"`
	} `json:"audio"`
	Request struct {
		ModelName      string `json:"model_name"`
		EnableITN      bool   `json:"enable_itn,omitempty"`
		EnablePunc     bool   `json:"enable_punc,omitempty"`
		ShowUtterances bool   `json:"show_utterances,omitempty"`
		ResultType     string `json:"result_type,omitempty"`
		EndWindowSize  int    `json:"end_window_size,omitempty"`
	} `json:"request"`
}

type asrOutcome struct {
	resp speechmodel.ASRResponse
	err  error
}

// NewVolcengineASRClient 创建火山引擎 ASR 客户端
func NewVolcengineASRClient(cfg speechmodel.Config, logger *zap.Logger) *VolcengineASRClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = speechmodel.DefaultASREndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VolcengineASRClient{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: 30 * time.Second},
		logger: logger.Named("asr"),
	}
}

// Transcribe streams the whole audio clip and waits for the final transcript.
func (c *VolcengineASRClient) Transcribe(ctx context.Context, req speechmodel.ASRRequest) (speechmodel.ASRResponse, error) {
	appID, token, err := resolveCredentials(c.cfg)
	if err != nil {
		return speechmodel.ASRResponse{}, err
	}
	if req.Audio == nil {
		return speechmodel.ASRResponse{}, ErrNoAudio
	}
	audio, err := io.ReadAll(req.Audio)
	if err != nil {
		return speechmodel.ASRResponse{}, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return speechmodel.ASRResponse{}, ErrNoAudio
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	if c.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()
	}

	resourceID := "volc.bigasr.sauc.duration"
	if c.cfg.ConcurrentMode {
		resourceID = "volc.bigasr.sauc.concurrent"
	}
	header := http.Header{}
	header.Set("X-Api-App-Key", appID)
	header.Set("X-Api-Access-Key", token)
	header.Set("X-Api-Resource-Id", resourceID)
	header.Set("X-Api-Connect-Id", req.SessionID)

	conn, httpResp, err := c.dialer.DialContext(ctx, c.cfg.Endpoint, header)
	if err != nil {
		return speechmodel.ASRResponse{}, fmt.Errorf("failed to connect to ASR WebSocket: %w", err)
	}
	defer conn.Close()
	// unblock the reader when ctx ends
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	logID := httpResp.Header.Get("X-Tt-Logid")
	c.logger.Debug("connected", zap.String("sessionId", req.SessionID), zap.String("logId", logID))

	params, err := json.Marshal(c.sessionRequest(req))
	if err != nil {
		return speechmodel.ASRResponse{}, fmt.Errorf("failed to marshal ASR request: %w", err)
	}
	if err := c.writeFrame(conn, requestFrame(params)); err != nil {
		return speechmodel.ASRResponse{}, fmt.Errorf("failed to send ASR request: %w", err)
	}

	sendCtx, stopSending := context.WithCancel(ctx)
	defer stopSending()

	results := make(chan asrOutcome, 1)
	go func() {
		resp, err := c.receive(conn, req.SessionID)
		resp.LogID = logID
		results <- asrOutcome{resp: resp, err: err}
		stopSending()
	}()

	if err := c.sendAudio(sendCtx, conn, audio); err != nil && sendCtx.Err() == nil {
		// the server may have closed the socket after reporting an error
		select {
		case out := <-results:
			if out.err != nil {
				return speechmodel.ASRResponse{}, out.err
			}
		default:
		}
		return speechmodel.ASRResponse{}, fmt.Errorf("failed to send audio data: %w", err)
	}

	select {
	case out := <-results:
		return out.resp, out.err
	case <-ctx.Done():
		return speechmodel.ASRResponse{}, ctx.Err()
	}
}

func (c *VolcengineASRClient) sessionRequest(req speechmodel.ASRRequest) asrSessionRequest {
	var r asrSessionRequest
	r.User.UID = req.SessionID

	r.Audio.Format = firstNonEmpty(req.Format, c.cfg.Format, "wav")
	r.Audio.Language = firstNonEmpty(req.Language, c.cfg.Language, "en-US")
	r.Audio.Codec = "raw"
	r.Audio.Rate = 16000
	r.Audio.Bits = 16
	r.Audio.Channel = 1

	r.Request.ModelName = "bigmodel"
	r.Request.EnableITN = true
	r.Request.EnablePunc = true
	r.Request.ShowUtterances = true
	r.Request.ResultType = "full"
	r.Request.EndWindowSize = 800
	return r
}

func (c *VolcengineASRClient) writeFrame(conn *websocket.Conn, f frame) error {
	data, err := f.marshal()
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.BinaryMessage, data)
}

func (c *VolcengineASRClient) sendAudio(ctx context.Context, conn *websocket.Conn, audio []byte) error {
	sequence := firstAudioSequence
	for start := 0; start < len(audio); start += audioChunkSize {
		end := min(start+audioChunkSize, len(audio))
		last := end == len(audio)

		if err := c.writeFrame(conn, audioFrame(audio[start:end], sequence, last)); err != nil {
			return fmt.Errorf("failed to send audio chunk %d: %w", sequence, err)
		}
		if last {
			return nil
		}
		sequence++

		if c.cfg.ChunkInterval > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.cfg.ChunkInterval):
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}

func (c *VolcengineASRClient) receive(conn *websocket.Conn, sessionID string) (speechmodel.ASRResponse, error) {
	var (
		text     string
		duration int64
	)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return speechmodel.ASRResponse{}, fmt.Errorf("failed to read ASR response: %w", err)
		}
		f, err := parseFrame(data)
		if err != nil {
			return speechmodel.ASRResponse{}, fmt.Errorf("failed to decode ASR message: %w", err)
		}

		switch f.Type {
		case msgServerError:
			return speechmodel.ASRResponse{}, fmt.Errorf("ASR error %d: %s", f.ErrorCode, string(f.Payload))

		case msgFullServerResponse:
			var msg asrServerMessage
			if err := json.Unmarshal(f.Payload, &msg); err != nil {
				c.logger.Warn("failed to unmarshal response", zap.Error(err))
				continue
			}
			if msg.Code != 0 && msg.Code != asrSuccessCode {
				return speechmodel.ASRResponse{}, fmt.Errorf("ASR API error %d: %s", msg.Code, msg.Message)
			}

			candidate := msg.Result.Text
			if candidate == "" {
				candidate = joinUtterances(msg.Result.Utterances)
			}
			if candidate != "" {
				text = candidate
			}
			if msg.AudioInfo.Duration > 0 {
				duration = msg.AudioInfo.Duration
			}

			if f.last() || msg.Sequence < 0 {
				if text == "" {
					c.logger.Info("empty transcript", zap.String("sessionId", sessionID))
				}
				return speechmodel.ASRResponse{
					SessionID: sessionID,
					Text:      text,
					Duration:  duration,
					CreatedAt: time.Now().UTC(),
				}, nil
			}

		default:
			// acks carry nothing useful
		}
	}
}

func joinUtterances(utterances []asrUtterance) string {
	parts := make([]string, 0, len(utterances))
	for _, u := range utterances {
		if t := strings.TrimSpace(u.Text); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
