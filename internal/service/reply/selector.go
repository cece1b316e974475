package reply

import (
	"context"
	"math/rand/v2"

	"go.uber.org/zap"

	"github.com/zhouzirui/heartchat/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartchat/backend/internal/metrics"
	"github.com/zhouzirui/heartchat/backend/internal/service/ai"
)

// Source records where a reply came from.
type Source string

const (
	SourceCanned    Source = "canned"
	SourceGenerated Source = "generated"
)

// Picker returns an index in [0, n). n is always > 0.
type Picker func(n int) int

// Generator produces free-form replies for messages no canned set covers.
type Generator interface {
	Generate(ctx context.Context, text string) string
}

// Reply is the selected response plus the classification that led to it.
type Reply struct {
	Text    string
	Emotion emotion.Tag
	Source  Source
}

// cannedReplies 为每个可直接回复的情绪类别准备固定回复。
var cannedReplies = map[emotion.Tag][]string{
	emotion.Greeting: {
		"👋 Hey there! How can I make your day better?",
		"😊 Hi! What's up?",
		"🙌 Hello! I'm here to chat. What’s on your mind?",
	},
	emotion.Happy: {
		"😁 That’s amazing! What’s making you so happy?",
		"🎉 Yay! Share your good news!",
	},
	emotion.Sad: {
		"💙 I'm here for you. Want to talk about it?",
		"🤗 Sending a virtual hug your way!",
	},
	emotion.Angry: {
		"😡 That sounds frustrating! Want to vent?",
		"🔥 Take a deep breath! What’s bothering you?",
	},
	emotion.Confused: {
		"🤔 No worries! Let me explain.",
		"😕 I can help clarify things for you.",
	},
}

// CannedReplies returns a copy of the fixed replies for tag, or nil when the
// tag is answered by the generator.
func CannedReplies(tag emotion.Tag) []string {
	set, ok := cannedReplies[tag]
	if !ok {
		return nil
	}
	return append([]string(nil), set...)
}

// Selector chooses between canned replies and the generator.
type Selector struct {
	generator Generator
	pick      Picker
	logger    *zap.Logger
	metrics   *metrics.Collector
}

// Option customises a Selector.
type Option func(*Selector)

// WithPicker replaces the default uniform random picker.
func WithPicker(p Picker) Option {
	return func(s *Selector) {
		if p != nil {
			s.pick = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics counts every selected reply.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Selector) {
		s.metrics = collector
	}
}

// NewSelector builds a selector. generator handles neutral messages and may be nil,
// in which case those messages get ai.UnavailableReply.
func NewSelector(generator Generator, opts ...Option) *Selector {
	s := &Selector{
		generator: generator,
		pick:      rand.IntN,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.Named("reply")
	return s
}

// Select classifies text and returns a canned reply for recognised emotions,
// falling back to the generator otherwise.
func (s *Selector) Select(ctx context.Context, text string) Reply {
	tag := emotion.Classify(text)

	var r Reply
	if set, ok := cannedReplies[tag]; ok {
		r = Reply{Text: set[s.index(len(set))], Emotion: tag, Source: SourceCanned}
	} else {
		r = Reply{Text: ai.UnavailableReply, Emotion: tag, Source: SourceGenerated}
		if s.generator != nil {
			r.Text = s.generator.Generate(ctx, text)
		}
	}

	s.logger.Debug("reply selected",
		zap.String("emotion", string(r.Emotion)),
		zap.String("source", string(r.Source)))
	s.metrics.ReplySent(string(r.Source), string(r.Emotion))
	return r
}

// index guards against pickers that ignore their bound.
func (s *Selector) index(n int) int {
	i := s.pick(n)
	if i < 0 || i >= n {
		return 0
	}
	return i
}
