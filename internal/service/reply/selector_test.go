package reply

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhouzirui/heartchat/backend/internal/analysis/emotion"
	"github.com/zhouzirui/heartchat/backend/internal/metrics"
	"github.com/zhouzirui/heartchat/backend/internal/service/ai"
)

type stubGenerator struct {
	reply string
	calls []string
}

func (g *stubGenerator) Generate(_ context.Context, text string) string {
	g.calls = append(g.calls, text)
	return g.reply
}

func TestSelectGreetingComesFromGreetingSet(t *testing.T) {
	gen := &stubGenerator{reply: "generated"}
	s := NewSelector(gen)
	set := CannedReplies(emotion.Greeting)
	require.GreaterOrEqual(t, len(set), 3)

	for _, msg := range []string{"hello", "Hey you", "evening all", "HI"} {
		r := s.Select(context.Background(), msg)
		assert.Contains(t, set, r.Text, "message %q", msg)
		assert.Equal(t, emotion.Greeting, r.Emotion)
		assert.Equal(t, SourceCanned, r.Source)
	}
	assert.Empty(t, gen.calls)
}

func TestSelectEmotionSets(t *testing.T) {
	cases := map[string]emotion.Tag{
		"I feel great":          emotion.Happy,
		"so lonely tonight":     emotion.Sad,
		"this makes me furious": emotion.Angry,
		"I'm not sure":          emotion.Confused,
	}
	gen := &stubGenerator{}
	s := NewSelector(gen)

	for msg, tag := range cases {
		r := s.Select(context.Background(), msg)
		assert.Equal(t, tag, r.Emotion, msg)
		assert.Contains(t, CannedReplies(tag), r.Text, msg)
	}
	assert.Empty(t, gen.calls)
}

func TestSelectNeutralDelegatesToGenerator(t *testing.T) {
	gen := &stubGenerator{reply: "Paris is the capital of France."}
	collector := metrics.New()
	s := NewSelector(gen, WithMetrics(collector))

	r := s.Select(context.Background(), "what is the capital of france")

	assert.Equal(t, "Paris is the capital of France.", r.Text)
	assert.Equal(t, emotion.Neutral, r.Emotion)
	assert.Equal(t, SourceGenerated, r.Source)
	assert.Equal(t, []string{"what is the capital of france"}, gen.calls)
	assert.Equal(t, 1.0, testutil.ToFloat64(collector.RepliesTotal.WithLabelValues("generated", "neutral")))
}

func TestSelectUsesInjectedPicker(t *testing.T) {
	var bounds []int
	s := NewSelector(nil, WithPicker(func(n int) int {
		bounds = append(bounds, n)
		return n - 1
	}))

	r := s.Select(context.Background(), "hello")

	set := CannedReplies(emotion.Greeting)
	assert.Equal(t, set[len(set)-1], r.Text)
	assert.Equal(t, []int{len(set)}, bounds)
}

func TestSelectOutOfRangePickerFallsBackToFirst(t *testing.T) {
	s := NewSelector(nil, WithPicker(func(n int) int { return n + 10 }))

	r := s.Select(context.Background(), "I am so happy")
	assert.Equal(t, CannedReplies(emotion.Happy)[0], r.Text)
}

func TestSelectNeutralWithoutGenerator(t *testing.T) {
	r := NewSelector(nil).Select(context.Background(), "tell me about go")
	assert.Equal(t, SourceGenerated, r.Source)
	assert.Equal(t, ai.UnavailableReply, r.Text)
}

func TestCannedRepliesReturnsCopy(t *testing.T) {
	set := CannedReplies(emotion.Sad)
	set[0] = "mutated"
	assert.NotEqual(t, "mutated", CannedReplies(emotion.Sad)[0])
	assert.Nil(t, CannedReplies(emotion.Neutral))
}
