package emotion

import "strings"

// Tag 表示一条用户消息被归入的情绪类别。
type Tag string

const (
	Neutral  Tag = "neutral"
	Happy    Tag = "happy"
	Sad      Tag = "sad"
	Angry    Tag = "angry"
	Confused Tag = "confused"
	Greeting Tag = "greeting"
)

// Rule binds a tag to the substrings that trigger it.
type Rule struct {
	Tag      Tag
	Keywords []string
}

// rules 按优先级排列：多个类别同时命中时，排在前面的获胜。
var rules = []Rule{
	{Tag: Happy, Keywords: []string{"happy", "great", "awesome", "good", "fantastic", "excited", "love"}},
	{Tag: Sad, Keywords: []string{"sad", "unhappy", "depressed", "bad", "terrible", "upset", "lonely"}},
	{Tag: Angry, Keywords: []string{"angry", "mad", "furious", "annoyed", "frustrated"}},
	{Tag: Confused, Keywords: []string{"confused", "don't know", "not sure", "lost"}},
	{Tag: Greeting, Keywords: []string{"hi", "hello", "hey", "howdy", "morning", "evening"}},
}

// Rules returns a copy of the ordered keyword table.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		out[i] = Rule{Tag: r.Tag, Keywords: append([]string(nil), r.Keywords...)}
	}
	return out
}

// Classify 根据关键词子串匹配给出情绪标签，未命中任何关键词时返回 Neutral。
func Classify(text string) Tag {
	normalized := strings.ToLower(text)
	if normalized == "" {
		return Neutral
	}

	for _, rule := range rules {
		for _, word := range rule.Keywords {
			if strings.Contains(normalized, word) {
				return rule.Tag
			}
		}
	}
	return Neutral
}
