package ai

import (
	"fmt"
	"strings"
)

// PromptTemplate defines the persona and rules sent as the system turn
type PromptTemplate struct {
	Persona string
	Rules   []string
}

var (
	// standardPrompt is used for the first attempt.
	standardPrompt = PromptTemplate{
		Persona: "You are a friendly, emotionally aware AI assistant. Respond with a warm, engaging, and human-like tone.",
		Rules: []string{
			"Add emotions and enthusiasm to your responses, using emojis when appropriate.",
		},
	}

	// detailedPrompt asks for a complete answer after a truncated first attempt.
	detailedPrompt = PromptTemplate{
		Persona: "You are an emotionally aware AI chatbot. Make responses detailed, engaging, and human-like.",
		Rules: []string{
			"Ensure a full, thoughtful response that does not stop mid-sentence.",
		},
	}
)

// stopMarkers keep the model from writing the next dialogue turn itself.
var stopMarkers = []string{"\n\n", "User:"}

// SystemPrompt renders the persona followed by its rules
func (t PromptTemplate) SystemPrompt() string {
	if len(t.Rules) == 0 {
		return t.Persona
	}
	return t.Persona + "\n" + strings.Join(t.Rules, "\n")
}

// renderTranscript flattens a request into the single-string prompt raw completion endpoints expect.
func renderTranscript(req CompletionRequest) string {
	return fmt.Sprintf("%s\n---\nUser: %s\nAI:", req.System, req.User)
}
