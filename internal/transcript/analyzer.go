package transcript

import (
	"strings"
	"unicode/utf8"
)

// Segment is one speaker turn as delivered by the provider.
type Segment struct {
	Speaker string  `json:"speaker"`
	Text    string  `json:"text"`
	Start   float64 `json:"start,omitempty"`
	End     float64 `json:"end,omitempty"`
}

// Result is the derived view of a transcript.
type Result struct {
	Summary           string   `json:"summary"`
	SentimentScore    int      `json:"sentiment_score"`
	DetectedFlags     []string `json:"detected_flags"`
	RecommendedAction string   `json:"recommended_action"`
}

// Sentiment scale.
const (
	SentimentMin     = 1
	SentimentNeutral = 3
	SentimentMax     = 5
)

const (
	EmptySummary = "No conversation content captured."

	ActionEscalate = "Escalate to a human operator within 15 minutes."
	ActionNone     = "No escalation required. Follow up in normal workflow."
)

const concernMaxRunes = 120

var (
	negativeMarkers = []string{
		"angry", "upset", "cancel", "frustrated", "bad", "hate", "worse",
		"pain", "hurt", "scared", "confusing", "complaint", "terrible",
	}
	positiveMarkers = []string{
		"thank", "great", "good", "better", "fine", "happy", "helpful", "appreciate",
	}
)

// Process derives summary, sentiment and keyword flags from a transcript.
// It is pure and safe for concurrent use.
func Process(segments []Segment, keywords []string) Result {
	flags := DetectFlags(segments, keywords)
	return Result{
		Summary:           Summarize(segments),
		SentimentScore:    Sentiment(recipientText(segments)),
		DetectedFlags:     flags,
		RecommendedAction: RecommendedAction(flags),
	}
}

// IsAgentSpeaker reports whether a turn belongs to the calling agent.
// Everything else counts as the recipient.
func IsAgentSpeaker(speaker string) bool {
	switch strings.ToLower(strings.TrimSpace(speaker)) {
	case "agent", "assistant", "bot", "ai":
		return true
	default:
		return false
	}
}

func Summarize(segments []Segment) string {
	if !hasContent(segments) {
		return EmptySummary
	}
	concern := ""
	for _, s := range segments {
		if !IsAgentSpeaker(s.Speaker) && strings.TrimSpace(s.Text) != "" {
			concern = strings.TrimSpace(s.Text)
			break
		}
	}
	if concern == "" {
		return "Agent spoke but the recipient did not respond during the call."
	}
	return "Agent and recipient completed a call. Recipient's main concern: " + truncateRunes(concern, concernMaxRunes)
}

// Sentiment scores recipient text on the 1..5 scale. Each distinct marker
// moves the score one step from neutral.
func Sentiment(text string) int {
	lowered := strings.ToLower(text)
	if strings.TrimSpace(lowered) == "" {
		return SentimentNeutral
	}
	net := 0
	for _, m := range negativeMarkers {
		if strings.Contains(lowered, m) {
			net--
		}
	}
	for _, m := range positiveMarkers {
		if strings.Contains(lowered, m) {
			net++
		}
	}
	score := SentimentNeutral + net
	if score < SentimentMin {
		return SentimentMin
	}
	if score > SentimentMax {
		return SentimentMax
	}
	return score
}

// DetectFlags returns the keywords that occur anywhere in the transcript,
// case-insensitively, in keyword order and without duplicates.
func DetectFlags(segments []Segment, keywords []string) []string {
	flags := []string{}
	if len(keywords) == 0 || len(segments) == 0 {
		return flags
	}
	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		parts = append(parts, s.Text)
	}
	joined := strings.ToLower(strings.Join(parts, " "))

	seen := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k == "" {
			continue
		}
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		if strings.Contains(joined, k) {
			flags = append(flags, strings.TrimSpace(kw))
		}
	}
	return flags
}

func RecommendedAction(flags []string) string {
	if len(flags) == 0 {
		return ActionNone
	}
	return ActionEscalate
}

func recipientText(segments []Segment) string {
	var b strings.Builder
	for _, s := range segments {
		if IsAgentSpeaker(s.Speaker) {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

func hasContent(segments []Segment) bool {
	for _, s := range segments {
		if strings.TrimSpace(s.Text) != "" {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
