package enrich

import "strings"

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

var positiveWords = []string{
	"great", "good", "happy", "love", "excellent", "wonderful", "glad",
	"отлично", "хорошо", "рад", "счастлив", "люблю", "здорово", "прекрасно",
	"жақсы", "керемет", "қуанышты",
}

var negativeWords = []string{
	"bad", "sad", "angry", "hate", "terrible", "awful", "tired", "worried",
	"плохо", "грустно", "злюсь", "ненавижу", "ужасно", "устал", "тревожно", "боюсь",
	"жаман", "шаршадым", "ашулы",
}

// Sentiment derives a coarse label from fixed emotion-word lists. Ties and
// no-matches are neutral.
func Sentiment(text string) string {
	lowered := strings.ToLower(text)

	var pos, neg int
	for _, w := range positiveWords {
		if strings.Contains(lowered, w) {
			pos++
		}
	}
	for _, w := range negativeWords {
		if strings.Contains(lowered, w) {
			neg++
		}
	}

	switch {
	case pos > neg:
		return SentimentPositive
	case neg > pos:
		return SentimentNegative
	default:
		return SentimentNeutral
	}
}
