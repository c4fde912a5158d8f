package enrich

import (
	"strings"

	"voice-capture-service/internal/models"
)

// actionMarkers open an action-item-like statement.
var actionMarkers = []string{
	"need to", "have to", "remind me", "don't forget", "let's", "remember to",
	"schedule", "call", "buy", "book",
	"надо", "нужно", "не забудь", "не забыть", "напомни", "купить", "позвонить", "записаться",
	"керек", "ұмытпа",
}

// priorityHigh markers escalate an extracted task.
var priorityHigh = []string{
	"urgent", "asap", "immediately", "important",
	"срочно", "обязательно", "важно",
	"шұғыл", "міндетті түрде",
}

// deadlineMarkers are coarse time anchors attached to a task when present.
var deadlineMarkers = []string{
	"today", "tonight", "tomorrow", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
	"next week", "сегодня", "завтра", "вечером", "утром", "понедельник", "вторник", "среда", "четверг", "пятниц",
	"суббот", "воскресень", "на следующей неделе", "бүгін", "ертең",
}

// ExtractTasks pulls action-item-like statements out of a transcript.
// A sentence becomes a task when it contains an action marker; priority and
// deadline are derived from marker words in the same sentence.
func ExtractTasks(text string) []models.ExtractedTask {
	var tasks []models.ExtractedTask
	for _, sentence := range splitSentences(text) {
		lowered := strings.ToLower(sentence)

		matched := false
		for _, marker := range actionMarkers {
			if strings.Contains(lowered, marker) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		task := models.ExtractedTask{
			Text:     strings.TrimSpace(sentence),
			Priority: models.TaskPriorityNormal,
		}
		for _, marker := range priorityHigh {
			if strings.Contains(lowered, marker) {
				task.Priority = models.TaskPriorityHigh
				break
			}
		}
		for _, marker := range deadlineMarkers {
			if strings.Contains(lowered, marker) {
				task.Deadline = marker
				break
			}
		}
		tasks = append(tasks, task)
	}
	return tasks
}

func splitSentences(text string) []string {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?' || r == ';' || r == '\n'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if s := strings.TrimSpace(f); s != "" {
			out = append(out, s)
		}
	}
	return out
}
