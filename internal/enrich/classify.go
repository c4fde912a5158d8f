// Package enrich derives structured data from accepted transcripts, off the
// response path.
package enrich

import (
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultDomainTable maps topical domains to trigger keywords. The table is
// data, not control flow, so a configuration override (or a future ML
// classifier) can replace it without touching the pipeline.
var defaultDomainTable = map[string][]string{
	"work":      {"meet", "deadline", "project", "client", "report", "работа", "встреч", "проект", "отчет", "жұмыс", "жиналыс"},
	"family":    {"mom", "dad", "kids", "family", "мама", "папа", "дети", "семья", "отбасы", "бала"},
	"health":    {"doctor", "pill", "clinic", "health", "врач", "таблетк", "клиника", "здоровье", "дәрігер"},
	"finance":   {"bank", "pay", "money", "invoice", "банк", "оплат", "деньги", "счет", "ақша", "төлем"},
	"shopping":  {"buy", "shop", "order", "купить", "магазин", "заказ", "сатып алу"},
	"travel":    {"flight", "ticket", "hotel", "trip", "рейс", "билет", "отель", "поездка", "сапар"},
	"education": {"course", "exam", "study", "lesson", "курс", "экзамен", "учеба", "урок", "сабақ", "емтихан"},
	"home":      {"repair", "clean", "grocery", "ремонт", "уборка", "продукты", "үй"},
}

// Classifier assigns topical domains by keyword lookup.
type Classifier struct {
	table map[string][]string
}

// NewClassifier builds a classifier from the default table, optionally
// replaced by a YAML file mapping domain names to keyword lists.
func NewClassifier(overridePath string) (*Classifier, error) {
	table := defaultDomainTable
	if overridePath != "" {
		data, err := os.ReadFile(overridePath)
		if err != nil {
			return nil, err
		}
		loaded := make(map[string][]string)
		if err := yaml.Unmarshal(data, &loaded); err != nil {
			return nil, err
		}
		if len(loaded) > 0 {
			table = loaded
		}
	}
	return &Classifier{table: table}, nil
}

// Classify returns the sorted set of domains whose keywords occur in text.
func (c *Classifier) Classify(text string) []string {
	lowered := strings.ToLower(text)

	var domains []string
	for domain, keywords := range c.table {
		for _, kw := range keywords {
			if strings.Contains(lowered, kw) {
				domains = append(domains, domain)
				break
			}
		}
	}
	sort.Strings(domains)
	return domains
}
