package analytics

import (
	"encoding/json"
	"strings"
)

// Analytics агрегированная аналитика, доступна только администраторам
type Analytics struct {
	Topics    []string  `json:"topics"`
	Sentiment Sentiment `json:"sentiment"`
	Trends    []string  `json:"trends"`
}

// Sentiment общая тональность отзывов одной строкой ("Positive", "Negative", ...).
// Бэкенд может прислать как строку, так и список строк; список склеивается через ", ".
type Sentiment string

func (s *Sentiment) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*s = Sentiment(single)
		return nil
	}

	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}

	*s = Sentiment(strings.Join(list, ", "))
	return nil
}
