package scanning

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// dueDateLayouts are tried in order; Brazilian day-first layouts come before
// anything ambiguous
var dueDateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2006/01/02",
}

// parseCheckJSON parses the JSON answer of a model into CheckData
func parseCheckJSON(text string) (*CheckData, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}
	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}
	text = text[startIdx : endIdx+1]

	var data CheckData
	if err := json.Unmarshal([]byte(text), &data); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	if data.Amount.IsNegative() {
		return nil, fmt.Errorf("negative check amount: %s", data.Amount)
	}
	data.Amount = data.Amount.Round(2)

	data.Bank = strings.TrimSpace(data.Bank)
	data.Branch = strings.TrimSpace(data.Branch)
	data.Number = digitsOnly(data.Number)
	data.ClientName = strings.TrimSpace(data.ClientName)
	data.DueDate = normalizeDueDate(data.DueDate)

	return &data, nil
}

// normalizeDueDate returns an ISO date, or empty when the date is missing or
// unreadable so the check is treated as a sight check
func normalizeDueDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	for _, layout := range dueDateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d.Format("2006-01-02")
		}
	}
	return ""
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}
