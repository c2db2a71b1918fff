package usecase

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kirillkom/research-assistant/internal/core/domain"
)

const contextSeparator = "\n---\n"

// BuildContextDocument renders ranked results into the block of text the
// grounding prompt embeds. It returns "" for an empty result set.
func BuildContextDocument(results []domain.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	blocks := make([]string, 0, len(results))
	for _, res := range results {
		blocks = append(blocks, formatResultBlock(res))
	}
	return strings.Join(blocks, contextSeparator)
}

func formatResultBlock(res domain.SearchResult) string {
	status := strings.TrimSpace(res.Status)
	if status == "" {
		status = "N/A"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s\n", typeTag(res.Type), res.Title)
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Source: %s\n", res.Source)
	fmt.Fprintf(&b, "Description: %s\n", strings.TrimSpace(res.Description))

	if meta := res.Metadata; !meta.IsEmpty() {
		if meta.Budget != nil {
			currency := meta.Currency
			if currency == "" {
				currency = defaultCurrency
			}
			fmt.Fprintf(&b, "Budget: %s %s\n", formatAmount(*meta.Budget), currency)
		}
		if meta.Website != "" {
			fmt.Fprintf(&b, "Website: %s\n", meta.Website)
		}
		if len(meta.Keywords) > 0 {
			fmt.Fprintf(&b, "Keywords: %s\n", strings.Join(meta.Keywords, ", "))
		}
		if meta.Deadline != nil {
			fmt.Fprintf(&b, "Deadline: %s\n", meta.Deadline.Format("2006-01-02"))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func typeTag(t domain.RecordType) string {
	switch t {
	case domain.RecordProject:
		return "PROJECT"
	case domain.RecordCall:
		return "FUNDING CALL"
	case domain.RecordResearcher:
		return "RESEARCHER"
	default:
		return strings.ToUpper(string(t))
	}
}

// formatAmount renders 1250000 as "1,250,000" and 1250.5 as "1,250.50".
func formatAmount(v float64) string {
	precision := 0
	if v != float64(int64(v)) {
		precision = 2
	}
	raw := strconv.FormatFloat(v, 'f', precision, 64)

	sign := ""
	if strings.HasPrefix(raw, "-") {
		sign, raw = "-", raw[1:]
	}
	intPart, fracPart, hasFrac := strings.Cut(raw, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}

	out := sign + b.String()
	if hasFrac {
		out += "." + fracPart
	}
	return out
}
