// Package render converts the light markdown the completion model
// tends to emit (tables, emphasis, headings, bullet lists) into simple
// HTML for clients that render rich responses.
package render

import (
	"regexp"
	"strings"
)

var markdownMarkers = []string{"|", "**", "*", "#", "- ", "1. "}

// HasMarkdown reports whether the text carries any marker worth
// converting. HTML line breaks count so already-formatted responses go
// through the HTML path too.
func HasMarkdown(text string) bool {
	for _, marker := range markdownMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return strings.Contains(text, "<br>") || strings.Contains(text, "<br/>")
}

var (
	boldStars       = regexp.MustCompile(`\*\*(.*?)\*\*`)
	boldUnderscores = regexp.MustCompile(`__(.*?)__`)
	italicStar      = regexp.MustCompile(`\*(.*?)\*`)
	italicUnder     = regexp.MustCompile(`_(.*?)_`)
	heading3        = regexp.MustCompile(`(?m)^### (.*)$`)
	heading2        = regexp.MustCompile(`(?m)^## (.*)$`)
	heading1        = regexp.MustCompile(`(?m)^# (.*)$`)
	bulletItem      = regexp.MustCompile(`(?m)^- (.*)$`)
	numberedItem    = regexp.MustCompile(`(?m)^\d+\. (.*)$`)
	listGroup       = regexp.MustCompile(`(?s)(<li>.*?</li>)`)
)

// ToHTML converts markdown-like text into HTML markup. Tables are
// handled first so emphasis inside cells still converts afterwards.
func ToHTML(text string) string {
	if strings.Contains(text, "|") {
		text = convertTables(text)
	}
	return convertInline(text)
}

// convertTables rewrites pipe-delimited rows into an HTML table. Rows
// not wrapped in leading and trailing pipes pass through unchanged, as
// do separator rows (--- or ===).
func convertTables(text string) string {
	lines := strings.Split(text, "\n")
	var out []string
	inTable := false

	for _, line := range lines {
		if strings.Contains(line, "|") && strings.TrimSpace(line) != "" {
			if !inTable {
				out = append(out, `<div class="table-responsive">`)
				out = append(out, `<table class="table table-striped table-bordered">`)
				inTable = true
			}

			clean := strings.TrimSpace(line)
			if strings.HasPrefix(clean, "|") && strings.HasSuffix(clean, "|") {
				if strings.Contains(line, "---") || strings.Contains(line, "===") {
					continue
				}
				cells := strings.Split(clean[1:len(clean)-1], "|")
				var row strings.Builder
				row.WriteString("<tr>")
				for _, cell := range cells {
					row.WriteString(`<td class="table-cell-content">`)
					row.WriteString(strings.TrimSpace(cell))
					row.WriteString("</td>")
				}
				row.WriteString("</tr>")
				out = append(out, row.String())
			}
		} else {
			if inTable {
				out = append(out, "</table>", "</div>")
				inTable = false
			}
			out = append(out, line)
		}
	}

	if inTable {
		out = append(out, "</table>", "</div>")
	}
	return strings.Join(out, "\n")
}

func convertInline(text string) string {
	text = boldStars.ReplaceAllString(text, "<strong>$1</strong>")
	text = boldUnderscores.ReplaceAllString(text, "<strong>$1</strong>")

	text = italicStar.ReplaceAllString(text, "<em>$1</em>")
	text = italicUnder.ReplaceAllString(text, "<em>$1</em>")

	text = heading3.ReplaceAllString(text, "<h3>$1</h3>")
	text = heading2.ReplaceAllString(text, "<h2>$1</h2>")
	text = heading1.ReplaceAllString(text, "<h1>$1</h1>")

	text = bulletItem.ReplaceAllString(text, "<li>$1</li>")
	text = numberedItem.ReplaceAllString(text, "<li>$1</li>")

	text = listGroup.ReplaceAllString(text, "<ul>$1</ul>")

	text = strings.ReplaceAll(text, "\n", "<br>")
	return text
}
