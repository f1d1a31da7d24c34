// Package format normalizes raw model output into presentable reply text.
//
// The formatter is a line-oriented state machine: input is segmented into
// table runs and prose runs; tables pass through untouched while prose is
// normalized (numbered items, department headers, blank-line collapsing).
// Formatting is total and approximately idempotent.
package format

import (
	"regexp"
	"strings"
)

// emptyGuidance is returned when there is nothing to format.
const emptyGuidance = "I'm sorry, I don't have an answer for that. " +
	"You can ask me about hospital services, departments, visiting hours, or booking an appointment."

var (
	numberedItemRe = regexp.MustCompile(`^\s*(\d+)[.)]\s*(.*)$`)
	bareNumberRe   = regexp.MustCompile(`^\s*(\d+)\s*$`)
	separatorRe    = regexp.MustCompile(`^[\s|:+=-]+$`)
)

// Format cleans the raw reply text. Empty input yields a guidance string.
func Format(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return emptyGuidance
	}

	var out []string
	for _, seg := range segment(strings.Split(raw, "\n")) {
		var lines []string
		if seg.table {
			// Table runs pass through byte for byte, minus the blank
			// lines around them.
			lines = trimBlankEdges(seg.lines)
		} else {
			lines = normalizeProse(seg.lines)
		}
		if len(lines) == 0 {
			continue
		}
		if len(out) > 0 {
			out = append(out, "")
		}
		out = append(out, lines...)
	}

	result := strings.Join(out, "\n")
	if strings.TrimSpace(result) == "" {
		return emptyGuidance
	}
	return result
}

type run struct {
	table bool
	lines []string
}

// segment groups consecutive lines into table and prose runs.
func segment(lines []string) []run {
	var runs []run
	for _, line := range lines {
		table := isTableLine(line)
		if len(runs) == 0 || runs[len(runs)-1].table != table {
			runs = append(runs, run{table: table})
		}
		runs[len(runs)-1].lines = append(runs[len(runs)-1].lines, line)
	}
	return runs
}

// isTableLine reports whether the line belongs to a table run: it contains a
// pipe and is either a separator row or has at least two pipes.
func isTableLine(line string) bool {
	if !strings.Contains(line, "|") {
		return false
	}
	if strings.Count(line, "|") >= 2 {
		return true
	}
	return separatorRe.MatchString(line) && strings.ContainsAny(line, "-=")
}

func trimBlankEdges(lines []string) []string {
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	return lines[start:end]
}

// normalizeProse runs the prose state machine: numbered items are normalized,
// standalone numbers become pending markers consumed by the next content
// line, department mentions are promoted to bold headers, and blank-line runs
// collapse to one.
func normalizeProse(lines []string) []string {
	var (
		out           []string
		pendingNumber string
		lastBlank     bool
	)

	flushPending := func() {
		if pendingNumber != "" {
			out = append(out, pendingNumber+".")
			pendingNumber = ""
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			if !lastBlank && len(out) > 0 {
				out = append(out, "")
				lastBlank = true
			}
			continue
		}
		lastBlank = false

		if m := bareNumberRe.FindStringSubmatch(line); m != nil {
			flushPending()
			pendingNumber = m[1]
			continue
		}

		if m := numberedItemRe.FindStringSubmatch(line); m != nil {
			flushPending()
			out = append(out, normalizeItem(m[1], m[2]))
			continue
		}

		if pendingNumber != "" {
			out = append(out, normalizeItem(pendingNumber, trimmed))
			pendingNumber = ""
			continue
		}

		if promoted, ok := promoteDepartment(trimmed); ok {
			out = append(out, promoted...)
			continue
		}

		out = append(out, trimmed)
	}
	flushPending()

	// A trailing blank adds nothing between segments.
	return trimBlankEdges(out)
}

// normalizeItem renders a numbered list item as "N. content" with internal
// whitespace collapsed and trailing periods dropped.
func normalizeItem(number, content string) string {
	content = strings.Join(strings.Fields(content), " ")
	content = strings.TrimRight(content, ".")
	if content == "" {
		return number + "."
	}
	return number + ". " + content
}

// promoteDepartment turns a line mentioning a department into a bold header
// with the remainder as body text. Lines already bold are left alone so a
// second pass changes nothing.
func promoteDepartment(line string) ([]string, bool) {
	if strings.HasPrefix(line, "**") {
		return nil, false
	}
	if !strings.Contains(strings.ToLower(line), "department") {
		return nil, false
	}

	header, body, found := strings.Cut(line, ":")
	header = strings.TrimSpace(header)
	if !found || strings.TrimSpace(body) == "" {
		return []string{"**" + header + "**"}, true
	}
	return []string{"**" + header + "**", strings.TrimSpace(body)}, true
}
