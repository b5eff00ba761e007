// SPDX-License-Identifier: MIT

package analysis

import (
	"strings"
)

// ParseQuestions recovers an ordered question list from free-form model
// output. It accepts numbered lists, bullet lists, "Q:" prefixes, and bare
// question lines, and drops preamble like "Here are your questions:".
func ParseQuestions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var question string
		switch {
		case line[0] >= '0' && line[0] <= '9' && len(line) > 2:
			if _, after, found := strings.Cut(line, "."); found {
				question = strings.TrimSpace(after)
			} else {
				question = line
			}
		case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "• ") || strings.HasPrefix(line, "* "):
			question = strings.TrimSpace(strings.TrimLeft(line, "-•* "))
		case strings.HasPrefix(line, "Q:") || strings.HasPrefix(line, "Question:"):
			if _, after, found := strings.Cut(line, ":"); found {
				question = strings.TrimSpace(after)
			}
		case len(line) > 15 && strings.Contains(line, "?"):
			question = line
		}
		if question == "" {
			continue
		}

		question = strings.Trim(question, ` -"`)
		question = strings.TrimLeft(question, "0123456789.-•* ")
		question = strings.TrimSpace(question)

		if len(question) <= 10 || !strings.Contains(question, "?") {
			continue
		}
		if hasPreamblePrefix(question) {
			continue
		}
		out = append(out, question)
	}
	return out
}

func hasPreamblePrefix(question string) bool {
	lower := strings.ToLower(question)
	for _, prefix := range []string{"here", "below", "above", "note"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}
