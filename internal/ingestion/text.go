// Package ingestion validates, moderates and stores audience events.
package ingestion

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	blankLineRun  = regexp.MustCompile(`\n\n\n+`)
)

// CleanText cleans and normalizes text content while preserving structure
func CleanText(content string) string {
	if content == "" {
		return ""
	}
	content = strings.ToValidUTF8(content, "")

	// 1. Normalize line endings (CRLF → LF)
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	// 2. Clean each line
	lines := strings.Split(content, "\n")
	cleanedLines := make([]string, 0, len(lines))
	for _, line := range lines {
		cleanedLines = append(cleanedLines, cleanLine(line))
	}
	result := strings.Join(cleanedLines, "\n")

	// 3. Remove excessive blank lines (max 2 consecutive)
	result = blankLineRun.ReplaceAllString(result, "\n\n")

	return strings.TrimSpace(result)
}

// SingleLine collapses all whitespace, newlines included, into single spaces.
// Used for names and authors.
func SingleLine(content string) string {
	content = strings.ToValidUTF8(content, "")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(content, " "))
}

// cleanLine cleans a single line while preserving structure
func cleanLine(line string) string {
	line = strings.TrimRight(line, " \t")
	if strings.TrimSpace(line) == "" {
		return ""
	}

	trimmed := strings.TrimLeft(line, " \t")
	if strings.HasPrefix(trimmed, "#") {
		return trimmed
	}

	// Bullets keep their indentation; typographic bullets become "- "
	indent := len(line) - len(trimmed)
	if isBulletLine(trimmed) {
		trimmed = normalizeBullet(trimmed)
		return strings.Repeat(" ", indent) + trimmed
	}

	content := whitespaceRun.ReplaceAllString(strings.TrimSpace(line), " ")
	return strings.Repeat(" ", indent) + content
}

// isBulletLine checks if a line is a bullet list item
func isBulletLine(line string) bool {
	return strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") ||
		strings.HasPrefix(line, "• ") || strings.HasPrefix(line, "· ")
}

func normalizeBullet(line string) string {
	r, size := utf8.DecodeRuneInString(line)
	if r == '•' || r == '·' {
		return "-" + line[size:]
	}
	return line
}
