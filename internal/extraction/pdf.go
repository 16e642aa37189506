package extraction

import (
	"bytes"
	"compress/zlib"
	"io"
	"regexp"
	"strings"
)

// minRunLength is the shortest printable run kept by the fallback scrape.
const minRunLength = 4

// maxInflatedStream caps how much a single compressed stream may expand to.
const maxInflatedStream = 8 << 20

var (
	streamPattern    = regexp.MustCompile(`(?s)stream\r?\n(.*?)\r?\nendstream`)
	showTextPattern  = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)\s*Tj`)
	showArrayPattern = regexp.MustCompile(`\[((?:\\.|[^\\\]])*)\]\s*TJ`)
	literalPattern   = regexp.MustCompile(`\(((?:\\.|[^\\)])*)\)`)
	printablePattern = regexp.MustCompile(`[\x20-\x7E]{4,}`)
)

// PDFText scrapes the text operands of a PDF's content streams. Compressed
// streams are inflated when possible. When no text operators are found it
// falls back to the printable ASCII runs of the raw file.
func PDFText(data []byte) string {
	var lines []string
	for _, content := range contentStreams(data) {
		lines = append(lines, showOperands(content)...)
	}
	if len(lines) > 0 {
		return strings.Join(lines, "\n")
	}
	return strings.Join(printableRuns(data), "\n")
}

// contentStreams returns the raw file plus every stream body that inflates.
func contentStreams(data []byte) [][]byte {
	out := [][]byte{data}
	for _, m := range streamPattern.FindAllSubmatch(data, -1) {
		if inflated, ok := inflate(m[1]); ok {
			out = append(out, inflated)
		}
	}
	return out
}

func inflate(body []byte) ([]byte, bool) {
	r, err := zlib.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, false
	}
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, maxInflatedStream))
	if err != nil && len(out) == 0 {
		return nil, false
	}
	return out, true
}

// showOperands collects the strings passed to Tj and TJ in order.
func showOperands(content []byte) []string {
	type hit struct {
		pos  int
		text string
	}
	var hits []hit

	for _, loc := range showTextPattern.FindAllSubmatchIndex(content, -1) {
		text := unescapeLiteral(content[loc[2]:loc[3]])
		hits = append(hits, hit{loc[0], text})
	}
	for _, loc := range showArrayPattern.FindAllSubmatchIndex(content, -1) {
		var sb strings.Builder
		for _, lit := range literalPattern.FindAllSubmatch(content[loc[2]:loc[3]], -1) {
			sb.WriteString(unescapeLiteral(lit[1]))
		}
		hits = append(hits, hit{loc[0], sb.String()})
	}

	// Restore document order across both operators
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].pos < hits[j-1].pos; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}

	lines := make([]string, 0, len(hits))
	for _, h := range hits {
		if strings.TrimSpace(h.text) != "" {
			lines = append(lines, h.text)
		}
	}
	return lines
}

// unescapeLiteral decodes the backslash escapes of a PDF literal string.
// Octal escapes outside printable ASCII are dropped.
func unescapeLiteral(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		if c != '\\' || i == len(raw)-1 {
			sb.WriteByte(c)
			continue
		}
		i++
		switch e := raw[i]; e {
		case 'n':
			sb.WriteByte('\n')
		case 'r':
			sb.WriteByte('\r')
		case 't':
			sb.WriteByte('\t')
		case 'b', 'f':
		case '(', ')', '\\':
			sb.WriteByte(e)
		case '\r', '\n':
			// line continuation
		default:
			if e < '0' || e > '7' {
				sb.WriteByte(e)
				continue
			}
			v := 0
			n := 0
			for n < 3 && i < len(raw) && raw[i] >= '0' && raw[i] <= '7' {
				v = v*8 + int(raw[i]-'0')
				i++
				n++
			}
			i--
			if v >= 0x20 && v <= 0x7E {
				sb.WriteByte(byte(v))
			}
		}
	}
	return sb.String()
}

func printableRuns(data []byte) []string {
	matches := printablePattern.FindAll(data, -1)
	runs := make([]string, 0, len(matches))
	for _, m := range matches {
		if len(bytes.TrimSpace(m)) >= minRunLength {
			runs = append(runs, string(m))
		}
	}
	return runs
}
