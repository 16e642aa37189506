package types

import "fmt"

// ClearKind selects which live data a host clear action removes.
type ClearKind string

// Clear kinds.
const (
	ClearRatings   ClearKind = "ratings"
	ClearReactions ClearKind = "reactions"
	ClearQuestions ClearKind = "questions"
	ClearChat      ClearKind = "chat"
	ClearAll       ClearKind = "all"
)

// ParseClearKind validates a clear kind taken from a request path.
func ParseClearKind(s string) (ClearKind, error) {
	switch k := ClearKind(s); k {
	case ClearRatings, ClearReactions, ClearQuestions, ClearChat, ClearAll:
		return k, nil
	default:
		return "", fmt.Errorf("unknown clear kind %q", s)
	}
}

// Includes reports whether clearing k also clears other.
func (k ClearKind) Includes(other ClearKind) bool {
	return k == ClearAll || k == other
}
