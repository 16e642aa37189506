// Package moderation provides content checks applied to audience text and signups before they are stored.
package moderation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Block reasons.
const (
	ReasonProfanity       = "profanity"
	ReasonSpam            = "spam"
	ReasonDisposableEmail = "disposable_email"
)

// maxProfanityRatio is the share of profane words above which text is blocked.
const maxProfanityRatio = 0.5

// minShoutLength is the number of letters an all-caps message needs before it
// counts as shouting.
const minShoutLength = 20

// maxRepeatedRun is the longest run of one character allowed in a message.
const maxRepeatedRun = 9

var (
	urlPattern  = regexp.MustCompile(`(?i)(https?://|www\.)\S+`)
	wordPattern = regexp.MustCompile(`[\p{L}\p{N}']+`)
)

// BlockedError reports text or an email address rejected by moderation.
type BlockedError struct {
	Reason string
	Detail string
}

func (e *BlockedError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("content blocked (%s): %s", e.Reason, e.Detail)
	}
	return fmt.Sprintf("content blocked (%s)", e.Reason)
}

// Checker holds the word and domain lists used for moderation.
type Checker struct {
	profanity         map[string]bool
	spamPhrases       []string
	disposableDomains map[string]bool
}

// NewChecker creates a Checker with the built-in lists.
func NewChecker() *Checker {
	return NewCheckerWithLists(defaultProfanity, defaultSpamPhrases, defaultDisposableDomains)
}

// NewCheckerWithLists creates a Checker from explicit lists. Entries are
// matched case-insensitively.
func NewCheckerWithLists(profanity, spamPhrases, disposableDomains []string) *Checker {
	c := &Checker{
		profanity:         make(map[string]bool, len(profanity)),
		disposableDomains: make(map[string]bool, len(disposableDomains)),
	}
	for _, w := range profanity {
		c.profanity[strings.ToLower(strings.TrimSpace(w))] = true
	}
	for _, p := range spamPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			c.spamPhrases = append(c.spamPhrases, p)
		}
	}
	for _, d := range disposableDomains {
		c.disposableDomains[strings.ToLower(strings.TrimSpace(d))] = true
	}
	return c
}

// CheckText returns a *BlockedError when text is mostly profanity or looks
// like spam. Empty text passes; required-field checks belong to the caller.
func (c *Checker) CheckText(text string) error {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	if len(words) == 0 {
		return nil
	}

	profane := 0
	for _, w := range words {
		if c.profanity[w] {
			profane++
		}
	}
	if float64(profane)/float64(len(words)) > maxProfanityRatio {
		return &BlockedError{Reason: ReasonProfanity}
	}

	if reason := c.spamReason(text); reason != "" {
		return &BlockedError{Reason: ReasonSpam, Detail: reason}
	}
	return nil
}

func (c *Checker) spamReason(text string) string {
	lower := strings.ToLower(text)
	for _, phrase := range c.spamPhrases {
		if strings.Contains(lower, phrase) {
			return "spam phrase"
		}
	}
	if longestRun(text) > maxRepeatedRun {
		return "repeated characters"
	}
	if len(urlPattern.FindAllString(text, -1)) > 1 {
		return "multiple links"
	}
	if isShouting(text) {
		return "all caps"
	}
	return ""
}

func longestRun(text string) int {
	longest, run := 0, 0
	var prev rune
	for i, r := range []rune(text) {
		if i > 0 && r == prev {
			run++
		} else {
			run = 1
		}
		prev = r
		longest = max(longest, run)
	}
	return longest
}

func isShouting(text string) bool {
	letters := 0
	for _, r := range text {
		if !unicode.IsLetter(r) {
			continue
		}
		if unicode.IsLower(r) {
			return false
		}
		letters++
	}
	return letters >= minShoutLength
}

// CheckEmail returns a *BlockedError for addresses on disposable domains.
func (c *Checker) CheckEmail(email string) error {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return nil
	}
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))
	if c.disposableDomains[domain] {
		return &BlockedError{Reason: ReasonDisposableEmail, Detail: domain}
	}
	return nil
}
