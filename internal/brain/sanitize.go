package brain

import (
	"regexp"
	"strings"
)

// MarkerAction says what to keep when a marker shows up in model output
type MarkerAction int

const (
	// KeepBefore drops the marker and everything after it
	KeepBefore MarkerAction = iota
	// KeepAfter drops everything up to and including the marker
	KeepAfter
)

// MarkerRule pairs a literal marker with what to do about it
type MarkerRule struct {
	Marker string
	Action MarkerAction
}

// DefaultMarkerRules handle the end-of-turn spellings Phi-3 and Llama-style models
// leak, and the label some completions start with
var DefaultMarkerRules = []MarkerRule{
	{Marker: "<|end|>", Action: KeepBefore},
	{Marker: "[/INST]", Action: KeepBefore},
	{Marker: "[Pet reply]", Action: KeepAfter},
}

const defaultMaxSentences = 2

var (
	// pictographs, misc symbols and dingbats, regional indicator flags, VS16 and ZWJ
	emojiPattern = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}\x{1F1E6}-\x{1F1FF}\x{FE0F}\x{200D}]`)

	exclamationPattern = regexp.MustCompile(`!+`)

	forbiddenReplacer = strings.NewReplacer(
		"@", "",
		"#", "",
		"*", "",
		"`", "",
		"—", "", // em dash
		"–", "", // en dash
		"[", "",
		"]", "",
		";", ",",
	)
)

// Sanitizer turns raw model output into a short reply that follows the pet's
// formatting rules
type Sanitizer struct {
	rules        []MarkerRule
	maxSentences int
}

// NewSanitizer creates a sanitizer with the given marker rules, applied in order
func NewSanitizer(rules []MarkerRule, maxSentences int) *Sanitizer {
	if maxSentences <= 0 {
		maxSentences = defaultMaxSentences
	}
	return &Sanitizer{
		rules:        rules,
		maxSentences: maxSentences,
	}
}

var defaultSanitizer = NewSanitizer(DefaultMarkerRules, defaultMaxSentences)

// CleanReply sanitizes raw text with the default rules and a two sentence cap
func CleanReply(raw string) string {
	return defaultSanitizer.Clean(raw)
}

// Clean runs the full pipeline. The result may be empty.
func (s *Sanitizer) Clean(raw string) string {
	text := s.applyRules(raw)

	text = emojiPattern.ReplaceAllString(text, "")
	text = forbiddenReplacer.Replace(text)
	text = exclamationPattern.ReplaceAllString(text, ".")

	// Removing characters can splice a marker back together.
	text = s.applyRules(text)

	text = strings.Join(strings.Fields(text), " ")

	return firstSentences(text, s.maxSentences)
}

func (s *Sanitizer) applyRules(text string) string {
	for _, rule := range s.rules {
		if rule.Marker == "" {
			continue
		}
		before, after, found := strings.Cut(text, rule.Marker)
		if !found {
			continue
		}
		switch rule.Action {
		case KeepBefore:
			text = before
		case KeepAfter:
			text = after
		}
	}
	return text
}

// firstSentences keeps up to n sentences. Input must already have whitespace
// collapsed to single spaces.
func firstSentences(text string, n int) string {
	count := 0
	for i := 1; i < len(text); i++ {
		if text[i] != ' ' || !isSentenceEnd(text[i-1]) {
			continue
		}
		count++
		if count == n {
			return text[:i]
		}
	}
	return text
}

func isSentenceEnd(b byte) bool {
	return b == '.' || b == '!' || b == '?'
}
