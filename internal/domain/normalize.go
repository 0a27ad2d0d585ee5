package domain

import (
	"strings"
)

// NormalizeText prepares text for storage and comparison:
//   - trims leading/trailing whitespace
//   - converts to lowercase
//   - compresses runs of whitespace into one space
//
// Diacritics, hyphens, and apostrophes are preserved.
func NormalizeText(text string) string {
	return strings.ToLower(CollapseWhitespace(text))
}

// CollapseWhitespace trims the string and compresses every run of
// whitespace into a single space. Case is preserved.
func CollapseWhitespace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// StripHTML removes anything between '<' and '>'. Unclosed tags are dropped
// to the end of the string. Used when canonicalising segment audio keys.
func StripHTML(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	depth := 0
	for _, r := range text {
		switch {
		case r == '<':
			depth++
		case r == '>':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// WordAudioKey canonicalises a word for the audio repository. In phonetic
// mode the word's phonetic decomposition is used as the key by the caller;
// the canonicalisation is the same.
func WordAudioKey(surface string) string {
	return NormalizeText(surface)
}

// SegmentAudioKey canonicalises a segment surface for the audio repository:
// HTML stripped, whitespace collapsed, trimmed. Case is preserved so that
// recorded human audio matches the displayed sentence.
func SegmentAudioKey(surface string) string {
	return CollapseWhitespace(StripHTML(surface))
}

// PhoneticSegmentAudioKey canonicalises a segment surface in phonetic mode.
func PhoneticSegmentAudioKey(surface string) string {
	return strings.ToLower(strings.TrimSpace(StripHTML(surface)))
}
