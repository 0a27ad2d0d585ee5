// Package phonetic derives letter-to-phoneme decompositions for Words,
// from either an orthography description or pronunciation lexicons.
package phonetic

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// NormalisePhonemes strips stress marks, syllable dots and zero-width
// joiners from a phonemic string.
func NormalisePhonemes(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case 'ˈ', 'ˌ', '.', '\u200d':
			return -1
		}
		return r
	}, s)
}

// PlainLexicon maps lowercased words to their phonemic form.
type PlainLexicon map[string]string

// LoadPlainLexicon reads a JSON object of word to phoneme-string entries.
func LoadPlainLexicon(path string) (PlainLexicon, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plain lexicon: %w", err)
	}
	var entries map[string]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode plain lexicon %s: %w", path, err)
	}
	lex := make(PlainLexicon, len(entries))
	for word, phonemes := range entries {
		lex[strings.ToLower(word)] = NormalisePhonemes(phonemes)
	}
	return lex, nil
}

// Correspondence is one permitted letter-group to phoneme-group pairing
// observed in the aligned lexicon. Either side may be empty, not both.
type Correspondence struct {
	Letters  string
	Phonemes string
}

// corrKey indexes correspondences by the first letter and first phoneme
// of their groups, with "" standing for an empty group.
type corrKey struct {
	letter  string
	phoneme string
}

// Correspondences is the index compiled from an aligned lexicon.
type Correspondences map[corrKey][]Correspondence

func keyOf(c Correspondence) corrKey {
	var k corrKey
	if c.Letters != "" {
		k.letter = string([]rune(c.Letters)[0])
	}
	if c.Phonemes != "" {
		k.phoneme = string([]rune(c.Phonemes)[0])
	}
	return k
}

func (cs Correspondences) add(c Correspondence) {
	if c.Letters == "" && c.Phonemes == "" {
		return
	}
	k := keyOf(c)
	for _, have := range cs[k] {
		if have == c {
			return
		}
	}
	cs[k] = append(cs[k], c)
}

// LoadAlignedLexicon reads a JSON object of word to
// [letter_chunks, phoneme_chunks] entries, both pipe-joined, and compiles
// the correspondence index.
func LoadAlignedLexicon(path string) (Correspondences, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read aligned lexicon: %w", err)
	}
	var entries map[string][2]string
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode aligned lexicon %s: %w", path, err)
	}

	index := make(Correspondences)
	for word, pair := range entries {
		letters := strings.Split(pair[0], "|")
		phonemes := strings.Split(NormalisePhonemes(pair[1]), "|")
		if len(letters) != len(phonemes) {
			return nil, fmt.Errorf("aligned lexicon %s: entry %q has %d letter chunks but %d phoneme chunks",
				path, word, len(letters), len(phonemes))
		}
		for i := range letters {
			index.add(Correspondence{
				Letters:  strings.ToLower(letters[i]),
				Phonemes: phonemes[i],
			})
		}
	}
	return index, nil
}
