package phonetic

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Orthography describes a language whose spelling maps onto sounds
// directly: a set of letter groups with a display form each, plus accent
// characters that attach to the preceding group.
type Orthography struct {
	display  map[string]string
	variants []string // longest first
	accents  map[rune]bool
}

// LoadOrthography parses an orthography description file. Each non-blank
// line lists letter variants followed by the display form; a trailing
// section of single-character lines names the accent characters.
func LoadOrthography(path string) (*Orthography, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read orthography: %w", err)
	}
	defer f.Close()

	o := &Orthography{
		display: make(map[string]string),
		accents: make(map[rune]bool),
	}
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		switch {
		case len(fields) == 0:
			continue
		case len(fields) == 1 && len([]rune(fields[0])) == 1:
			o.accents[[]rune(fields[0])[0]] = true
		case len(fields) == 1:
			return nil, fmt.Errorf("orthography %s line %d: single multi-character field %q", path, line, fields[0])
		default:
			display := fields[len(fields)-1]
			for _, variant := range fields[:len(fields)-1] {
				o.display[strings.ToLower(variant)] = display
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read orthography %s: %w", path, err)
	}

	// Hyphens and apostrophes decompose silently.
	for _, silent := range []string{"-", "'", "’"} {
		if _, ok := o.display[silent]; !ok {
			o.display[silent] = ""
		}
	}
	for v := range o.display {
		o.variants = append(o.variants, v)
	}
	sort.Slice(o.variants, func(i, j int) bool {
		if len(o.variants[i]) != len(o.variants[j]) {
			return len(o.variants[i]) > len(o.variants[j])
		}
		return o.variants[i] < o.variants[j]
	})
	return o, nil
}

// Decompose splits a lowercased word into (letter chunk, display phoneme)
// pairs by greedy longest-prefix matching. Accent characters join the
// chunk they follow. Characters outside the alphabet become chunks with
// no phoneme.
func (o *Orthography) Decompose(word string) []Correspondence {
	var out []Correspondence
	rest := strings.ToLower(word)
	for rest != "" {
		matched := ""
		for _, v := range o.variants {
			if strings.HasPrefix(rest, v) {
				matched = v
				break
			}
		}
		var chunk Correspondence
		if matched != "" {
			chunk = Correspondence{Letters: matched, Phonemes: o.display[matched]}
			rest = rest[len(matched):]
		} else {
			runes := []rune(rest)
			chunk = Correspondence{Letters: string(runes[0])}
			rest = string(runes[1:])
		}
		for rest != "" {
			r := []rune(rest)[0]
			if !o.accents[r] {
				break
			}
			chunk.Letters += string(r)
			rest = string([]rune(rest)[1:])
		}
		out = append(out, chunk)
	}
	return out
}
