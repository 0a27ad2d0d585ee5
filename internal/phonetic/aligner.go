package phonetic

import (
	"strings"
)

// Transition costs for the alignment grid. Matching a correspondence with
// both sides present is cheapest; a correspondence with one empty side
// costs more; consuming a stray letter or phoneme costs the most.
const (
	costMatch     = 1
	costHalfEmpty = 2
	costSkip      = 5
)

// Aligner aligns a word's letters against its phonemic form using the
// correspondences compiled from an aligned lexicon.
type Aligner struct {
	plain PlainLexicon
	index Correspondences
}

func NewAligner(plain PlainLexicon, index Correspondences) *Aligner {
	return &Aligner{plain: plain, index: index}
}

// Phonemes looks up the lowercased word in the plain lexicon.
func (a *Aligner) Phonemes(word string) (string, bool) {
	p, ok := a.plain[strings.ToLower(word)]
	return p, ok
}

type cell struct {
	cost    int
	fromI   int
	fromJ   int
	letters string
	phones  string
	reached bool
}

// Align decomposes letters against phonemes into parallel pipe-joined
// chunk lists. The two outputs always have the same number of chunks, and
// stripping the pipes reproduces the inputs.
func (a *Aligner) Align(letters, phonemes string) (string, string) {
	l := []rune(strings.ToLower(letters))
	p := []rune(NormalisePhonemes(phonemes))
	n, m := len(l), len(p)

	grid := make([][]cell, n+1)
	for i := range grid {
		grid[i] = make([]cell, m+1)
	}
	grid[0][0].reached = true

	// Every transition consumes at least one rune on one side, so states
	// can be settled in order of i+j.
	for total := 0; total <= n+m; total++ {
		for i := max(0, total-m); i <= min(n, total); i++ {
			j := total - i
			cur := grid[i][j]
			if !cur.reached {
				continue
			}
			for _, c := range a.candidates(l, p, i, j) {
				li := i + len([]rune(c.Letters))
				pj := j + len([]rune(c.Phonemes))
				if li > n || pj > m {
					continue
				}
				if string(l[i:li]) != c.Letters || string(p[j:pj]) != c.Phonemes {
					continue
				}
				cost := costMatch
				if c.Letters == "" || c.Phonemes == "" {
					cost = costHalfEmpty
				}
				relax(grid, i, j, li, pj, cur.cost+cost, c.Letters, c.Phonemes)
			}
			if i < n {
				relax(grid, i, j, i+1, j, cur.cost+costSkip, string(l[i]), "")
			}
			if j < m {
				relax(grid, i, j, i, j+1, cur.cost+costSkip, "", string(p[j]))
			}
		}
	}

	var lchunks, pchunks []string
	for i, j := n, m; i != 0 || j != 0; {
		c := grid[i][j]
		lchunks = append(lchunks, c.letters)
		pchunks = append(pchunks, c.phones)
		i, j = c.fromI, c.fromJ
	}
	reverse(lchunks)
	reverse(pchunks)
	return strings.Join(lchunks, "|"), strings.Join(pchunks, "|")
}

// candidates gathers the correspondences whose groups could start at
// (i, j): keyed by the next letter and phoneme, by the next letter with an
// empty phoneme side, and by the next phoneme with an empty letter side.
func (a *Aligner) candidates(l, p []rune, i, j int) []Correspondence {
	var keys []corrKey
	if i < len(l) && j < len(p) {
		keys = append(keys, corrKey{letter: string(l[i]), phoneme: string(p[j])})
	}
	if i < len(l) {
		keys = append(keys, corrKey{letter: string(l[i])})
	}
	if j < len(p) {
		keys = append(keys, corrKey{phoneme: string(p[j])})
	}
	var out []Correspondence
	for _, k := range keys {
		out = append(out, a.index[k]...)
	}
	return out
}

func relax(grid [][]cell, fromI, fromJ, toI, toJ, cost int, letters, phones string) {
	dst := &grid[toI][toJ]
	if dst.reached && dst.cost <= cost {
		return
	}
	*dst = cell{
		cost:    cost,
		fromI:   fromI,
		fromJ:   fromJ,
		letters: letters,
		phones:  phones,
		reached: true,
	}
}

func reverse(ss []string) {
	for i, j := 0, len(ss)-1; i < j; i, j = i+1, j-1 {
		ss[i], ss[j] = ss[j], ss[i]
	}
}
