// Package align provides token-stream alignment primitives shared by the
// annotation engine, the merger, the tagger overlay and the differ:
// longest-common-subsequence matching and difflib-style opcodes.
package align

import (
	"github.com/agnivade/levenshtein"
)

// Pair matches index i in the left sequence with index j in the right one.
type Pair struct {
	I int
	J int
}

// LCSPairs returns the index pairs of a longest common subsequence of a and
// b. Pairs are in increasing order on both sides.
func LCSPairs(a, b []string) []Pair {
	n, m := len(a), len(b)
	if n == 0 || m == 0 {
		return nil
	}
	// dp[i][j] = LCS length of a[i:], b[j:].
	dp := make([][]int, n+1)
	for i := range dp {
		dp[i] = make([]int, m+1)
	}
	for i := n - 1; i >= 0; i-- {
		for j := m - 1; j >= 0; j-- {
			if a[i] == b[j] {
				dp[i][j] = dp[i+1][j+1] + 1
			} else if dp[i+1][j] >= dp[i][j+1] {
				dp[i][j] = dp[i+1][j]
			} else {
				dp[i][j] = dp[i][j+1]
			}
		}
	}
	var pairs []Pair
	for i, j := 0, 0; i < n && j < m; {
		switch {
		case a[i] == b[j]:
			pairs = append(pairs, Pair{I: i, J: j})
			i++
			j++
		case dp[i+1][j] >= dp[i][j+1]:
			i++
		default:
			j++
		}
	}
	return pairs
}

// OpTag classifies an opcode span.
type OpTag string

const (
	OpEqual   OpTag = "equal"
	OpReplace OpTag = "replace"
	OpDelete  OpTag = "delete"
	OpInsert  OpTag = "insert"
)

// Opcode describes how a[I1:I2] maps onto b[J1:J2].
type Opcode struct {
	Tag            OpTag
	I1, I2, J1, J2 int
}

// Opcodes returns edit opcodes transforming a into b, derived from the LCS.
// Contiguous matches become equal spans; the gaps between them become
// replace, delete or insert spans.
func Opcodes(a, b []string) []Opcode {
	pairs := LCSPairs(a, b)
	var ops []Opcode
	ai, bj := 0, 0

	gap := func(i2, j2 int) {
		if ai == i2 && bj == j2 {
			return
		}
		switch {
		case ai < i2 && bj < j2:
			ops = append(ops, Opcode{Tag: OpReplace, I1: ai, I2: i2, J1: bj, J2: j2})
		case ai < i2:
			ops = append(ops, Opcode{Tag: OpDelete, I1: ai, I2: i2, J1: bj, J2: j2})
		default:
			ops = append(ops, Opcode{Tag: OpInsert, I1: ai, I2: i2, J1: bj, J2: j2})
		}
		ai, bj = i2, j2
	}

	for k := 0; k < len(pairs); {
		p := pairs[k]
		gap(p.I, p.J)
		// Extend the equal run.
		end := k
		for end+1 < len(pairs) && pairs[end+1].I == pairs[end].I+1 && pairs[end+1].J == pairs[end].J+1 {
			end++
		}
		ops = append(ops, Opcode{Tag: OpEqual, I1: p.I, I2: pairs[end].I + 1, J1: p.J, J2: pairs[end].J + 1})
		ai, bj = pairs[end].I+1, pairs[end].J+1
		k = end + 1
	}
	gap(len(a), len(b))
	return ops
}

// Ratio is a similarity measure on surface strings in [0, 1]:
// 1 - levenshtein/maxlen. Equal strings score 1, disjoint ones approach 0.
func Ratio(a, b string) float64 {
	if a == b {
		return 1
	}
	la, lb := len([]rune(a)), len([]rune(b))
	max := la
	if lb > max {
		max = lb
	}
	if max == 0 {
		return 1
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(max)
}
