package priority

import (
	"sort"
	"unicode/utf8"
)

// Weights of the priority formula. Every term is even, so adding a TieBreak
// never makes two patterns of different kinds collide.
const (
	// BaseOffset keeps managed templates above templates defined by the
	// engine itself or by other tools.
	BaseOffset     = 200
	AncestorWeight = 1000
	LengthWeight   = 2
	MaxLength      = 255
	PrefixBonus    = 200
	SuffixBonus    = 100
)

// TieBreak distinguishes template kinds that share a pattern.
type TieBreak int

const (
	TieBreakRepository TieBreak = 0
	TieBreakAlias      TieBreak = 1
)

// Record is the priority assigned to one pattern.
type Record struct {
	Pattern  string `json:"pattern"`
	Priority int    `json:"priority"`
}

// WithTieBreak returns the priority to use for a template of the given kind.
func (r Record) WithTieBreak(t TieBreak) int {
	return r.Priority + int(t)
}

// Score computes the priority of a pattern given the number of patterns
// transitively broader than it. AncestorWeight exceeds the largest sum of the
// other terms, so a child always outranks its ancestors.
func Score(pattern string, ancestors int) int {
	length := utf8.RuneCountInString(Representative(pattern))
	if length > MaxLength {
		length = MaxLength
	}

	score := BaseOffset + AncestorWeight*ancestors + LengthWeight*length
	if len(pattern) == 0 || pattern[0] != '*' {
		score += PrefixBonus
	}
	if len(pattern) == 0 || pattern[len(pattern)-1] != '*' {
		score += SuffixBonus
	}
	return score
}

// Priority returns the score of pattern within the graph.
func (g *Graph) Priority(pattern string) int {
	return Score(pattern, g.AncestorCount(pattern))
}

// Resolve returns the record of target followed by the records of all its
// descendants in breadth-first order. target must be part of the graph for
// its descendants to be found.
func (g *Graph) Resolve(target string) []Record {
	records := []Record{{Pattern: target, Priority: g.Priority(target)}}
	for _, p := range g.Descendants(target) {
		records = append(records, Record{Pattern: p, Priority: g.Priority(p)})
	}
	return records
}

// Resolve computes the priority of target and of every narrower pattern in
// all, so that one pass can refresh the whole affected subtree. target is
// included even when all does not contain it.
func Resolve(target string, all []string) []Record {
	patterns := make([]string, 0, len(all)+1)
	patterns = append(patterns, all...)
	patterns = append(patterns, target)
	return NewGraph(patterns).Resolve(target)
}

// ResolveAll computes the priority of every pattern from a single graph.
func ResolveAll(all []string) map[string]int {
	g := NewGraph(all)
	out := make(map[string]int, len(all))
	for _, p := range g.Patterns() {
		out[p] = g.Priority(p)
	}
	return out
}

// SortByPriority orders records from the broadest to the most specific.
func SortByPriority(records []Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Priority != records[j].Priority {
			return records[i].Priority < records[j].Priority
		}
		return records[i].Pattern < records[j].Pattern
	})
}
