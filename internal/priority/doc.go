// Package priority orders overlapping wildcard index patterns.
//
// The search engine applies the index template with the highest priority
// among those whose patterns match a new index, and refuses two templates
// with overlapping patterns and equal priority. This package assigns every
// managed pattern a priority such that a narrower pattern always outranks
// every broader one:
//
//	priority = 200
//	         + 1000 * (number of transitively broader patterns)
//	         + 2 * len(representative)   (capped at 255 characters)
//	         + 200 if the pattern does not start with "*"
//	         + 100 if the pattern does not end with "*"
//
// Template kinds that share a pattern add a TieBreak on top.
//
// Containment is approximated on the pattern text: a pattern's representative
// is the pattern without its wildcards, and P contains C when P's expression
// matches C's representative. The relation is captured once per resolution
// in a Graph.
package priority
