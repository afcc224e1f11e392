/*
 * ReactiveQ
 *
 * Copyright 2026 The ReactiveQ Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

/*
Package topicmatch decides whether a mutation topic (a concrete
pattern produced by the ingest pipeline) intersects a cached datalog
query's coarser topic set.

A Topic is a fixed-arity tuple of Parts. The matcher is pure,
deterministic, and allocation-light: it is the inner loop of
invalidation, so it short-circuits on the first hit wherever the spec
allows it.
*/
package topicmatch

import (
	"github.com/krotik/common/errorutil"
)

/*
ComparatorOp is a comparison operator carried by a $comparator part.
*/
type ComparatorOp int

/*
Supported comparator operators.
*/
const (
	Gt ComparatorOp = iota
	Gte
	Lt
	Lte
	Like
)

/*
PartKind discriminates the five shapes a Part can take.
*/
type PartKind int

/*
Part shapes.
*/
const (
	Keyword PartKind = iota // exact scalar
	Wildcard                // symbol - matches anything
	Set                     // matches on non-empty intersection, or via a nested comparator/not
	Comparator              // {$comparator: {op, value}}
	Not                     // {$not: value}
)

/*
Part is one position of a Topic tuple.
*/
type Part struct {
	Kind   PartKind
	Value  interface{}   // Keyword / Not value, or Comparator's right-hand operand
	Set    map[interface{}]struct{} // Set membership, when Kind == Set
	Op     ComparatorOp   // meaningful when Kind == Comparator
}

/*
KeywordPart builds an exact-scalar Part.
*/
func KeywordPart(v interface{}) Part {
	return Part{Kind: Keyword, Value: v}
}

/*
WildcardPart builds a symbol (wildcard) Part.
*/
func WildcardPart() Part {
	return Part{Kind: Wildcard}
}

/*
SetPart builds a set-membership Part.
*/
func SetPart(vals ...interface{}) Part {
	s := make(map[interface{}]struct{}, len(vals))
	for _, v := range vals {
		s[v] = struct{}{}
	}
	return Part{Kind: Set, Set: s}
}

/*
ComparatorPart builds a {$comparator: {op, value}} Part.
*/
func ComparatorPart(op ComparatorOp, value interface{}) Part {
	return Part{Kind: Comparator, Op: op, Value: value}
}

/*
NotPart builds a {$not: value} Part.
*/
func NotPart(value interface{}) Part {
	return Part{Kind: Not, Value: value}
}

/*
Topic is a fixed-arity tuple of Parts.
*/
type Topic []Part

/*
Match reports whether an invalidation topic iv matches a datalog
query's coarse topic dq. Both must have equal arity.
*/
func Match(iv, dq Topic) bool {
	if len(iv) != len(dq) {
		return false
	}
	for i := range iv {
		if !matchPart(iv[i], dq[i]) {
			return false
		}
	}
	return true
}

/*
MatchAny reports whether any topic in ivTopics matches any topic in
dqTopics, short-circuiting on the first hit. This is O(|iv|*|dq|) in
the worst case, as specified.
*/
func MatchAny(ivTopics, dqTopics []Topic) bool {
	for _, iv := range ivTopics {
		for _, dq := range dqTopics {
			if Match(iv, dq) {
				return true
			}
		}
	}
	return false
}

/*
matchPart applies the pairwise part match rule from spec.md's table.
*/
func matchPart(iv, dq Part) bool {
	switch {
	case dq.Kind == Wildcard || iv.Kind == Wildcard:
		return true

	case iv.Kind == Keyword && dq.Kind == Keyword:
		return iv.Value == dq.Value

	case iv.Kind == Keyword:
		// A keyword iv against a set/comparator/not dq still reduces to
		// "does dq accept this single concrete value".
		return matchSetLike(map[interface{}]struct{}{iv.Value: {}}, dq)

	case iv.Kind == Set:
		return matchSetLike(iv.Set, dq)

	default:
		errorutil.AssertTrue(false, "topicmatch: unsupported part combination")
		return false
	}
}

/*
matchSetLike matches a set of concrete values (iv's set, or a single
keyword wrapped as a singleton set) against dq, which may itself be a
set, a comparator, or a negation.
*/
func matchSetLike(ivSet map[interface{}]struct{}, dq Part) bool {
	switch dq.Kind {
	case Set:
		for v := range ivSet {
			if _, ok := dq.Set[v]; ok {
				return true
			}
		}
		return false

	case Comparator:
		for v := range ivSet {
			if compare(v, dq.Op, dq.Value) {
				return true
			}
		}
		return false

	case Not:
		for v := range ivSet {
			if v != dq.Value {
				return true
			}
		}
		return false

	case Keyword:
		_, ok := ivSet[dq.Value]
		return ok

	default:
		// Per spec.md §9's Open Question: an unknown map shape (neither
		// $comparator nor $not) is a programming error, not a silent
		// non-match.
		errorutil.AssertTrue(false, "topicmatch: unknown map part shape")
		return false
	}
}

func compare(v interface{}, op ComparatorOp, rhs interface{}) bool {
	if op == Like {
		lv, lok := v.(string)
		rv, rok := rhs.(string)
		if !lok || !rok {
			return false
		}
		return likeMatch(lv, rv)
	}

	lf, lok := toFloat(v)
	rf, rok := toFloat(rhs)
	if !lok || !rok {
		return false
	}

	switch op {
	case Gt:
		return lf > rf
	case Gte:
		return lf >= rf
	case Lt:
		return lf < rf
	case Lte:
		return lf <= rf
	default:
		errorutil.AssertTrue(false, "topicmatch: unknown comparator operator")
		return false
	}
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

/*
likeMatch implements SQL-style LIKE anchored matching: '_' matches any
single character, '%' matches any run of characters (including none).
*/
func likeMatch(s, pattern string) bool {
	return likeMatchRunes([]rune(s), []rune(pattern))
}

func likeMatchRunes(s, p []rune) bool {
	if len(p) == 0 {
		return len(s) == 0
	}

	switch p[0] {
	case '%':
		if likeMatchRunes(s, p[1:]) {
			return true
		}
		for i := 0; i < len(s); i++ {
			if likeMatchRunes(s[i+1:], p[1:]) {
				return true
			}
		}
		return false

	case '_':
		if len(s) == 0 {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])

	default:
		if len(s) == 0 || s[0] != p[0] {
			return false
		}
		return likeMatchRunes(s[1:], p[1:])
	}
}
