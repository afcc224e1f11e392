/*
 * ReactiveQ
 *
 * Copyright 2026 The ReactiveQ Authors. All rights reserved.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package topicmatch

import "testing"

func TestMatchKeywordWildcard(t *testing.T) {
	iv := Topic{KeywordPart("ea"), SetPart("e1"), KeywordPart("title")}
	dq := Topic{KeywordPart("ea"), WildcardPart(), KeywordPart("title")}

	if !Match(iv, dq) {
		t.Error("expected match")
	}
}

func TestMatchComparatorGt(t *testing.T) {
	iv := Topic{KeywordPart("ea"), SetPart("e1"), KeywordPart(5.0)}
	dq := Topic{KeywordPart("ea"), WildcardPart(), ComparatorPart(Gt, 3.0)}

	if !Match(iv, dq) {
		t.Error("expected match")
	}
}

func TestMatchLike(t *testing.T) {
	dq := Topic{KeywordPart("ea"), WildcardPart(), ComparatorPart(Like, "ap%")}

	apple := Topic{KeywordPart("ea"), SetPart("e1"), KeywordPart("apple")}
	if !Match(apple, dq) {
		t.Error("expected apple to match ap%")
	}

	banana := Topic{KeywordPart("ea"), SetPart("e1"), KeywordPart("banana")}
	if Match(banana, dq) {
		t.Error("expected banana not to match ap%")
	}
}

func TestMatchNot(t *testing.T) {
	dq := Topic{KeywordPart("ea"), WildcardPart(), NotPart("done")}

	iv := Topic{KeywordPart("ea"), SetPart("e1"), KeywordPart("open")}
	if !Match(iv, dq) {
		t.Error("expected match (value != 'done')")
	}

	ivDone := Topic{KeywordPart("ea"), SetPart("e1"), KeywordPart("done")}
	if Match(ivDone, dq) {
		t.Error("expected no match (value == 'done')")
	}
}

func TestMatchSetIntersection(t *testing.T) {
	iv := Topic{KeywordPart("ea"), SetPart("e1", "e2")}
	dq := Topic{KeywordPart("ea"), SetPart("e2", "e3")}

	if !Match(iv, dq) {
		t.Error("expected non-empty intersection to match")
	}

	dqNoOverlap := Topic{KeywordPart("ea"), SetPart("e3", "e4")}
	if Match(iv, dqNoOverlap) {
		t.Error("expected disjoint sets not to match")
	}
}

func TestMatchArityMismatch(t *testing.T) {
	iv := Topic{KeywordPart("ea")}
	dq := Topic{KeywordPart("ea"), WildcardPart()}

	if Match(iv, dq) {
		t.Error("expected arity mismatch not to match")
	}
}

func TestMatchAnyShortCircuits(t *testing.T) {
	ivTopics := []Topic{
		{KeywordPart("ea"), SetPart("e1"), KeywordPart("title")},
	}
	dqTopics := []Topic{
		{KeywordPart("ea"), WildcardPart(), KeywordPart("body")},
		{KeywordPart("ea"), WildcardPart(), KeywordPart("title")},
	}

	if !MatchAny(ivTopics, dqTopics) {
		t.Error("expected a match among the dq topics")
	}
}

func TestMatchKeywordMismatch(t *testing.T) {
	iv := Topic{KeywordPart("ea")}
	dq := Topic{KeywordPart("ev")}

	if Match(iv, dq) {
		t.Error("expected keyword mismatch not to match")
	}
}

func TestLikeMatchAnchoring(t *testing.T) {
	cases := []struct {
		s, pattern string
		want       bool
	}{
		{"apple", "ap%", true},
		{"apple", "%le", true},
		{"apple", "a_ple", true},
		{"apple", "a__le", true},
		{"apple", "apple", true},
		{"apple", "banana", false},
		{"", "%", true},
		{"", "_", false},
	}

	for _, c := range cases {
		if got := likeMatch(c.s, c.pattern); got != c.want {
			t.Errorf("likeMatch(%q, %q) = %v, want %v", c.s, c.pattern, got, c.want)
		}
	}
}
