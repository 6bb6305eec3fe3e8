// Copyright (c) 2015, Arbo von Monkiewitsch All rights reserved.
// Use of this source code is governed by a BSD-style
// license.

// Package levenshtein computes edit distances between short names and
// picks the closest candidate for "did you mean" hints.
package levenshtein

import "strings"

// Context reuses its column buffer across Distance calls.
type Context struct {
	column []int
}

func (ctx *Context) buffer(length int) []int {
	if cap(ctx.column) < length {
		ctx.column = make([]int, length)
	}

	return ctx.column[:length]
}

// Distance returns the minimum number of single-rune insertions, deletions
// and substitutions turning str1 into str2. Space is O(len(str1)).
func (ctx *Context) Distance(str1, str2 string) int {
	s1 := []rune(str1)
	s2 := []rune(str2)

	if len(s2) == 0 {
		return len(s1)
	}

	column := ctx.buffer(len(s1) + 1)
	for idx := range column {
		column[idx] = idx
	}

	for col, s2Rune := range s2 {
		column[0] = col + 1
		lastdiag := col

		for row, s1Rune := range s1 {
			olddiag := column[row+1]

			cost := 1
			if s1Rune == s2Rune {
				cost = 0
			}

			column[row+1] = min(column[row+1]+1, column[row]+1, lastdiag+cost)
			lastdiag = olddiag
		}
	}

	return column[len(s1)]
}

// Closest returns the candidate nearest to target, compared case-insensitively,
// when its distance is at most maxDistance. Ties keep the earlier candidate.
// An exact match never counts as a suggestion.
func Closest(target string, candidates []string, maxDistance int) (string, bool) {
	var (
		ctx  Context
		best string
	)

	bestDistance := maxDistance + 1
	folded := strings.ToLower(target)

	for _, candidate := range candidates {
		distance := ctx.Distance(folded, strings.ToLower(candidate))
		if distance == 0 || distance >= bestDistance {
			continue
		}

		best = candidate
		bestDistance = distance
	}

	return best, best != ""
}
