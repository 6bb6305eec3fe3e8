package bsp

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// LineDiff renders a line-oriented diff from old to updated: removed lines
// start with "-", added lines with "+", unchanged lines are dropped.
// Returns "" when the texts are equal.
func LineDiff(old, updated string) string {
	if old == updated {
		return ""
	}

	dmp := diffmatchpatch.New()
	src, dst, lines := dmp.DiffLinesToRunes(old, updated)
	diffs := dmp.DiffCharsToLines(dmp.DiffMainRunes(src, dst, false), lines)

	var sb strings.Builder

	for _, diff := range diffs {
		var marker string

		switch diff.Type {
		case diffmatchpatch.DiffDelete:
			marker = "-"
		case diffmatchpatch.DiffInsert:
			marker = "+"
		case diffmatchpatch.DiffEqual:
			continue
		}

		for _, line := range strings.SplitAfter(diff.Text, "\n") {
			if line == "" {
				continue
			}

			sb.WriteString(marker)
			sb.WriteString(line)

			if !strings.HasSuffix(line, "\n") {
				sb.WriteByte('\n')
			}
		}
	}

	return sb.String()
}
