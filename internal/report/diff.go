package report

import (
	"strconv"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// KeyDiff renders a line diff between expected and actual key sequences, one
// key per line. Removed keys are prefixed "-", added keys "+", shared keys
// with two spaces. Returns "" when the sequences are equal.
func KeyDiff(expected, actual []int) string {
	want := joinKeys(expected)
	got := joinKeys(actual)

	if want == got {
		return ""
	}

	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(want, got)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var sb strings.Builder

	for _, d := range diffs {
		prefix := "  "

		switch d.Type {
		case diffmatchpatch.DiffDelete:
			prefix = "- "
		case diffmatchpatch.DiffInsert:
			prefix = "+ "
		case diffmatchpatch.DiffEqual:
		}

		for line := range strings.SplitSeq(strings.TrimSuffix(d.Text, "\n"), "\n") {
			sb.WriteString(prefix)
			sb.WriteString(line)
			sb.WriteByte('\n')
		}
	}

	return sb.String()
}

func joinKeys(keys []int) string {
	var sb strings.Builder

	for _, k := range keys {
		sb.WriteString(strconv.Itoa(k))
		sb.WriteByte('\n')
	}

	return sb.String()
}
