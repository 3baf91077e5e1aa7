// Package codediff produces structured line-by-line diffs between two code
// snippets for the generate_code_diff tool.
package codediff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type (
	// Line is one entry of a structured diff. Type is "added", "removed" or
	// "unchanged". LineNumber refers to the new version of the code; removed
	// lines carry the number of the line that replaced them.
	Line struct {
		Type       string `json:"type"`
		Content    string `json:"content"`
		LineNumber int    `json:"line_number"`
	}

	// Summary aggregates diff statistics.
	Summary struct {
		LinesAdded   int `json:"lines_added"`
		LinesRemoved int `json:"lines_removed"`
		LinesChanged int `json:"lines_changed"`
	}

	// Result is the generate_code_diff tool payload.
	Result struct {
		Diffs   []Line  `json:"diffs"`
		Summary Summary `json:"summary"`
	}
)

// Diff compares oldCode and newCode line by line.
func Diff(oldCode, newCode string) Result {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(oldCode, newCode)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lineArray)

	result := Result{Diffs: []Line{}}
	lineNumber := 1
	for _, d := range diffs {
		for _, content := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				result.Diffs = append(result.Diffs, Line{Type: "unchanged", Content: content, LineNumber: lineNumber})
				lineNumber++
			case diffmatchpatch.DiffDelete:
				result.Diffs = append(result.Diffs, Line{Type: "removed", Content: content, LineNumber: lineNumber})
				result.Summary.LinesRemoved++
			case diffmatchpatch.DiffInsert:
				result.Diffs = append(result.Diffs, Line{Type: "added", Content: content, LineNumber: lineNumber})
				result.Summary.LinesAdded++
				lineNumber++
			}
		}
	}
	result.Summary.LinesChanged = min(result.Summary.LinesAdded, result.Summary.LinesRemoved)
	return result
}

// splitLines splits diff text into individual lines without their
// terminators. A trailing newline does not produce an empty final line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	trimmed := strings.TrimSuffix(text, "\n")
	return strings.Split(trimmed, "\n")
}
