// Package analysis implements the static code analysis tools: structure and
// metrics extraction, security scanning and comprehensive review. Analysis is
// heuristic and subprocess-free; code is never executed.
package analysis

import (
	"regexp"
	"sort"
	"strings"
)

type (
	// Structure describes the declarations found in a piece of code.
	Structure struct {
		Functions []string `json:"functions"`
		Classes   []string `json:"classes"`
		Imports   []string `json:"imports"`
		Exports   []string `json:"exports"`
	}

	// Metrics are size and complexity measurements.
	Metrics struct {
		LinesOfCode          int     `json:"lines_of_code"`
		Complexity           int     `json:"complexity"`
		MaintainabilityScore float64 `json:"maintainability_score"`
	}

	// Result is the analyze_code tool payload.
	Result struct {
		Structure   Structure `json:"structure"`
		Metrics     Metrics   `json:"metrics"`
		Suggestions []string  `json:"suggestions"`
		Patterns    []string  `json:"patterns"`
	}
)

var languageByExtension = map[string]string{
	"py":    "python",
	"js":    "javascript",
	"ts":    "typescript",
	"jsx":   "javascript",
	"tsx":   "typescript",
	"java":  "java",
	"cpp":   "cpp",
	"c":     "c",
	"cs":    "csharp",
	"go":    "go",
	"rs":    "rust",
	"php":   "php",
	"rb":    "ruby",
	"swift": "swift",
	"kt":    "kotlin",
}

// DetectLanguage maps a file extension to a language name, defaulting to
// "generic" for unknown extensions.
func DetectLanguage(filePath string) string {
	idx := strings.LastIndex(filePath, ".")
	if idx < 0 || idx == len(filePath)-1 {
		return "generic"
	}
	if lang, ok := languageByExtension[strings.ToLower(filePath[idx+1:])]; ok {
		return lang
	}
	return "generic"
}

var (
	functionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)function\s+(\w+)`),
		regexp.MustCompile(`(?i)def\s+(\w+)`),
		regexp.MustCompile(`(?i)func\s+(?:\(\w+\s+\*?\w+\)\s+)?(\w+)\s*\(`),
		regexp.MustCompile(`(?i)const\s+(\w+)\s*=\s*(?:async\s+)?\(`),
	}
	classPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)class\s+(\w+)`),
		regexp.MustCompile(`(?i)interface\s+(\w+)`),
		regexp.MustCompile(`(?i)struct\s+(\w+)`),
		regexp.MustCompile(`(?i)enum\s+(\w+)`),
	}
	importPatterns = []*regexp.Regexp{
		regexp.MustCompile(`import\s+(?:{[^}]+}|\w+|\*\s+as\s+\w+)\s+from\s+['"` + "`" + `]([^'"` + "`" + `]+)['"` + "`" + `]`),
		regexp.MustCompile(`from\s+([\w.]+)\s+import`),
		regexp.MustCompile(`#include\s*<([^>]+)>`),
		regexp.MustCompile(`using\s+(\w+);`),
	}
	exportPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)export\s+(?:default\s+)?(?:class|function|const)\s+(\w+)`),
		regexp.MustCompile(`(?i)module\.exports\s*=\s*(\w+)`),
	}
	complexityKeywords = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bif\b`),
		regexp.MustCompile(`(?i)\belse\b`),
		regexp.MustCompile(`(?i)\bwhile\b`),
		regexp.MustCompile(`(?i)\bfor\b`),
		regexp.MustCompile(`(?i)\bswitch\b`),
		regexp.MustCompile(`(?i)\bcase\b`),
		regexp.MustCompile(`(?i)\bcatch\b`),
		regexp.MustCompile(`&&`),
		regexp.MustCompile(`\|\|`),
	}
	commentPattern    = regexp.MustCompile(`/\*\*|\*/|//|#\s`)
	consoleLogPattern = regexp.MustCompile(`console\.log\(`)
	varPattern        = regexp.MustCompile(`\bvar\s+`)
)

// Analyze extracts structure, metrics, suggestions and detected patterns from
// code. Extraction is regex based and language agnostic; the file path only
// steers pattern detection.
func Analyze(filePath, code string) Result {
	structure := extractStructure(code)
	loc := countCodeLines(code)
	complexity := countComplexity(code)

	return Result{
		Structure: structure,
		Metrics: Metrics{
			LinesOfCode:          loc,
			Complexity:           complexity,
			MaintainabilityScore: maintainabilityScore(loc, complexity, len(structure.Functions)),
		},
		Suggestions: suggestions(code),
		Patterns:    detectPatterns(code, filePath),
	}
}

func extractStructure(code string) Structure {
	return Structure{
		Functions: collectMatches(code, functionPatterns),
		Classes:   collectMatches(code, classPatterns),
		Imports:   collectMatches(code, importPatterns),
		Exports:   collectMatches(code, exportPatterns),
	}
}

func collectMatches(code string, patterns []*regexp.Regexp) []string {
	seen := make(map[string]bool)
	for _, p := range patterns {
		for _, m := range p.FindAllStringSubmatch(code, -1) {
			for _, group := range m[1:] {
				if group != "" {
					seen[group] = true
				}
			}
		}
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func countCodeLines(code string) int {
	n := 0
	for _, line := range strings.Split(code, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

func countComplexity(code string) int {
	complexity := 1
	for _, p := range complexityKeywords {
		complexity += len(p.FindAllString(code, -1))
	}
	return complexity
}

// maintainabilityScore combines a size penalty, a complexity penalty and a
// modularity bonus into a 0..100 score.
func maintainabilityScore(loc, complexity, functionCount int) float64 {
	score := 100.0
	score -= min(float64(loc)/10, 30)
	score -= min(float64(complexity)*2, 40)
	score += min(float64(functionCount)*2, 20)
	return clampScore(score)
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func suggestions(code string) []string {
	var out []string
	if len(strings.Split(code, "\n")) > 200 {
		out = append(out, "File is quite large. Consider breaking it into smaller modules.")
	}
	if strings.Contains(code, "TODO") || strings.Contains(code, "FIXME") {
		out = append(out, "Address TODO and FIXME comments")
	}
	if !commentPattern.MatchString(code) {
		out = append(out, "Add comments to improve code readability")
	}
	if consoleLogPattern.MatchString(code) {
		out = append(out, "Remove console.log statements before production")
	}
	if varPattern.MatchString(code) {
		out = append(out, "Use const or let instead of var")
	}
	return out
}

func detectPatterns(code, filePath string) []string {
	var patterns []string
	if strings.HasSuffix(filePath, ".js") || strings.HasSuffix(filePath, ".jsx") {
		patterns = append(patterns, "JavaScript")
		if strings.Contains(code, "React") {
			patterns = append(patterns, "React Framework")
		}
		if strings.Contains(code, "useState") || strings.Contains(code, "useEffect") {
			patterns = append(patterns, "React Hooks")
		}
	}
	if strings.HasSuffix(filePath, ".ts") || strings.HasSuffix(filePath, ".tsx") {
		patterns = append(patterns, "TypeScript")
		if strings.Contains(code, "interface") {
			patterns = append(patterns, "TypeScript Interfaces")
		}
	}
	if strings.Contains(code, "async") && strings.Contains(code, "await") {
		patterns = append(patterns, "Async/Await Pattern")
	}
	if strings.Contains(code, "class") {
		patterns = append(patterns, "Object-Oriented Programming")
	}
	if strings.Contains(code, "express") || strings.Contains(code, "app.get") {
		patterns = append(patterns, "Express.js")
	}
	return patterns
}
