package analysis

import (
	"regexp"
	"strings"
)

type (
	// SecurityIssue is one finding of the security scanner.
	SecurityIssue struct {
		Severity       string `json:"severity"`
		Category       string `json:"category"`
		Description    string `json:"description"`
		LineNumber     int    `json:"line_number"`
		CodeSnippet    string `json:"code_snippet"`
		Recommendation string `json:"recommendation"`
		CWEID          string `json:"cwe_id,omitempty"`
	}

	// SecurityResult is the analyze_security tool payload.
	SecurityResult struct {
		Issues          []SecurityIssue `json:"issues"`
		SecurityScore   float64         `json:"security_score"`
		Summary         map[string]int  `json:"summary"`
		Recommendations []string        `json:"recommendations"`
	}
)

// ruleSet describes one family of pattern checks sharing severity, category
// and remediation advice.
type ruleSet struct {
	patterns       []*regexp.Regexp
	severity       string
	category       string
	description    string
	recommendation string
	cweID          string
	redactSnippet  bool
}

var securityRules = []ruleSet{
	{
		patterns: compileAll(
			`(?i)SELECT\s+.*\s+WHERE\s+.*[\+\%]\s*['"]`,
			`(?i)INSERT\s+INTO\s+.*VALUES\s*\([^)]*[\+\%][^)]*\)`,
			`(?i)UPDATE\s+.*SET\s+.*=.*[\+\%]`,
			`(?i)DELETE\s+FROM\s+.*WHERE\s+.*[\+\%]`,
			`(?i)cursor\.execute\([^)]*\%[^)]*\)`,
			`(?i)db\.query\([^)]*\+[^)]*\)`,
		),
		severity:       "critical",
		category:       "sql_injection",
		description:    "Potential SQL injection vulnerability detected",
		recommendation: "Use parameterized queries or prepared statements.",
		cweID:          "CWE-89",
	},
	{
		patterns: compileAll(
			`(?i)os\.system\([^)]*\+[^)]*\)`,
			`(?i)subprocess\.call\([^)]*\+[^)]*\)`,
			`(?i)exec\([^)]*\+[^)]*\)`,
			`(?i)shell_exec\([^)]*\.\s*[^)]*\)`,
			`(?i)system\([^)]*\+[^)]*\)`,
		),
		severity:       "critical",
		category:       "command_injection",
		description:    "Potential command injection vulnerability detected",
		recommendation: "Validate and sanitize all user inputs. Use safe command execution methods.",
		cweID:          "CWE-78",
	},
	{
		patterns: compileAll(
			`(?i)innerHTML\s*=\s*[^;]*\+`,
			`(?i)document\.write\([^)]*\+[^)]*\)`,
			`(?i)eval\([^)]*\+[^)]*\)`,
			`(?i)setTimeout\([^)]*\+[^)]*\)`,
			`(?i)setInterval\([^)]*\+[^)]*\)`,
		),
		severity:       "high",
		category:       "xss",
		description:    "Potential Cross-Site Scripting (XSS) vulnerability",
		recommendation: "Use textContent instead of innerHTML, or sanitize user input.",
		cweID:          "CWE-79",
	},
	{
		patterns: compileAll(
			`(?i)MD5\(`,
			`(?i)SHA1\(`,
			`(?i)DES\(`,
			`(?i)RC4\(`,
		),
		severity:       "medium",
		category:       "weak_cryptography",
		description:    "Weak cryptographic algorithm detected",
		recommendation: "Use strong hashing algorithms (bcrypt, scrypt, Argon2) and modern ciphers.",
		cweID:          "CWE-327",
	},
	{
		patterns: compileAll(
			`(?i)password\s*=\s*['"]\w+['"]`,
			`(?i)api_key\s*=\s*['"]\w+['"]`,
			`(?i)secret\s*=\s*['"]\w+['"]`,
		),
		severity:       "critical",
		category:       "hardcoded_secrets",
		description:    "Hardcoded secret detected",
		recommendation: "Use environment variables or secure configuration files.",
		cweID:          "CWE-798",
		redactSnippet:  true,
	},
	{
		patterns: compileAll(
			`(?i)localStorage\.setItem\([^)]*(?:password|token|key)[^)]*\)`,
		),
		severity:       "medium",
		category:       "data_exposure",
		description:    "Sensitive data stored in localStorage",
		recommendation: "Use secure storage mechanisms or encrypt sensitive data.",
		cweID:          "CWE-922",
	},
	{
		patterns: compileAll(
			`(?i)console\.log\([^)]*(?:password|token|key|secret)[^)]*\)`,
		),
		severity:       "medium",
		category:       "information_disclosure",
		description:    "Sensitive information logged to console",
		recommendation: "Remove console.log statements containing sensitive data.",
		cweID:          "CWE-532",
	},
}

var (
	securityTodoPattern = regexp.MustCompile(`(?i)(?://|#)\s*(?:TODO|FIXME).*(?:security|auth|password|token)`)
	tryBlockPattern     = regexp.MustCompile(`(?i)\btry\s*[:{]`)
	validationPatterns  = compileAll(`(?i)validate\(`, `(?i)sanitize\(`, `(?i)escape\(`, `(?i)isinstance\(`)
)

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// AnalyzeSecurity scans code for insecure patterns and scores the result.
// Matching is purely textual; findings are advisory, not proof of
// exploitability.
func AnalyzeSecurity(filePath, code string) SecurityResult {
	lines := strings.Split(code, "\n")
	var issues []SecurityIssue

	for _, rule := range securityRules {
		for _, p := range rule.patterns {
			for _, loc := range p.FindAllStringIndex(code, -1) {
				lineNum := strings.Count(code[:loc[0]], "\n") + 1
				snippet := snippetAt(lines, lineNum)
				if rule.redactSnippet {
					snippet = "[REDACTED - May contain sensitive data]"
				}
				issues = append(issues, SecurityIssue{
					Severity:       rule.severity,
					Category:       rule.category,
					Description:    rule.description,
					LineNumber:     lineNum,
					CodeSnippet:    snippet,
					Recommendation: rule.recommendation,
					CWEID:          rule.cweID,
				})
			}
		}
	}

	for i, line := range lines {
		if securityTodoPattern.MatchString(line) {
			issues = append(issues, SecurityIssue{
				Severity:       "low",
				Category:       "security_todo",
				Description:    "Security-related TODO/FIXME comment found",
				LineNumber:     i + 1,
				CodeSnippet:    strings.TrimSpace(line),
				Recommendation: "Address security-related TODO/FIXME items promptly.",
			})
		}
	}

	if issues == nil {
		issues = []SecurityIssue{}
	}
	return SecurityResult{
		Issues:          issues,
		SecurityScore:   securityScore(issues, code),
		Summary:         summarize(issues),
		Recommendations: securityRecommendations(issues, DetectLanguage(filePath)),
	}
}

func snippetAt(lines []string, lineNum int) string {
	if lineNum >= 1 && lineNum <= len(lines) {
		return lines[lineNum-1]
	}
	return ""
}

var severityPenalties = map[string]float64{
	"critical": 25,
	"high":     15,
	"medium":   8,
	"low":      3,
}

func securityScore(issues []SecurityIssue, code string) float64 {
	score := 100.0
	for _, issue := range issues {
		penalty, ok := severityPenalties[issue.Severity]
		if !ok {
			penalty = 5
		}
		score -= penalty
	}

	if tries := len(tryBlockPattern.FindAllString(code, -1)); tries > 0 {
		score += min(float64(tries)*2, 10)
	}
	for _, p := range validationPatterns {
		if p.MatchString(code) {
			score += 2
		}
	}
	return clampScore(score)
}

func summarize(issues []SecurityIssue) map[string]int {
	summary := map[string]int{"critical": 0, "high": 0, "medium": 0, "low": 0}
	for _, issue := range issues {
		summary[issue.Severity]++
	}
	return summary
}

func securityRecommendations(issues []SecurityIssue, language string) []string {
	categories := make(map[string]bool)
	for _, issue := range issues {
		categories[issue.Category] = true
	}

	seen := make(map[string]bool)
	var out []string
	add := func(recs ...string) {
		for _, r := range recs {
			if !seen[r] {
				seen[r] = true
				out = append(out, r)
			}
		}
	}

	if categories["sql_injection"] {
		add("Use parameterized queries and prepared statements for all database operations")
	}
	if categories["command_injection"] {
		add("Validate all user inputs and use safe command execution methods")
	}
	if categories["xss"] {
		add("Sanitize user inputs and use textContent instead of innerHTML")
	}
	if categories["hardcoded_secrets"] {
		add("Move all secrets to environment variables or secure configuration files")
	}
	if categories["weak_cryptography"] {
		add("Use strong cryptographic algorithms (AES-256, bcrypt, scrypt)")
	}

	switch language {
	case "python":
		add(
			"Use virtual environments to manage dependencies",
			"Consider using bandit for automated security testing",
		)
	case "javascript", "typescript":
		add(
			"Use Content Security Policy (CSP) headers",
			"Use npm audit to check for vulnerable dependencies",
		)
	}

	add(
		"Implement proper error handling without information leakage",
		"Use HTTPS for all network communications",
		"Regular security code reviews and dependency updates",
	)
	return out
}
