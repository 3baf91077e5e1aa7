package testgen

import (
	"regexp"
	"sort"
	"strings"
)

type funcInfo struct {
	Name    string
	Args    []string
	IsAsync bool
}

type classInfo struct {
	Name    string
	Methods []funcInfo
}

type codeStructure struct {
	Functions []funcInfo
	Classes   []classInfo
	Imports   []string
}

func extractStructure(code, language string) codeStructure {
	if language == "python" {
		return extractPythonStructure(code)
	}
	return extractGenericStructure(code)
}

var (
	pyDefPattern    = regexp.MustCompile(`^(\s*)(async\s+)?def\s+(\w+)\s*\(([^)]*)\)`)
	pyClassPattern  = regexp.MustCompile(`^class\s+(\w+)`)
	pyImportPattern = regexp.MustCompile(`^\s*(?:from\s+([\w.]+)\s+import|import\s+([\w.]+))`)
)

// extractPythonStructure walks the file line by line. Indented defs that
// follow a class header are recorded both as methods of that class and in
// the flat function list.
func extractPythonStructure(code string) codeStructure {
	var s codeStructure
	classIdx := -1

	for _, line := range strings.Split(code, "\n") {
		if m := pyClassPattern.FindStringSubmatch(line); m != nil {
			s.Classes = append(s.Classes, classInfo{Name: m[1]})
			classIdx = len(s.Classes) - 1
			continue
		}
		if m := pyDefPattern.FindStringSubmatch(line); m != nil {
			fn := funcInfo{
				Name:    m[3],
				Args:    parseArgs(m[4]),
				IsAsync: m[2] != "",
			}
			s.Functions = append(s.Functions, fn)
			if m[1] != "" && classIdx >= 0 {
				s.Classes[classIdx].Methods = append(s.Classes[classIdx].Methods, fn)
			} else if m[1] == "" {
				classIdx = -1
			}
			continue
		}
		if m := pyImportPattern.FindStringSubmatch(line); m != nil {
			if m[1] != "" {
				s.Imports = append(s.Imports, m[1])
			} else {
				s.Imports = append(s.Imports, m[2])
			}
			continue
		}
		// Any other statement at column zero ends the current class body.
		if len(line) > 0 && line[0] != ' ' && line[0] != '\t' && strings.TrimSpace(line) != "" {
			classIdx = -1
		}
	}
	return s
}

var genericFunctionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?mi)(?:export\s+)?(?:async\s+)?function\s+(\w+)\s*\(([^)]*)\)`),
	regexp.MustCompile(`(?mi)(?:export\s+)?const\s+(\w+)\s*=\s*(?:async\s+)?\(([^)]*)\)\s*=>`),
	regexp.MustCompile(`(?mi)(\w+)\s*:\s*(?:async\s+)?\(([^)]*)\)\s*=>`),
}

var genericClassPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?mi)(?:export\s+)?(?:abstract\s+)?class\s+(\w+)`),
	regexp.MustCompile(`(?mi)(?:export\s+)?interface\s+(\w+)`),
	regexp.MustCompile(`(?m)\benum\s+(\w+)`),
}

var genericImportPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?mi)import\s+(?:{[^}]+}|\w+|\*\s+as\s+\w+)\s+from\s+['"]([^'"]+)['"]`),
	regexp.MustCompile(`(?mi)const\s+(?:{[^}]+}|\w+)\s*=\s*require\(['"]([^'"]+)['"]\)`),
	regexp.MustCompile(`(?m)#include\s*<([^>]+)>`),
	regexp.MustCompile(`(?m)using\s+([^;]+);`),
}

func extractGenericStructure(code string) codeStructure {
	var s codeStructure
	seenFn := map[string]bool{}
	for _, pattern := range genericFunctionPatterns {
		for _, m := range pattern.FindAllStringSubmatch(code, -1) {
			name := m[1]
			if seenFn[name] {
				continue
			}
			seenFn[name] = true
			s.Functions = append(s.Functions, funcInfo{
				Name:    name,
				Args:    parseArgs(m[2]),
				IsAsync: strings.Contains(m[0], "async"),
			})
		}
	}

	seenCls := map[string]bool{}
	for _, pattern := range genericClassPatterns {
		for _, m := range pattern.FindAllStringSubmatch(code, -1) {
			if seenCls[m[1]] {
				continue
			}
			seenCls[m[1]] = true
			s.Classes = append(s.Classes, classInfo{Name: m[1]})
		}
	}

	seenImp := map[string]bool{}
	for _, pattern := range genericImportPatterns {
		for _, m := range pattern.FindAllStringSubmatch(code, -1) {
			imp := strings.TrimSpace(m[1])
			if imp == "" || seenImp[imp] {
				continue
			}
			seenImp[imp] = true
			s.Imports = append(s.Imports, imp)
		}
	}
	sort.Strings(s.Imports)
	return s
}

// parseArgs splits a parameter list and strips type annotations and default
// values, keeping only the parameter names.
func parseArgs(params string) []string {
	if strings.TrimSpace(params) == "" {
		return nil
	}
	var args []string
	for _, p := range strings.Split(params, ",") {
		name := strings.TrimSpace(p)
		if i := strings.IndexAny(name, ":="); i >= 0 {
			name = strings.TrimSpace(name[:i])
		}
		if name != "" {
			args = append(args, name)
		}
	}
	return args
}
