package filemod

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"goa.design/clue/log"

	"veltris.dev/codex/tools/analysis"
	"veltris.dev/codex/tools/fsops"
	"veltris.dev/codex/tools/refactor"
)

type (
	// Strategy describes how a smart action request will be executed.
	Strategy struct {
		StrategyType     string   `json:"strategy_type"`
		RefactorType     string   `json:"refactor_type,omitempty"`
		SpecificActions  []string `json:"specific_actions"`
		Priority         string   `json:"priority"`
		Reasoning        string   `json:"reasoning"`
		EstimatedChanges string   `json:"estimated_changes"`
	}

	// SmartActionResult is the smart_code_action tool payload.
	SmartActionResult struct {
		Success       bool            `json:"success"`
		FilePath      string          `json:"file_path"`
		ActionRequest string          `json:"action_request"`
		StrategyUsed  Strategy        `json:"strategy_used"`
		Analysis      analysis.Result `json:"analysis"`
		Result        map[string]any  `json:"result"`
	}

	// SmartAction routes natural language improvement requests to concrete
	// strategies.
	SmartAction struct {
		provider TextGenerator
		modifier *Modifier
	}
)

// NewSmartAction returns a smart action service sharing the modifier's
// provider.
func NewSmartAction(provider TextGenerator) *SmartAction {
	return &SmartAction{provider: provider, modifier: NewModifier(provider)}
}

// Perform analyzes the file, determines a strategy and executes it.
// fileContent is read from the sandbox when empty.
func (s *SmartAction) Perform(ctx context.Context, baseDir, filePath, actionRequest, fileContent string) (SmartActionResult, error) {
	if filePath == "" || actionRequest == "" {
		return SmartActionResult{}, fmt.Errorf("file_path and action_request are required")
	}
	if fileContent == "" {
		content, err := fsops.ReadFile(baseDir, filePath)
		if err != nil {
			return SmartActionResult{}, fmt.Errorf("could not read file %s: %w", filePath, err)
		}
		fileContent = content
	}

	analysisResult := analysis.Analyze(filePath, fileContent)
	strategy := s.determineStrategy(ctx, actionRequest, fileContent, analysisResult, filePath)
	result, err := s.execute(ctx, strategy, baseDir, filePath, fileContent, analysisResult)
	if err != nil {
		return SmartActionResult{}, err
	}

	return SmartActionResult{
		Success:       true,
		FilePath:      filePath,
		ActionRequest: actionRequest,
		StrategyUsed:  strategy,
		Analysis:      analysisResult,
		Result:        result,
	}, nil
}

func (s *SmartAction) determineStrategy(ctx context.Context, actionRequest, fileContent string, res analysis.Result, filePath string) Strategy {
	if s.provider == nil {
		return fallbackStrategy(actionRequest)
	}
	response, err := s.provider.GenerateText(ctx, strategyPrompt(actionRequest, fileContent, res, filePath))
	if err != nil {
		log.Debugf(ctx, "strategy generation failed, using fallback: %v", err)
		return fallbackStrategy(actionRequest)
	}

	cleaned := strings.TrimSpace(response)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimSuffix(cleaned, "```")

	var strategy Strategy
	if err := json.Unmarshal([]byte(cleaned), &strategy); err != nil || strategy.StrategyType == "" {
		log.Debugf(ctx, "unparseable strategy response, using fallback: %v", err)
		return fallbackStrategy(actionRequest)
	}
	return strategy
}

func strategyPrompt(actionRequest, fileContent string, res analysis.Result, filePath string) string {
	snippet := fileContent
	if len(snippet) > 2000 {
		snippet = snippet[:2000] + "..."
	}
	return fmt.Sprintf(`You are a code improvement expert. Analyze this code action request and determine the best strategy.

FILE: %s
ACTION REQUEST: %s

CURRENT CODE ANALYSIS:
- Lines of Code: %d
- Complexity: %d
- Maintainability Score: %.1f
- Functions: %s
- Detected Patterns: %s

CODE CONTENT:
`+"```"+`
%s
`+"```"+`

Respond with a JSON object containing:
{
    "strategy_type": "refactor|modify|analyze|security|documentation",
    "refactor_type": "optimize|modernize|add_types|extract_components|null",
    "specific_actions": ["action1", "action2"],
    "priority": "high|medium|low",
    "reasoning": "explanation of why this strategy was chosen",
    "estimated_changes": "brief description of expected changes"
}`,
		filePath, actionRequest,
		res.Metrics.LinesOfCode, res.Metrics.Complexity, res.Metrics.MaintainabilityScore,
		strings.Join(res.Structure.Functions, ", "),
		strings.Join(res.Patterns, ", "),
		snippet,
	)
}

func fallbackStrategy(actionRequest string) Strategy {
	action := strings.ToLower(actionRequest)
	has := func(words ...string) bool {
		for _, w := range words {
			if strings.Contains(action, w) {
				return true
			}
		}
		return false
	}
	switch {
	case has("optimize", "performance", "faster"):
		return Strategy{
			StrategyType:     "refactor",
			RefactorType:     refactor.TypeOptimize,
			SpecificActions:  []string{"remove_console_logs", "optimize_loops", "use_templates"},
			Priority:         "high",
			Reasoning:        "Request contains optimization keywords",
			EstimatedChanges: "Performance improvements and code cleanup",
		}
	case has("type", "hint", "annotation"):
		return Strategy{
			StrategyType:     "refactor",
			RefactorType:     refactor.TypeAddTypes,
			SpecificActions:  []string{"add_type_hints", "add_interfaces"},
			Priority:         "medium",
			Reasoning:        "Request contains typing keywords",
			EstimatedChanges: "Add type annotations for better code clarity",
		}
	case has("modern", "convert", "upgrade", "async", "await"):
		return Strategy{
			StrategyType:     "refactor",
			RefactorType:     refactor.TypeModernize,
			SpecificActions:  []string{"modernize_syntax", "convert_async"},
			Priority:         "medium",
			Reasoning:        "Request contains modernization keywords",
			EstimatedChanges: "Update to modern language features",
		}
	case has("error", "handling", "exception", "try", "catch"):
		return Strategy{
			StrategyType:     "modify",
			SpecificActions:  []string{"add_error_handling", "add_validation"},
			Priority:         "high",
			Reasoning:        "Request involves error handling improvements",
			EstimatedChanges: "Add comprehensive error handling and validation",
		}
	case has("doc", "comment", "docstring"):
		return Strategy{
			StrategyType:     "documentation",
			SpecificActions:  []string{"add_docstrings", "add_comments"},
			Priority:         "medium",
			Reasoning:        "Request involves documentation improvements",
			EstimatedChanges: "Add documentation and comments",
		}
	case has("security", "bug", "vulnerability", "safe"):
		return Strategy{
			StrategyType:     "security",
			SpecificActions:  []string{"security_scan", "bug_detection"},
			Priority:         "high",
			Reasoning:        "Request involves security or bug analysis",
			EstimatedChanges: "Security analysis and bug detection",
		}
	}
	return Strategy{
		StrategyType:     "analyze",
		SpecificActions:  []string{"general_analysis"},
		Priority:         "medium",
		Reasoning:        "General code improvement request",
		EstimatedChanges: "General code analysis and suggestions",
	}
}

func (s *SmartAction) execute(ctx context.Context, strategy Strategy, baseDir, filePath, fileContent string, res analysis.Result) (map[string]any, error) {
	switch strategy.StrategyType {
	case "refactor":
		return s.executeRefactor(strategy, fileContent)
	case "modify":
		request := "Apply the following improvements: " + strings.Join(strategy.SpecificActions, ", ")
		return s.executeModification(ctx, baseDir, filePath, request, fileContent, "modify")
	case "documentation":
		return s.executeDocumentation(ctx, strategy, baseDir, filePath, fileContent)
	case "security":
		return executeSecurity(filePath, fileContent), nil
	}
	return map[string]any{
		"type":        "analysis",
		"structure":   res.Structure,
		"metrics":     res.Metrics,
		"suggestions": res.Suggestions,
		"patterns":    res.Patterns,
		"recommendations": []string{
			fmt.Sprintf("Current maintainability score: %.1f/100", res.Metrics.MaintainabilityScore),
			fmt.Sprintf("Code complexity: %d", res.Metrics.Complexity),
			"Consider the suggestions above for improvements",
		},
	}, nil
}

func (s *SmartAction) executeRefactor(strategy Strategy, fileContent string) (map[string]any, error) {
	refactorType := strategy.RefactorType
	switch refactorType {
	case refactor.TypeOptimize, refactor.TypeModernize, refactor.TypeAddTypes, refactor.TypeExtractComponents:
	default:
		refactorType = refactor.TypeOptimize
	}
	result, err := refactor.Refactor(fileContent, refactorType)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":            "refactor",
		"refactored_code": result.RefactoredCode,
		"changes":         result.Changes,
		"improvements":    result.Improvements,
		"refactor_type":   result.RefactorType,
	}, nil
}

func (s *SmartAction) executeModification(ctx context.Context, baseDir, filePath, request, fileContent, resultType string) (map[string]any, error) {
	result, err := s.modifier.ModifyWithDiff(ctx, baseDir, filePath, request, fileContent)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"type":             resultType,
		"original_content": result.OriginalContent,
		"modified_content": result.ModifiedContent,
		"diff":             result.Diff,
		"summary":          result.ModificationSummary,
	}, nil
}

func (s *SmartAction) executeDocumentation(ctx context.Context, strategy Strategy, baseDir, filePath, fileContent string) (map[string]any, error) {
	for _, action := range strategy.SpecificActions {
		if action == "add_docstrings" {
			request := "Add comprehensive docstrings to all functions and classes. " +
				"Follow standard docstring conventions for the detected language."
			return s.executeModification(ctx, baseDir, filePath, request, fileContent, "documentation")
		}
	}
	return map[string]any{
		"type": "documentation",
		"suggestions": []string{
			"Add docstrings to functions and classes",
			"Include type hints in documentation",
			"Add inline comments for complex logic",
			"Consider adding README section for this module",
		},
	}, nil
}

func executeSecurity(filePath, fileContent string) map[string]any {
	sec := analysis.AnalyzeSecurity(filePath, fileContent)
	severity := "low"
	if len(sec.Issues) > 0 {
		severity = "high"
	}
	return map[string]any{
		"type":            "security",
		"security_issues": sec.Issues,
		"security_score":  sec.SecurityScore,
		"suggestions":     sec.Recommendations,
		"severity":        severity,
	}
}
