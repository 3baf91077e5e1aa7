package testgen

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateJavaScriptFunction(t *testing.T) {
	suite := Generate(Params{
		FilePath:    "math.js",
		CodeContent: "function add(a, b) {\n  return a + b;\n}\n",
	})

	assert.Equal(t, "javascript", suite.Language)
	assert.Equal(t, "jest", suite.Framework)
	assert.Equal(t, "math.test.js", suite.TestFilePath)

	require.Len(t, suite.TestCases, 4)
	names := make([]string, 0, len(suite.TestCases))
	for _, c := range suite.TestCases {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "test_add_happy_path")
	assert.Contains(t, names, "test_add_edge_cases")
	assert.Contains(t, names, "test_add_error_handling")
	assert.Contains(t, names, "test_add_boundary_conditions")

	assert.Equal(t, 100.0, suite.CoverageEstimate)
	assert.Greater(t, suite.QualityScore, 0.0)
	assert.Contains(t, suite.TestCases[0].TestCode, "const result = add(a, b);")
	assert.Contains(t, suite.SetupCode, "beforeEach")
	assert.Contains(t, suite.Imports[0], "@jest/globals")
	require.Len(t, suite.MockData, 2)
	assert.Equal(t, "mockUser", suite.MockData[0].Name)
}

func TestGeneratePythonAsyncFunction(t *testing.T) {
	code := "import os\n\ndef _helper(x):\n    return x\n\nasync def fetch_data(url):\n    return url\n"
	suite := Generate(Params{FilePath: "util.py", CodeContent: code})

	assert.Equal(t, "python", suite.Language)
	assert.Equal(t, "pytest", suite.Framework)
	assert.Equal(t, "test_util.py", suite.TestFilePath)

	// The private helper is skipped, leaving the four base scenarios for
	// fetch_data only.
	require.Len(t, suite.TestCases, 4)
	for _, c := range suite.TestCases {
		assert.True(t, strings.HasPrefix(c.Name, "test_fetch_data_"))
	}
	assert.Contains(t, suite.TestCases[0].TestCode, "@pytest.mark.asyncio")
	assert.Contains(t, suite.TestCases[0].TestCode, "await fetch_data(url)")
	assert.Contains(t, suite.Imports, "import pytest_asyncio")
}

func TestGenerateIncludesEdgeScenarios(t *testing.T) {
	suite := Generate(Params{
		FilePath:         "math.js",
		CodeContent:      "function add(a, b) { return a + b; }\n",
		IncludeEdgeCases: true,
	})

	// Five extra scenarios exist but the per-function cap keeps five cases.
	require.Len(t, suite.TestCases, 5)
	assert.Equal(t, "test_add_null_input", suite.TestCases[4].Name)
}

func TestGenerateClassConstructorTest(t *testing.T) {
	code := "class Greeter:\n    def __init__(self):\n        pass\n\n    def greet(self, name):\n        return name\n"
	suite := Generate(Params{FilePath: "greeter.py", CodeContent: code})

	var constructor *Case
	for i := range suite.TestCases {
		if suite.TestCases[i].Name == "test_Greeter_constructor" {
			constructor = &suite.TestCases[i]
		}
	}
	require.NotNil(t, constructor)
	assert.Contains(t, constructor.TestCode, "instance = Greeter()")
	assert.Equal(t, 3.0, constructor.ComplexityScore)
}

func TestGenerateScriptLevelPython(t *testing.T) {
	suite := Generate(Params{
		FilePath:    "loop.py",
		CodeContent: "for i in range(10):\n    print(i)\n",
	})

	require.Len(t, suite.TestCases, 3)
	assert.Equal(t, "test_script_execution", suite.TestCases[0].Name)
	assert.Equal(t, "integration", suite.TestCases[0].TestType)
	assert.Equal(t, 75.0, suite.CoverageEstimate)

	withEdge := Generate(Params{
		FilePath:         "loop.py",
		CodeContent:      "for i in range(10):\n    print(i)\n",
		IncludeEdgeCases: true,
	})
	require.Len(t, withEdge.TestCases, 4)
	assert.Equal(t, 100.0, withEdge.CoverageEstimate)
}

func TestChooseFramework(t *testing.T) {
	assert.Equal(t, "vitest", chooseFramework("vitest", "javascript", ""))
	assert.Equal(t, "jest", chooseFramework("auto", "javascript", "describe('x', () => {})"))
	assert.Equal(t, "pytest", chooseFramework("auto", "python", "x = 1"))
	assert.Equal(t, "testing", chooseFramework("auto", "go", "package main"))
	assert.Equal(t, "jest", chooseFramework("auto", "generic", "x"))
}

func TestTestFilePath(t *testing.T) {
	assert.Equal(t, "src/test_util.py", testFilePath("src/util.py", "pytest"))
	assert.Equal(t, "src/app.test.ts", testFilePath("src/app.ts", "vitest"))
	assert.Equal(t, "pkg/main_test.go", testFilePath("pkg/main.go", "testing"))
}

func TestIntegrationCases(t *testing.T) {
	code := "import express from 'express';\nimport db from './database';\n\nfunction handler(req) { return req; }\n"
	suite := Generate(Params{
		FilePath:            "server.js",
		CodeContent:         code,
		TestTypes:           []string{"unit", "integration"},
		MaxTestsPerFunction: 10,
	})

	names := make([]string, 0, len(suite.TestCases))
	for _, c := range suite.TestCases {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "test_api_integration")
	assert.Contains(t, names, "test_database_integration")
}

func TestBatchGenerate(t *testing.T) {
	suites := BatchGenerate([]string{"a.js", "b.py"}, Params{CodeContent: "function f() {}\n"})
	require.Len(t, suites, 2)
	assert.Equal(t, "a.js", suites[0].FilePath)
	assert.Equal(t, "b.py", suites[1].FilePath)
	assert.Equal(t, "javascript", suites[0].Language)
	assert.Equal(t, "python", suites[1].Language)
}

func TestAnalyzeTestabilityPython(t *testing.T) {
	code := "import os\nimport sys\n\ndef load(path):\n    if path:\n        return path\n    return None\n"
	res := AnalyzeTestability(Params{FilePath: "loader.py", CodeContent: code})

	assert.Equal(t, []string{"load"}, res.TestableFunctions)
	assert.Empty(t, res.ComplexFunctions)
	assert.Equal(t, []string{"os", "sys"}, res.Dependencies)
	assert.Empty(t, res.ExistingTests)
	assert.InDelta(t, 10.0, res.TestabilityScore, 1e-9)
	assert.Contains(t, res.Recommendations, "No existing test functions found - start with basic unit tests")
}

func TestAnalyzeCoverage(t *testing.T) {
	code := "def load(path):\n    return path\n"
	res := AnalyzeCoverage(Params{FilePath: "loader.py", CodeContent: code})

	assert.Equal(t, 0.0, res.CurrentCoverage)
	assert.Equal(t, []string{"load"}, res.UncoveredFunctions)
	require.Len(t, res.SuggestedTests, 1)
	assert.Equal(t, "Add unit tests for load() function", res.SuggestedTests[0])
	assert.Equal(t, 1, res.CoverageReport["total_functions"])
}

func TestValidateTestCode(t *testing.T) {
	empty := ValidateTestCode("   ", "python", "pytest")
	assert.False(t, empty.IsValid)
	assert.Contains(t, empty.SyntaxErrors, "Test code is empty")

	noAssert := ValidateTestCode("test('x', () => {});", "javascript", "jest")
	assert.True(t, noAssert.IsValid)
	assert.Contains(t, noAssert.Warnings, "No assertions found - consider adding expect() statements")

	good := ValidateTestCode("def test_x():\n    assert x is not None\n", "python", "pytest")
	assert.True(t, good.IsValid)
	assert.Empty(t, good.Warnings)
	assert.Equal(t, 9.0, good.QualityScore)
}

func TestDataFactoryPython(t *testing.T) {
	code := DataFactory(FactorySchema{
		Name:   "User",
		Fields: map[string]string{"id": "number", "email": "email"},
	}, "python")

	assert.Contains(t, code, "class UserFactory:")
	assert.Contains(t, code, `"id": random.randint(1, 100),`)
	assert.Contains(t, code, "@example.com")
	assert.Contains(t, code, "def create_batch(")
}

func TestDataFactoryTypeScript(t *testing.T) {
	code := DataFactory(FactorySchema{
		Name:   "User",
		Fields: map[string]string{"id": "number", "active": "boolean"},
	}, "typescript")

	assert.Contains(t, code, "export interface User {")
	assert.Contains(t, code, "id: number;")
	assert.Contains(t, code, "active: boolean;")
	assert.Contains(t, code, "export class UserFactory {")
	assert.Contains(t, code, "static createBatch(count: number")
}

func TestSupportedFrameworks(t *testing.T) {
	fw := SupportedFrameworks()
	assert.Contains(t, fw["go"], "testify")
	assert.Contains(t, fw["python"], "pytest")
}
