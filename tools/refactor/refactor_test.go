package refactor

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRefactorUnsupportedType(t *testing.T) {
	_, err := Refactor("code", "rewrite_in_rust")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported refactor type")
}

func TestOptimizeRemovesConsoleLog(t *testing.T) {
	code := "console.log(x);\nconst y = 1;\n"
	res, err := Refactor(code, TypeOptimize)
	require.NoError(t, err)

	assert.NotContains(t, res.RefactoredCode, "console.log")
	assert.Contains(t, res.RefactoredCode, "const y = 1;")
	assert.Equal(t, TypeOptimize, res.RefactorType)
	require.NotEmpty(t, res.Changes)
	assert.Equal(t, "optimization", res.Changes[0].Type)
}

func TestOptimizeVarToConst(t *testing.T) {
	res, err := Refactor("var count = 0;\n", TypeOptimize)
	require.NoError(t, err)
	assert.Contains(t, res.RefactoredCode, "const count = 0;")
}

func TestOptimizeTemplateLiterals(t *testing.T) {
	res, err := Refactor(`greeting + " and " + name`, TypeOptimize)
	require.NoError(t, err)
	assert.Contains(t, res.RefactoredCode, "`${greeting} and ${name}`")
}

func TestOptimizeListComprehension(t *testing.T) {
	code := "def collect(items):\n" +
		"result = []\n" +
		"for item in items:\n" +
		"result.append(item * 2)\n"
	res, err := Refactor(code, TypeOptimize)
	require.NoError(t, err)

	assert.Contains(t, res.RefactoredCode, "result = [item * 2 for item in items]")
	assert.NotContains(t, res.RefactoredCode, ".append(")
}

func TestOptimizeNoChanges(t *testing.T) {
	code := "const a = 1;\n"
	res, err := Refactor(code, TypeOptimize)
	require.NoError(t, err)
	assert.Equal(t, code, res.RefactoredCode)
	assert.Empty(t, res.Changes)
}

func TestModernizeArrowFunctions(t *testing.T) {
	res, err := Refactor("function add(a, b) {\n  return a + b;\n}\n", TypeModernize)
	require.NoError(t, err)
	assert.Contains(t, res.RefactoredCode, "const add = (a, b) => {")
}

func TestModernizeDestructuring(t *testing.T) {
	res, err := Refactor("const name = user.name;\n", TypeModernize)
	require.NoError(t, err)
	assert.Contains(t, res.RefactoredCode, "const { name: name } = user;")
}

func TestModernizeThenChainSuggestion(t *testing.T) {
	res, err := Refactor("fetch(url).then(handle);\n", TypeModernize)
	require.NoError(t, err)
	assert.Contains(t, res.Improvements, "Consider using async/await instead of .then() chains")
	// Suggestion only, code untouched.
	assert.Contains(t, res.RefactoredCode, ".then(")
}

func TestAddTypesPropsInterface(t *testing.T) {
	res, err := Refactor("const title = props.title;\n", TypeAddTypes)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.RefactoredCode, "interface Props {"))
}

func TestAddTypesTypingImport(t *testing.T) {
	code := "def gather(values):\n" +
		"    values.append(1)\n"
	res, err := Refactor(code, TypeAddTypes)
	require.NoError(t, err)

	assert.Contains(t, res.RefactoredCode, "def gather(values: List[Any]) -> None:")
	assert.True(t, strings.HasPrefix(res.RefactoredCode, "from typing import List, Any, Optional"))
}

func TestAddTypesNoOpSuggestion(t *testing.T) {
	res, err := Refactor("const x = 1;\n", TypeAddTypes)
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
	assert.Contains(t, res.Improvements, "Consider adding type annotations for better code clarity")
}

func TestExtractComponentsRepeatedJSX(t *testing.T) {
	code := strings.Repeat("<Card title=\"x\">body</Card>\n", 3)
	res, err := Refactor(code, TypeExtractComponents)
	require.NoError(t, err)

	require.NotEmpty(t, res.Improvements)
	assert.Contains(t, res.Improvements[0], "<Card>")
}

func TestExtractComponentsIgnoresPrimitives(t *testing.T) {
	code := strings.Repeat("<div>x</div>\n", 5)
	res, err := Refactor(code, TypeExtractComponents)
	require.NoError(t, err)
	assert.Empty(t, res.Changes)
}

func TestExtractComponentsLongFunction(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("def process(data):\n")
	for i := 0; i < 25; i++ {
		sb.WriteString("    x = 1\n")
	}
	res, err := Refactor(sb.String(), TypeExtractComponents)
	require.NoError(t, err)

	found := false
	for _, imp := range res.Improvements {
		if strings.Contains(imp, "'process' is too long") {
			found = true
		}
	}
	assert.True(t, found, "expected long function suggestion, got %v", res.Improvements)
}

func TestExtractComponentsCustomHooks(t *testing.T) {
	code := "const [x, setX] = useState(0);\nuseEffect(() => {}, []);\n"
	res, err := Refactor(code, TypeExtractComponents)
	require.NoError(t, err)
	assert.Contains(t, res.Improvements, "Consider extracting complex state logic into custom hooks")
}
