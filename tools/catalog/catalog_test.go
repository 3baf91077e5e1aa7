package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veltris.dev/codex/chat"
	"veltris.dev/codex/tools"
	"veltris.dev/codex/tools/codediff"
	"veltris.dev/codex/tools/fsops"
)

type stubProvider struct {
	response string
}

func (s *stubProvider) GenerateText(_ context.Context, _ string) (string, error) {
	return s.response, nil
}

func newDispatcher(t *testing.T, provider TextGenerator) *tools.Dispatcher {
	t.Helper()
	registry, err := New(provider)
	require.NoError(t, err)
	return tools.NewDispatcher(registry)
}

func TestNewRegistersAllTools(t *testing.T) {
	registry, err := New(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"analyze_code_structure",
		"comprehensive_code_review",
		"generate_code",
		"generate_code_diff",
		"generate_documentation",
		"generate_multiple_documentation",
		"list_directory",
		"modify_file_with_diff",
		"read_file",
		"refactor_code",
		"security_analysis",
		"smart_code_action",
		"write_file",
	}, registry.Names())
}

func TestFileToolsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	d := newDispatcher(t, nil)
	chatCtx := &chat.Context{WorkingDirectory: dir}

	written := d.Dispatch(context.Background(), "write_file", map[string]any{
		"file_path": "notes/hello.txt",
		"content":   "hello there",
	}, chatCtx)
	require.True(t, written.Success, written.Error)
	result, ok := written.Result.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "File notes/hello.txt written successfully.", result["message"])

	read := d.Dispatch(context.Background(), "read_file", map[string]any{
		"absolute_path": "notes/hello.txt",
	}, chatCtx)
	require.True(t, read.Success, read.Error)
	content := read.Result.(map[string]any)["content"]
	assert.Equal(t, "hello there", content)
}

func TestFileToolsBasePathOverridesWorkingDirectory(t *testing.T) {
	wd := t.TempDir()
	base := t.TempDir()
	d := newDispatcher(t, nil)
	chatCtx := &chat.Context{WorkingDirectory: wd}

	written := d.Dispatch(context.Background(), "write_file", map[string]any{
		"file_path": "pinned.txt",
		"content":   "rooted",
		"base_path": base,
	}, chatCtx)
	require.True(t, written.Success, written.Error)

	_, err := os.Stat(filepath.Join(base, "pinned.txt"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(wd, "pinned.txt"))
	assert.True(t, os.IsNotExist(err))

	read := d.Dispatch(context.Background(), "read_file", map[string]any{
		"absolute_path": "pinned.txt",
		"base_path":     base,
	}, chatCtx)
	require.True(t, read.Success, read.Error)
	assert.Equal(t, "rooted", read.Result.(map[string]any)["content"])
}

func TestWriteFileRejectsEscape(t *testing.T) {
	dir := t.TempDir()
	d := newDispatcher(t, nil)

	env := d.Dispatch(context.Background(), "write_file", map[string]any{
		"file_path": "../outside.txt",
		"content":   "nope",
	}, &chat.Context{WorkingDirectory: dir})

	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "tool execution failed")
}

func TestListDirectoryTool(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, fsops.WriteFile(dir, "main.go", "package main\n"))
	d := newDispatcher(t, nil)

	env := d.Dispatch(context.Background(), "list_directory", map[string]any{}, &chat.Context{WorkingDirectory: dir})
	require.True(t, env.Success, env.Error)

	tree := env.Result.(map[string]any)["tree"].([]fsops.TreeNode)
	require.Len(t, tree, 1)
	assert.Equal(t, "main.go", tree[0].Name)
	assert.Equal(t, "file", tree[0].Type)
}

func TestCodeDiffTool(t *testing.T) {
	d := newDispatcher(t, nil)

	env := d.Dispatch(context.Background(), "generate_code_diff", map[string]any{
		"old_code": "a\n",
		"new_code": "b\n",
	}, nil)
	require.True(t, env.Success, env.Error)

	result, ok := env.Result.(codediff.Result)
	require.True(t, ok)
	assert.Equal(t, 1, result.Summary.LinesAdded)
	assert.Equal(t, 1, result.Summary.LinesRemoved)
}

func TestRefactorToolRejectsUnknownType(t *testing.T) {
	d := newDispatcher(t, nil)

	env := d.Dispatch(context.Background(), "refactor_code", map[string]any{
		"original_code": "var x = 1;",
		"refactor_type": "rewrite_in_rust",
	}, nil)

	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "parameter validation failed")
}

func TestSecurityAnalysisTool(t *testing.T) {
	d := newDispatcher(t, nil)

	env := d.Dispatch(context.Background(), "security_analysis", map[string]any{
		"file_path":    "auth.js",
		"code_content": "const apiKey = \"sk-1234567890abcdef\";\n",
	}, nil)
	require.True(t, env.Success, env.Error)

	result := env.Result.(map[string]any)
	assert.Equal(t, true, result["success"])
	assert.NotNil(t, result["issues"])
	assert.NotNil(t, result["recommendations"])
}

func TestGenerateCodeTool(t *testing.T) {
	dir := t.TempDir()
	d := newDispatcher(t, &stubProvider{response: "print('hi')\n"})

	env := d.Dispatch(context.Background(), "generate_code", map[string]any{
		"items": []any{
			map[string]any{"prompt": "print a greeting", "file_path": "greet.py", "language": "python"},
		},
	}, &chat.Context{WorkingDirectory: dir})
	require.True(t, env.Success, env.Error)

	data, err := os.ReadFile(filepath.Join(dir, "greet.py"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "print('hi')")
}

func TestGenerateCodeToolRequiresItems(t *testing.T) {
	d := newDispatcher(t, nil)

	env := d.Dispatch(context.Background(), "generate_code", map[string]any{}, nil)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "parameter validation failed")
}

func TestUnknownToolEnvelope(t *testing.T) {
	d := newDispatcher(t, nil)

	env := d.Dispatch(context.Background(), "rm_rf", map[string]any{}, nil)
	assert.False(t, env.Success)
	assert.Contains(t, env.Error, "unknown tool")
}
