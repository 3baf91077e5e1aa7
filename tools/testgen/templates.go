package testgen

import (
	"fmt"
	"strings"
)

func testCode(fn funcInfo, scenario, language, framework string) string {
	switch {
	case language == "python" && framework == "pytest":
		return pythonTestCode(fn, scenario)
	case (language == "javascript" || language == "typescript") && (framework == "jest" || framework == "vitest"):
		return javascriptTestCode(fn, scenario)
	default:
		return genericTestCode(fn, scenario)
	}
}

func pythonTestCode(fn funcInfo, scenario string) string {
	asyncMark := ""
	asyncKw := ""
	awaitKw := ""
	if fn.IsAsync {
		asyncMark = "@pytest.mark.asyncio\n"
		asyncKw = "async "
		awaitKw = "await "
	}

	switch scenario {
	case "edge_cases":
		return fmt.Sprintf(`
%s%sdef test_%s_edge_cases():
    """Test %s with edge case inputs."""
    edge_inputs = ["", 0, -1, None, [], {}]

    for edge_input in edge_inputs:
        result = %s%s(edge_input)
        assert result is not None
`, asyncMark, asyncKw, fn.Name, fn.Name, awaitKw, fn.Name)
	case "error_handling":
		return fmt.Sprintf(`
%s%sdef test_%s_error_handling():
    """Test %s error handling."""
    with pytest.raises((ValueError, TypeError, Exception)):
        %s%s(None)
`, asyncMark, asyncKw, fn.Name, fn.Name, awaitKw, fn.Name)
	default:
		return fmt.Sprintf(`
%s%sdef test_%s_happy_path():
    """Test %s with valid input."""
    # Arrange
    %s

    # Act
    result = %s%s(%s)

    # Assert
    assert result is not None
    assert isinstance(result, (str, int, float, bool, list, dict))
`, asyncMark, asyncKw, fn.Name, fn.Name, pythonTestData(fn.Args), awaitKw, fn.Name, strings.Join(fn.Args, ", "))
	}
}

func javascriptTestCode(fn funcInfo, scenario string) string {
	awaitKw := ""
	errMatcher := "throws"
	if fn.IsAsync {
		awaitKw = "await "
		errMatcher = "rejects"
	}

	switch scenario {
	case "edge_cases":
		return fmt.Sprintf(`
test('%s should handle edge cases correctly', async () => {
  const edgeCases = ["", 0, -1, null, undefined, [], {}];

  for (const edgeCase of edgeCases) {
    const result = %s%s(edgeCase);
    expect(result).toBeDefined();
  }
});
`, fn.Name, awaitKw, fn.Name)
	case "error_handling":
		return fmt.Sprintf(`
test('%s should handle errors appropriately', async () => {
  %sexpect(() => %s(null)).%s();
  %sexpect(() => %s(undefined)).%s();
});
`, fn.Name, awaitKw, fn.Name, errMatcher, awaitKw, fn.Name, errMatcher)
	default:
		return fmt.Sprintf(`
test('%s should return expected result for valid input', async () => {
  // Arrange
  %s

  // Act
  const result = %s%s(%s);

  // Assert
  expect(result).toBeDefined();
  expect(result).not.toBeNull();
});
`, fn.Name, javascriptTestData(fn.Args), awaitKw, fn.Name, strings.Join(fn.Args, ", "))
	}
}

func genericTestCode(fn funcInfo, scenario string) string {
	return fmt.Sprintf(`
// Test for %s - %s
test('%s %s', () => {
  expect(true).toBe(true);
});
`, fn.Name, scenario, fn.Name, scenario)
}

func constructorTest(className, language string) string {
	if language == "python" {
		return fmt.Sprintf(`
def test_%s_constructor():
    """Test %s constructor."""
    instance = %s()
    assert isinstance(instance, %s)
    assert hasattr(instance, '__class__')
`, className, className, className, className)
	}
	return fmt.Sprintf(`
test('%s constructor should create instance', () => {
  const instance = new %s();
  expect(instance).toBeInstanceOf(%s);
  expect(instance).toBeDefined();
});
`, className, className, className)
}

func pythonTestData(args []string) string {
	if len(args) == 0 {
		return "# No arguments needed"
	}
	lines := make([]string, 0, len(args))
	for _, arg := range args {
		switch arg {
		case "id", "count", "num":
			lines = append(lines, fmt.Sprintf("%s = 1", arg))
		case "name", "title", "text":
			lines = append(lines, fmt.Sprintf("%s = \"test_value\"", arg))
		case "email":
			lines = append(lines, fmt.Sprintf("%s = \"test@example.com\"", arg))
		case "data", "obj":
			lines = append(lines, fmt.Sprintf("%s = {\"key\": \"value\"}", arg))
		default:
			lines = append(lines, fmt.Sprintf("%s = \"test_data\"", arg))
		}
	}
	return strings.Join(lines, "\n    ")
}

func javascriptTestData(args []string) string {
	if len(args) == 0 {
		return "// No arguments needed"
	}
	lines := make([]string, 0, len(args))
	for _, arg := range args {
		switch arg {
		case "id", "count", "num":
			lines = append(lines, fmt.Sprintf("const %s = 1;", arg))
		case "name", "title", "text":
			lines = append(lines, fmt.Sprintf("const %s = \"test_value\";", arg))
		case "email":
			lines = append(lines, fmt.Sprintf("const %s = \"test@example.com\";", arg))
		case "data", "obj":
			lines = append(lines, fmt.Sprintf("const %s = { key: \"value\" };", arg))
		default:
			lines = append(lines, fmt.Sprintf("const %s = \"test_data\";", arg))
		}
	}
	return strings.Join(lines, "\n  ")
}

func apiIntegrationTest(language string) string {
	if language == "python" {
		return `
import pytest
from fastapi.testclient import TestClient

def test_api_endpoints(client: TestClient):
    """Test API endpoints integration."""
    response = client.get("/health")
    assert response.status_code == 200

    response = client.post("/api/test", json={"test": "data"})
    assert response.status_code in [200, 201]
`
	}
	return `
import request from 'supertest';
import app from '../app';

test('API integration test', async () => {
  const response = await request(app)
    .get('/api/health')
    .expect(200);

  expect(response.body).toBeDefined();
});
`
}

func databaseIntegrationTest(language string) string {
	if language == "python" {
		return `
import pytest
from sqlalchemy import create_engine
from sqlalchemy.orm import sessionmaker

@pytest.fixture
def db_session():
    """Create test database session."""
    engine = create_engine("sqlite:///:memory:")
    TestingSessionLocal = sessionmaker(bind=engine)
    return TestingSessionLocal()

def test_database_operations(db_session):
    """Test database operations."""
    assert db_session is not None
`
	}
	return `
import { createConnection } from 'typeorm';

test('database integration test', async () => {
  const connection = await createConnection({
    type: 'sqlite',
    database: ':memory:',
    synchronize: true,
  });

  expect(connection).toBeDefined();
  expect(connection.isConnected).toBe(true);

  await connection.close();
});
`
}

func pythonScriptExecutionTest(code string) string {
	return fmt.Sprintf(`
def test_script_execution():
    """Test that the script executes without errors."""
    import subprocess
    import tempfile
    import os

    script_content = """%s"""

    with tempfile.NamedTemporaryFile(mode='w', suffix='.py', delete=False) as f:
        f.write(script_content)
        script_path = f.name

    try:
        result = subprocess.run(
            ['python', script_path],
            capture_output=True,
            text=True,
            timeout=10
        )

        assert result.returncode == 0, f"Script failed with error: {result.stderr}"

    finally:
        os.unlink(script_path)
`, code)
}

func pythonScriptOutputTest(code string) string {
	return fmt.Sprintf(`
def test_script_output():
    """Test that the script produces expected output."""
    import subprocess
    import tempfile
    import os

    script_content = """%s"""

    with tempfile.NamedTemporaryFile(mode='w', suffix='.py', delete=False) as f:
        f.write(script_content)
        script_path = f.name

    try:
        result = subprocess.run(
            ['python', script_path],
            capture_output=True,
            text=True,
            timeout=10
        )

        assert result.stdout, "Script should produce some output"
        lines = result.stdout.strip().split('\n')
        assert len(lines) > 0, "Script should output at least one line"

    finally:
        os.unlink(script_path)
`, code)
}

func pythonScriptLogicTest(code string) string {
	if strings.Contains(strings.ToLower(code), "prime") {
		return `
def test_prime_algorithm_correctness():
    """Test that the prime detection algorithm is correct."""
    known_primes = [2, 3, 5, 7, 11, 13, 17, 19, 23, 29, 31, 37, 41, 43, 47]
    known_non_primes = [1, 4, 6, 8, 9, 10, 12, 14, 15, 16, 18, 20, 21, 22, 24]

    def is_prime_test(num):
        if num < 2:
            return False
        for i in range(2, num):
            if num % i == 0:
                return False
        return True

    for prime in known_primes:
        assert is_prime_test(prime), f"{prime} should be detected as prime"

    for non_prime in known_non_primes:
        assert not is_prime_test(non_prime), f"{non_prime} should not be detected as prime"
`
	}
	return `
def test_script_algorithm():
    """Test the algorithm logic in the script."""
    assert True, "Replace with specific algorithm tests"
`
}

func pythonScriptEdgeCasesTest() string {
	return `
def test_script_edge_cases():
    """Test edge cases in the script logic."""
    edge_values = [0, 1, 2, -1, -5]

    def test_edge_value(val):
        try:
            if val < 2:
                is_prime = False
            else:
                is_prime = True
                for i in range(2, val):
                    if val % i == 0:
                        is_prime = False
                        break
            return is_prime
        except Exception:
            return False

    for val in edge_values:
        result = test_edge_value(val)
        assert isinstance(result, bool), f"Algorithm should return boolean for {val}"
`
}

func setupTeardown(language, framework string) (string, string) {
	if language == "python" && framework == "pytest" {
		setup := `
import pytest
from unittest.mock import Mock, patch

@pytest.fixture(autouse=True)
def setup_test_environment():
    """Setup test environment."""
    yield
`
		teardown := `
def pytest_runtest_teardown(item):
    """Cleanup after each test."""
    pass
`
		return setup, teardown
	}

	setup := `
beforeEach(() => {
  jest.clearAllMocks();
});

beforeAll(() => {
});
`
	teardown := `
afterEach(() => {
  jest.restoreAllMocks();
});

afterAll(() => {
});
`
	return setup, teardown
}

func testImports(language, framework string) []string {
	if language == "python" {
		imports := []string{
			"import pytest",
			"from unittest.mock import Mock, patch, MagicMock",
			"import asyncio",
		}
		if framework == "pytest" {
			imports = append(imports, "import pytest_asyncio")
		}
		return imports
	}
	if framework == "vitest" {
		return []string{
			"import { describe, test, expect, beforeEach, afterEach, vi } from 'vitest';",
		}
	}
	return []string{
		"import { describe, test, expect, beforeEach, afterEach } from '@jest/globals';",
		"import { jest } from '@jest/globals';",
	}
}
