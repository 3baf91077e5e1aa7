package testgen

import (
	"fmt"
	"sort"
	"strings"
)

// FactorySchema describes the shape of the test data a factory produces.
// Fields map field names to one of: string, number, email, boolean, date,
// array, object.
type FactorySchema struct {
	Name   string            `json:"name"`
	Fields map[string]string `json:"fields"`
}

// DataFactory emits source code for a test data factory in the requested
// language. Fields are emitted in name order so output is stable.
func DataFactory(schema FactorySchema, language string) string {
	if schema.Name == "" {
		schema.Name = "TestData"
	}
	if language == "python" {
		return pythonDataFactory(schema)
	}
	return typescriptDataFactory(schema)
}

func sortedFields(fields map[string]string) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func pythonDataFactory(schema FactorySchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, `
import random
import string
from datetime import datetime, timedelta
from typing import Dict, Any, List

class %sFactory:
    """Test data factory for %s."""

    @staticmethod
    def create(overrides: Dict[str, Any] = None) -> Dict[str, Any]:
        """Create test data with optional overrides."""
        data = {
`, schema.Name, schema.Name)

	for _, field := range sortedFields(schema.Fields) {
		switch schema.Fields[field] {
		case "string":
			fmt.Fprintf(&b, "            \"%s\": \"test_%s_\" + \"\".join(random.choices(string.ascii_lowercase, k=5)),\n", field, field)
		case "number":
			fmt.Fprintf(&b, "            \"%s\": random.randint(1, 100),\n", field)
		case "email":
			fmt.Fprintf(&b, "            \"%s\": f\"test{random.randint(1, 1000)}@example.com\",\n", field)
		case "boolean":
			fmt.Fprintf(&b, "            \"%s\": random.choice([True, False]),\n", field)
		case "date":
			fmt.Fprintf(&b, "            \"%s\": datetime.now() - timedelta(days=random.randint(1, 30)),\n", field)
		default:
			fmt.Fprintf(&b, "            \"%s\": \"test_value\",\n", field)
		}
	}

	b.WriteString(`        }

        if overrides:
            data.update(overrides)

        return data

    @staticmethod
    def create_batch(count: int, overrides: Dict[str, Any] = None) -> List[Dict[str, Any]]:
        """Create multiple test data instances."""
        return [` + schema.Name + `Factory.create(overrides) for _ in range(count)]
`)
	return b.String()
}

var tsFieldTypes = map[string]string{
	"string":  "string",
	"number":  "number",
	"email":   "string",
	"boolean": "boolean",
	"date":    "Date",
	"array":   "any[]",
	"object":  "Record<string, any>",
}

func typescriptDataFactory(schema FactorySchema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\nexport interface %s {\n", schema.Name)
	for _, field := range sortedFields(schema.Fields) {
		tsType, ok := tsFieldTypes[schema.Fields[field]]
		if !ok {
			tsType = "any"
		}
		fmt.Fprintf(&b, "  %s: %s;\n", field, tsType)
	}
	b.WriteString("}\n\n")

	fmt.Fprintf(&b, `export class %sFactory {
  static create(overrides: Partial<%s> = {}): %s {
    const data: %s = {
`, schema.Name, schema.Name, schema.Name, schema.Name)

	for _, field := range sortedFields(schema.Fields) {
		switch schema.Fields[field] {
		case "string":
			fmt.Fprintf(&b, "      %s: `test_%s_${Math.random().toString(36).substr(2, 5)}`,\n", field, field)
		case "number":
			fmt.Fprintf(&b, "      %s: Math.floor(Math.random() * 100) + 1,\n", field)
		case "email":
			fmt.Fprintf(&b, "      %s: `test${Math.floor(Math.random() * 1000)}@example.com`,\n", field)
		case "boolean":
			fmt.Fprintf(&b, "      %s: Math.random() > 0.5,\n", field)
		case "date":
			fmt.Fprintf(&b, "      %s: new Date(Date.now() - Math.random() * 30 * 24 * 60 * 60 * 1000),\n", field)
		default:
			fmt.Fprintf(&b, "      %s: \"test_value\",\n", field)
		}
	}

	fmt.Fprintf(&b, `    };

    return { ...data, ...overrides };
  }

  static createBatch(count: number, overrides: Partial<%s> = {}): %s[] {
    return Array.from({ length: count }, () => this.create(overrides));
  }
}
`, schema.Name, schema.Name)
	return b.String()
}
