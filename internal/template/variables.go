// Package template implements dashboard query variables. A query may carry
// {{name}} placeholders that are replaced with typed values before the query
// is handed to a backend.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// VariableType defines how a variable's value is rendered into the query.
type VariableType string

const (
	// TypeString renders the value quoted and escaped.
	TypeString VariableType = "string"
	// TypeText is an alias for string.
	TypeText VariableType = "text"
	// TypeNumber renders the value as-is after numeric validation.
	TypeNumber VariableType = "number"
	// TypeDate renders the value as a quoted datetime literal.
	TypeDate VariableType = "date"
)

// Variable is a template variable with its value.
type Variable struct {
	Name  string       `json:"name"`
	Type  VariableType `json:"type"`
	Value any          `json:"value"`
}

var (
	// variablePattern matches {{variable_name}} with optional whitespace.
	variablePattern = regexp.MustCompile(`\{\{\s*([a-zA-Z_][a-zA-Z0-9_]*)\s*\}\}`)
	// validNamePattern validates variable names.
	validNamePattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)
)

// Substitute replaces {{variable}} placeholders in the query with typed
// values. A placeholder with no matching variable is an error, as is a
// variable whose value cannot be rendered for its declared type.
func Substitute(query string, variables []Variable) (string, error) {
	if len(variables) == 0 {
		return query, nil
	}

	varMap := make(map[string]Variable, len(variables))
	for _, v := range variables {
		if !validNamePattern.MatchString(v.Name) {
			return "", fmt.Errorf("invalid variable name: %s", v.Name)
		}
		varMap[v.Name] = v
	}

	matches := variablePattern.FindAllStringSubmatch(query, -1)
	if len(matches) == 0 {
		return query, nil
	}

	for _, match := range matches {
		if _, exists := varMap[match[1]]; !exists {
			return "", fmt.Errorf("undefined variable: {{%s}}", match[1])
		}
	}

	var substitutionErr error
	result := variablePattern.ReplaceAllStringFunc(query, func(match string) string {
		if substitutionErr != nil {
			return match
		}

		submatches := variablePattern.FindStringSubmatch(match)
		if len(submatches) != 2 {
			return match
		}

		v := varMap[submatches[1]]
		formatted, err := formatValue(v)
		if err != nil {
			substitutionErr = fmt.Errorf("variable %s: %w", submatches[1], err)
			return match
		}
		return formatted
	})

	if substitutionErr != nil {
		return "", substitutionErr
	}
	return result, nil
}

// ExtractNames returns all unique variable names referenced in the query.
func ExtractNames(query string) []string {
	matches := variablePattern.FindAllStringSubmatch(query, -1)
	seen := make(map[string]bool)
	names := make([]string, 0, len(matches))

	for _, m := range matches {
		if len(m) == 2 && !seen[m[1]] {
			names = append(names, m[1])
			seen[m[1]] = true
		}
	}
	return names
}

func formatValue(v Variable) (string, error) {
	varType := v.Type
	if varType == TypeText {
		varType = TypeString
	}

	switch varType {
	case TypeString:
		return formatString(v.Value), nil
	case TypeNumber:
		return formatNumber(v.Value)
	case TypeDate:
		return formatDate(v.Value)
	default:
		// Unknown types render as strings.
		return formatString(v.Value), nil
	}
}

// formatString escapes single quotes and quotes the value.
func formatString(value any) string {
	var s string
	switch val := value.(type) {
	case string:
		s = val
	case float64:
		s = strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		s = strconv.Itoa(val)
	case int64:
		s = strconv.FormatInt(val, 10)
	default:
		s = fmt.Sprintf("%v", val)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func formatNumber(value any) (string, error) {
	switch val := value.(type) {
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10), nil
		}
		return strconv.FormatFloat(val, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(val), nil
	case int64:
		return strconv.FormatInt(val, 10), nil
	case string:
		if _, err := strconv.ParseFloat(val, 64); err != nil {
			return "", fmt.Errorf("invalid number: %s", val)
		}
		return val, nil
	default:
		return "", fmt.Errorf("unsupported number type: %T", val)
	}
}

const dateLayout = "2006-01-02 15:04:05"

// formatDate accepts ISO 8601 strings, time.Time values, and JavaScript
// millisecond epochs, and renders a quoted datetime literal.
func formatDate(value any) (string, error) {
	switch val := value.(type) {
	case string:
		formats := []string{
			time.RFC3339,
			time.RFC3339Nano,
			"2006-01-02T15:04:05",
			"2006-01-02T15:04",
			"2006-01-02 15:04:05",
			"2006-01-02 15:04",
			"2006-01-02",
		}

		var t time.Time
		var err error
		for _, format := range formats {
			t, err = time.Parse(format, val)
			if err == nil {
				break
			}
		}
		if err != nil {
			return "", fmt.Errorf("invalid date format: %s (expected ISO 8601 format)", val)
		}
		return "'" + t.Format(dateLayout) + "'", nil

	case time.Time:
		return "'" + val.Format(dateLayout) + "'", nil

	case float64:
		return "'" + time.UnixMilli(int64(val)).UTC().Format(dateLayout) + "'", nil

	case int64:
		return "'" + time.UnixMilli(val).UTC().Format(dateLayout) + "'", nil

	default:
		return "", fmt.Errorf("unsupported date type: %T", val)
	}
}
