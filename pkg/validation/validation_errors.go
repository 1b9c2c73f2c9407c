package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// FieldLabels maps struct field names to user-friendly labels
var FieldLabels = map[string]string{
	// Job fields
	"Title":       "Title",
	"Description": "Description",
	"Category":    "Category",
	"Budget":      "Budget",
	"Deadline":    "Deadline",
	"Milestones":  "Milestones",
	"Amount":      "Amount",
	"DueDate":     "Due date",

	// Application fields
	"Name":       "Name",
	"Surname":    "Surname",
	"Motivation": "Motivation",
	"Skills":     "Skills",

	// Profile fields
	"Bio":          "Bio",
	"Profession":   "Profession",
	"SelectedIcon": "Icon",
}

// FormatValidationErrors converts validator.ValidationErrors to user-friendly messages
func FormatValidationErrors(err error) []string {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []string{err.Error()}
	}

	messages := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		messages = append(messages, formatSingleError(e))
	}
	return messages
}

// Message joins the formatted messages of err into one line.
func Message(err error) string {
	return strings.Join(FormatValidationErrors(err), "; ")
}

func formatSingleError(e validator.FieldError) string {
	label := getFieldLabel(e.Field())
	if idx := milestoneIndex(e.Namespace()); idx != "" {
		label = fmt.Sprintf("Milestone %s %s", idx, strings.ToLower(label))
	}
	param := e.Param()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s: is required", label)

	case "min":
		if e.Kind().String() == "slice" {
			return fmt.Sprintf("%s: at least %s required", label, param)
		}
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: must be at least %s characters", label, param)
		}
		return fmt.Sprintf("%s: must be at least %s", label, param)

	case "max":
		if e.Kind().String() == "slice" {
			return fmt.Sprintf("%s: at most %s allowed", label, param)
		}
		if e.Kind().String() == "string" {
			return fmt.Sprintf("%s: must be at most %s characters", label, param)
		}
		return fmt.Sprintf("%s: must be at most %s", label, param)

	case "gt":
		return fmt.Sprintf("%s: must be greater than %s", label, param)

	case "datetime":
		return fmt.Sprintf("%s: must be a date in YYYY-MM-DD format", label)

	case "oneof":
		return fmt.Sprintf("%s: must be one of: %s", label, strings.ReplaceAll(param, " ", ", "))

	case "not_blank":
		return fmt.Sprintf("%s: must not be blank", label)

	case "finite":
		return fmt.Sprintf("%s: must be a number", label)

	case "no_emoji":
		return fmt.Sprintf("%s: must not contain emoji", label)

	default:
		return fmt.Sprintf("%s: is invalid (%s)", label, e.Tag())
	}
}

// milestoneIndex extracts the 1-based milestone number from a namespace such
// as "JobInput.Milestones[1].Amount".
func milestoneIndex(namespace string) string {
	const marker = "Milestones["
	i := strings.Index(namespace, marker)
	if i < 0 {
		return ""
	}
	rest := namespace[i+len(marker):]
	end := strings.Index(rest, "]")
	if end < 0 {
		return ""
	}
	var n int
	if _, err := fmt.Sscanf(rest[:end], "%d", &n); err != nil {
		return ""
	}
	return fmt.Sprint(n + 1)
}

func getFieldLabel(fieldName string) string {
	if label, ok := FieldLabels[fieldName]; ok {
		return label
	}
	return formatCamelCase(fieldName)
}

func formatCamelCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune(' ')
		}
		result.WriteRune(r)
	}
	return result.String()
}
