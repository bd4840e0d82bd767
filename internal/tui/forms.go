package tui

import (
	"strings"

	"github.com/charmbracelet/huh"
)

// Confirm shows a yes/no confirmation prompt.
func Confirm(message string, defaultValue bool) (bool, error) {
	result := defaultValue
	err := huh.NewConfirm().
		Title(message).
		Affirmative("Yes").
		Negative("No").
		Value(&result).
		Run()
	if err != nil {
		return defaultValue, err
	}
	return result, nil
}

// InputWithDefault shows a text input prefilled with defaultValue. A blank
// answer yields defaultValue.
func InputWithDefault(title, defaultValue string) (string, error) {
	result := defaultValue
	err := huh.NewInput().
		Title(title).
		Placeholder(defaultValue).
		Value(&result).
		Run()
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(result) == "" {
		return defaultValue, nil
	}
	return strings.TrimSpace(result), nil
}

// SelectOption represents an option in a select prompt.
type SelectOption struct {
	Value string
	Label string
}

// Select shows a single-select prompt.
func Select(title string, options []SelectOption) (string, error) {
	huhOptions := make([]huh.Option[string], len(options))
	for i, opt := range options {
		huhOptions[i] = huh.NewOption(opt.Label, opt.Value)
	}

	var result string
	err := huh.NewSelect[string]().
		Title(title).
		Options(huhOptions...).
		Value(&result).
		Run()
	return result, err
}
