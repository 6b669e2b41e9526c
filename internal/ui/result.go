package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/muurk/adax/internal/adax"
	"github.com/muurk/adax/internal/urls"
)

// ResultType indicates success or failure
type ResultType int

const (
	ResultSuccess ResultType = iota
	ResultFailure
)

// Result represents a result box for a command that changed something
type Result struct {
	Type            ResultType        // Success or failure
	Title           string            // e.g., "Room 196342 updated"
	Details         map[string]string // Key-value details to display
	Error           error             // Error (for failure results)
	Troubleshooting []string          // Troubleshooting tips (for failure results)
	Width           int               // Terminal width
}

// NewSuccessResult creates a success result box
func NewSuccessResult(title string, details map[string]string) *Result {
	return &Result{
		Type:    ResultSuccess,
		Title:   title,
		Details: details,
		Width:   GetTerminalWidth(),
	}
}

// NewFailureResult creates a failure result box. Tips are derived from err
// when troubleshooting is nil.
func NewFailureResult(title string, err error, troubleshooting []string) *Result {
	if troubleshooting == nil {
		troubleshooting = TroubleshootingFor(err)
	}
	return &Result{
		Type:            ResultFailure,
		Title:           title,
		Error:           err,
		Troubleshooting: troubleshooting,
		Width:           GetTerminalWidth(),
	}
}

// SetWidth sets the terminal width for responsive rendering
func (r *Result) SetWidth(width int) *Result {
	r.Width = width
	return r
}

// Render returns the styled result box as a string
func (r *Result) Render() string {
	if r.Type == ResultFailure {
		return r.renderFailure()
	}
	return r.renderSuccess()
}

func (r *Result) renderSuccess() string {
	width := max(r.Width, MinTerminalWidth)

	lines := []string{
		"",
		SuccessTitleStyle.Render(fmt.Sprintf("   %s  SUCCESS  ─  %s", SuccessMarker, r.Title)),
		"",
	}

	keys := make([]string, 0, len(r.Details))
	for key := range r.Details {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	for _, key := range keys {
		keyStyled := ResultKeyStyle.Render(fmt.Sprintf("   %s:", key))
		lines = append(lines, keyStyled+" "+ResultValueStyle.Render(r.Details[key]))
	}
	lines = append(lines, "")

	return SuccessBoxStyle(width).Render(strings.Join(lines, "\n"))
}

func (r *Result) renderFailure() string {
	width := max(r.Width, MinTerminalWidth)

	lines := []string{
		"",
		ErrorTitleStyle.Render(fmt.Sprintf("   %s  FAILED  ─  %s", FailureMarker, r.Title)),
		"",
	}

	if r.Error != nil {
		lines = append(lines, ErrorMessageStyle.Render("   Error: "+adax.ShortMessage(r.Error)), "")
	}

	if len(r.Troubleshooting) > 0 {
		tips := []string{TroubleshootingTitleStyle.Render("Troubleshooting:"), ""}
		for _, tip := range r.Troubleshooting {
			tips = append(tips, TroubleshootingItemStyle.Render("  • "+tip))
		}
		lines = append(lines, TroubleshootingBoxStyle(width).Render(strings.Join(tips, "\n")), "")
	}

	return ErrorBoxStyle(width).Render(strings.Join(lines, "\n"))
}

// String implements fmt.Stringer
func (r *Result) String() string {
	return r.Render()
}

// TroubleshootingFor returns tips for an API error
func TroubleshootingFor(err error) []string {
	switch {
	case err == nil:
		return nil
	case adax.IsAuthError(err):
		return []string{
			"Check the account id in the config file or ADAX_ACCOUNT_ID",
			"Check ADAX_PASSWORD (the credential generated in the Adax app, not your login)",
			"Generating a credential: " + urls.AdaxAPI,
		}
	case adax.IsRateLimited(err):
		return []string{
			"The Adax API allows one request every 10 seconds per account",
			"Stop other clients using the same account, then retry",
			"More help: " + urls.TroubleshootingGuide,
		}
	case adax.IsHard(err):
		return []string{
			"Check your internet connection",
			"Check that the API base URL is reachable",
		}
	case adax.IsHTTPError(err):
		return []string{
			"Check that the room id exists (adax rooms)",
			"Retry in a few seconds",
		}
	default:
		return nil
	}
}
