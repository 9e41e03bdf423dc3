package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/sourcingdenis/devfinder/pkg/enrich"
	"github.com/sourcingdenis/devfinder/pkg/search"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleLogin   = lipgloss.NewStyle().Foreground(colorCyan)
	styleEmail   = lipgloss.NewStyle().Foreground(colorBlue)
	styleGuessed = lipgloss.NewStyle().Foreground(colorDim)
	stylePartial = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// printInline prints a dim message without a trailing newline.
func printInline(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Print(StyleDim.Render(msg))
}

// printNewline prints an empty line.
func printNewline() {
	fmt.Println()
}

// =============================================================================
// Result Table
// =============================================================================

// resultColumns are the widths of the search result table columns.
var resultColumns = []int{18, 20, 28, 16, 10}

// printResultHeader prints the search result table header.
func printResultHeader() {
	head := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	fmt.Println(head.Render(padRow("LOGIN", "NAME", "EMAIL", "LOCATION", "FOLLOWERS")))
}

// printRecord prints one search result row. Partial records carry a
// trailing marker instead of detail fields.
func printRecord(rec search.Record) {
	login := styleLogin.Render(pad("@"+rec.Login, resultColumns[0]))
	if rec.Partial {
		fmt.Println(login + stylePartial.Render("(partial result)"))
		return
	}

	email := rec.Email
	emailStyle := styleEmail
	if rec.EmailSource == enrich.SourceGenerated {
		emailStyle = styleGuessed
	}
	fmt.Println(login +
		StyleValue.Render(pad(rec.Name, resultColumns[1])) +
		emailStyle.Render(pad(email, resultColumns[2])) +
		StyleDim.Render(pad(rec.Location, resultColumns[3])) +
		StyleNumber.Render(strconv.Itoa(rec.Followers)))
}

// printPageSummary prints the totals line under a result table.
func printPageSummary(page *search.Page, shown int) {
	parts := []string{fmt.Sprintf("%d of %d results", shown, page.TotalCount)}
	if page.Partial > 0 {
		parts = append(parts, fmt.Sprintf("%d partial", page.Partial))
	}
	fmt.Println("  " + StyleDim.Render(strings.Join(parts, " · ")))
}

// =============================================================================
// Utilities
// =============================================================================

// pad truncates or right-pads s to the given width plus two spaces.
func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width-1]) + "…  "
	}
	return s + strings.Repeat(" ", width-len(runes)) + "  "
}

func padRow(cells ...string) string {
	var b strings.Builder
	for i, cell := range cells {
		if i < len(resultColumns) {
			b.WriteString(pad(cell, resultColumns[i]))
		} else {
			b.WriteString(cell)
		}
	}
	return strings.TrimRight(b.String(), " ")
}
