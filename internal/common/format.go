package common

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	// Default separator widths
	DefaultWidth = 80
	WideWidth    = 100
)

// PiconeroPerXMR is the number of atomic units in one XMR.
const PiconeroPerXMR int64 = 1_000_000_000_000

var piconeroFactor = decimal.NewFromInt(PiconeroPerXMR)

// ParseAmount converts a display amount like "1.25" into piconero.
// Rejects non-positive values and anything finer than one piconero.
func ParseAmount(display string) (int64, error) {
	d, err := decimal.NewFromString(display)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", display, err)
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("amount must be greater than zero, got %s", display)
	}

	piconero := d.Mul(piconeroFactor)
	if !piconero.Equal(piconero.Truncate(0)) {
		return 0, fmt.Errorf("amount %s is finer than one piconero", display)
	}
	if !piconero.BigInt().IsInt64() {
		return 0, fmt.Errorf("amount %s is out of range", display)
	}

	return piconero.IntPart(), nil
}

// FormatAmount renders piconero as a display XMR string.
func FormatAmount(piconero int64) string {
	return decimal.NewFromInt(piconero).Div(piconeroFactor).String()
}

// PrintSeparator prints a separator line with the specified character and width
func PrintSeparator(char string, width int) {
	fmt.Println(strings.Repeat(char, width))
}

// PrintSeparatorNewline prints a separator with a newline before it
func PrintSeparatorNewline(char string, width int) {
	fmt.Println("\n" + strings.Repeat(char, width))
}

// PrintHeader prints a formatted header with title and separators
func PrintHeader(title string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(title)
	PrintSeparator("=", width)
}

// PrintFooter prints a formatted footer with message and separators
func PrintFooter(message string, width int) {
	PrintSeparatorNewline("=", width)
	fmt.Println(message)
	fmt.Println(strings.Repeat("=", width) + "\n")
}

// PrintBoxSeparator prints a box-drawing separator line (for sub-sections)
func PrintBoxSeparator(width int) {
	fmt.Println("├" + strings.Repeat("─", width))
}

// BoxPrefix returns the appropriate box-drawing prefix for list items
func BoxPrefix(isLast bool) string {
	if isLast {
		return "└  "
	}
	return "│  "
}
