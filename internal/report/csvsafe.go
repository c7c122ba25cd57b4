package report

import "strings"

// formulaPrefixes start a cell that spreadsheet applications may evaluate.
const formulaPrefixes = "=+-@|%\t\r\n"

// EscapeCSVCell prefixes a single quote to cells that would otherwise be
// interpreted as formulas. Listing titles come from third-party sellers.
func EscapeCSVCell(value string) string {
	if value == "" {
		return value
	}
	if strings.ContainsRune(formulaPrefixes, rune(value[0])) {
		return "'" + value
	}
	return value
}

// EscapeCSVRow escapes all cells in a row
func EscapeCSVRow(row []string) []string {
	escaped := make([]string, len(row))
	for i, cell := range row {
		escaped[i] = EscapeCSVCell(cell)
	}
	return escaped
}
