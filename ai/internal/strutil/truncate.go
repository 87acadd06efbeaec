// Package strutil provides string helpers shared by the ai packages.
package strutil

// Truncate caps a string at maxLen runes, appending an ellipsis when it
// cuts. Rune-level so multi-byte characters never split. Returns an empty
// string for maxLen <= 0.
func Truncate(s string, maxLen int) string {
	if s == "" || maxLen <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}
