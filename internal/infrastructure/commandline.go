package infrastructure

import "strings"

const shellSpecialChars = " \t\n\r'\"$`\\!*?[](){}|;<>&~#%"

// QuoteArg renders one argument as it would be typed in a POSIX shell.
// Only used for log output; exec never goes through a shell.
func QuoteArg(s string) string {
	if s == "" {
		return "''"
	}
	if !strings.ContainsAny(s, shellSpecialChars) {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'"'"'`) + "'"
}

// CommandLine renders a binary and its arguments for the job log
func CommandLine(binary string, args ...string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, QuoteArg(binary))
	for _, arg := range args {
		parts = append(parts, QuoteArg(arg))
	}
	return strings.Join(parts, " ")
}
