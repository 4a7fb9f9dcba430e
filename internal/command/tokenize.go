package command

import (
	"strconv"
	"strings"
)

const pidToken = "$$"

// Tokenize splits a line on whitespace and replaces every "$$" with pid.
// Tokens past MaxArgs are dropped.
func Tokenize(line string, pid int) []string {
	fields := strings.Fields(line)
	if len(fields) > MaxArgs {
		fields = fields[:MaxArgs]
	}
	p := strconv.Itoa(pid)
	for i, f := range fields {
		fields[i] = strings.ReplaceAll(f, pidToken, p)
	}
	return fields
}
