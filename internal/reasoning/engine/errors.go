package engine

import (
	"errors"
	"strings"
)

// ErrRecursionLimit is returned by an engine when an invocation exhausts its
// step budget before producing a final answer.
var ErrRecursionLimit = errors.New("recursion limit reached")

// IsRecursionLimit reports whether err signals step-budget exhaustion. It
// matches the sentinel as well as generic errors whose text mentions the
// limit, since some engine implementations only surface a message.
func IsRecursionLimit(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRecursionLimit) {
		return true
	}
	text := strings.ToLower(err.Error())
	return strings.Contains(text, "recursion") || strings.Contains(text, "maximum")
}
