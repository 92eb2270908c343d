package tui

import (
	"strings"

	"github.com/atotto/clipboard"
)

// copyToClipboard is swapped in tests.
var copyToClipboard = func(s string) error {
	return clipboard.WriteAll(strings.ReplaceAll(s, "\r\n", "\n"))
}
