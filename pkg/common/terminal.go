package common

import (
	"github.com/olekukonko/ts"
)

// TerminalWidth is the width of the controlling terminal, 0 when there is none
var TerminalWidth int

func init() {
	if size, err := ts.GetSize(); err == nil {
		TerminalWidth = size.Col()
	}
}
