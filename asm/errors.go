package asm

import "fmt"

// Error is a source-position-tagged assembler diagnostic, covering lexical,
// syntax, and resolution failures (undefined label, duplicate label,
// literal out of range, and similar).
type Error struct {
	Line, Col int
	Msg       string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Msg)
}
