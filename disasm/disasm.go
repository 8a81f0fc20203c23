// Package disasm renders a DCPU-16 word stream as assembly text, one
// instruction per line, adapted from the teacher's disasm package to decode
// through the shared inst package instead of its own private opcode tables.
package disasm

import (
	"fmt"
	"io"

	"github.com/sunsided/dcpu-16/inst"
)

// Disassemble reads words starting at baseAddr and writes one line per
// decoded instruction to w, in the form "0xADDR: MNEMONIC operands". A
// trailing partial instruction (fewer words remain than its operands need)
// is reported as a raw hex word rather than causing an error, since a raw
// word dump is still useful when disassembling arbitrary memory rather than
// a well-formed program.
func Disassemble(words []uint16, baseAddr uint16, w io.Writer) error {
	pos := 0
	for pos < len(words) {
		addr := baseAddr + uint16(pos)
		instruction, consumed, err := inst.Decode(words, pos)
		if err != nil {
			if _, werr := fmt.Fprintf(w, "0x%04x:\t%04x\n", addr, words[pos]); werr != nil {
				return werr
			}
			pos++
			continue
		}
		if _, err := fmt.Fprintf(w, "0x%04x:\t\t%s\n", addr, instruction); err != nil {
			return err
		}
		pos += consumed
	}
	return nil
}
