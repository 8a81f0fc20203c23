package asm

import "github.com/sunsided/dcpu-16/inst"

// resolveAndEmit implements the two-pass layout over the parsed entries:
// pass 1 assigns each label the running address of all preceding
// instructions, summing provisional lengths from inst.Instruction.Len()
// (which counts every LabelReference as one inline word); pass 2
// substitutes every LabelReference with a resolved NextWordLiteral and
// encodes the final word stream.
func resolveAndEmit(entries []entry) ([]uint16, error) {
	addresses := make(map[string]uint16)
	var addr uint16
	for _, e := range entries {
		if e.label != "" {
			if _, dup := addresses[e.label]; dup {
				return nil, &Error{Line: e.line, Col: e.col, Msg: "duplicate label " + e.label}
			}
			addresses[e.label] = addr
		}
		if e.hasInstr {
			addr += uint16(e.instr.Len())
		}
	}

	var out []uint16
	for _, e := range entries {
		if !e.hasInstr {
			continue
		}
		resolved, err := resolveInstruction(e.instr, addresses, e.line, e.col)
		if err != nil {
			return nil, err
		}
		out = append(out, resolved.Encode()...)
	}
	return out, nil
}

// resolveInstruction replaces every LabelReference operand with the
// NextWordLiteral form of its address. A label reference always resolves
// to the inline-word form, even when the address would fit in the
// small-literal range, since pass 1 already charged it a full word.
func resolveInstruction(in inst.Instruction, addresses map[string]uint16, line, col int) (inst.Instruction, error) {
	a, err := resolveOperand(in.A, addresses, line, col)
	if err != nil {
		return inst.Instruction{}, err
	}
	in.A = a
	if in.Basic {
		b, err := resolveOperand(in.B, addresses, line, col)
		if err != nil {
			return inst.Instruction{}, err
		}
		in.B = b
	}
	return in, nil
}

func resolveOperand(op inst.Operand, addresses map[string]uint16, line, col int) (inst.Operand, error) {
	if op.Kind != inst.KindLabelReference {
		return op, nil
	}
	addr, ok := addresses[op.Label]
	if !ok {
		return inst.Operand{}, &Error{Line: line, Col: col, Msg: "unknown label " + op.Label}
	}
	return inst.NextWordLiteral(addr), nil
}
