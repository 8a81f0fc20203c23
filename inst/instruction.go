// Package inst defines the tagged-union representation of a DCPU-16
// instruction and its operands shared by the CPU's fetch/execute loop, the
// assembler's code emitter, and the disassembler. The assembler and the
// disassembler take decode, encode and length computation from here; the
// CPU uses the operand types but splits instruction words with its own
// decoder (cpu.decodeField).
package inst

import (
	"fmt"

	"github.com/sunsided/dcpu-16/encoding"
)

// Opcode identifies a basic, two-operand instruction.
type Opcode uint16

const (
	SET Opcode = encoding.OpSET
	ADD Opcode = encoding.OpADD
	SUB Opcode = encoding.OpSUB
	MUL Opcode = encoding.OpMUL
	DIV Opcode = encoding.OpDIV
	MOD Opcode = encoding.OpMOD
	SHL Opcode = encoding.OpSHL
	SHR Opcode = encoding.OpSHR
	AND Opcode = encoding.OpAND
	BOR Opcode = encoding.OpBOR
	XOR Opcode = encoding.OpXOR
	IFE Opcode = encoding.OpIFE
	IFN Opcode = encoding.OpIFN
	IFG Opcode = encoding.OpIFG
	IFB Opcode = encoding.OpIFB
)

func (op Opcode) String() string {
	if s, ok := encoding.BasicMnemonic(uint16(op)); ok {
		return s
	}
	return fmt.Sprintf("OP(0x%x)", uint16(op))
}

// IsConditional reports whether op is one of the IFx family.
func (op Opcode) IsConditional() bool {
	switch op {
	case IFE, IFN, IFG, IFB:
		return true
	default:
		return false
	}
}

// NonBasicOpcode identifies a one-operand (non-basic) instruction.
type NonBasicOpcode uint16

const (
	JSR NonBasicOpcode = encoding.ExtJSR
)

func (op NonBasicOpcode) String() string {
	if s, ok := encoding.NonBasicMnemonic(uint16(op)); ok {
		return s
	}
	return fmt.Sprintf("NONBASIC(0x%x)", uint16(op))
}

// OperandKind tags the variant an Operand carries.
type OperandKind int

const (
	KindRegister OperandKind = iota
	KindAtRegister
	KindAtNextWordPlusRegister
	KindStackOp
	KindSpecialRegister
	KindAtNextWord
	KindNextWordLiteral
	KindLiteral
	// KindLabelReference only appears on assembler-time instructions,
	// before the resolver has substituted in a concrete address.
	KindLabelReference
)

// StackOp distinguishes the three stack-pointer addressing modes.
type StackOp int

const (
	Pop StackOp = iota
	Peek
	Push
)

func (s StackOp) String() string {
	switch s {
	case Pop:
		return "POP"
	case Peek:
		return "PEEK"
	case Push:
		return "PUSH"
	default:
		return "?"
	}
}

// SpecialRegister identifies SP, PC, or O.
type SpecialRegister int

const (
	SP SpecialRegister = iota
	PC
	O
)

func (s SpecialRegister) String() string {
	switch s {
	case SP:
		return "SP"
	case PC:
		return "PC"
	case O:
		return "O"
	default:
		return "?"
	}
}

// Operand is a decoded, or (during assembly) partially resolved, instruction
// operand. Exactly the fields relevant to Kind are meaningful.
type Operand struct {
	Kind     OperandKind
	Register int    // KindRegister, KindAtRegister, KindAtNextWordPlusRegister
	Word     uint16 // inline word payload: KindAtNextWordPlusRegister/KindAtNextWord/KindNextWordLiteral
	Stack    StackOp
	Special  SpecialRegister
	Literal  uint16 // KindLiteral
	Label    string // KindLabelReference
}

// Register constructs a plain register operand.
func Register(r int) Operand { return Operand{Kind: KindRegister, Register: r} }

// AtRegister constructs a [register] operand.
func AtRegister(r int) Operand { return Operand{Kind: KindAtRegister, Register: r} }

// AtNextWordPlusRegister constructs a [next word + register] operand.
func AtNextWordPlusRegister(r int, w uint16) Operand {
	return Operand{Kind: KindAtNextWordPlusRegister, Register: r, Word: w}
}

// AtNextWord constructs a [next word] operand.
func AtNextWord(w uint16) Operand { return Operand{Kind: KindAtNextWord, Word: w} }

// NextWordLiteral constructs a literal carried in the word following the
// opcode, regardless of its magnitude.
func NextWordLiteral(w uint16) Operand { return Operand{Kind: KindNextWordLiteral, Word: w} }

// Literal constructs an inlined small-literal operand (0-31).
func Literal(v uint16) Operand { return Operand{Kind: KindLiteral, Literal: v} }

// StackOperand constructs a PUSH/POP/PEEK operand.
func StackOperand(s StackOp) Operand { return Operand{Kind: KindStackOp, Stack: s} }

// SpecialOperand constructs an SP/PC/O operand.
func SpecialOperand(s SpecialRegister) Operand { return Operand{Kind: KindSpecialRegister, Special: s} }

// LabelReference constructs an assembler-time unresolved label operand.
func LabelReference(name string) Operand { return Operand{Kind: KindLabelReference, Label: name} }

// ConsumesWord reports whether this operand costs one inline word once
// encoded. KindLabelReference is pessimistically assumed to cost a word,
// matching the assembler's pass-1 length computation: it is always resolved
// to KindNextWordLiteral, never folded down into a small literal, so the
// cost pass-1 assumed and the cost pass-2 emits never disagree.
func (op Operand) ConsumesWord() bool {
	switch op.Kind {
	case KindAtNextWordPlusRegister, KindAtNextWord, KindNextWordLiteral, KindLabelReference:
		return true
	default:
		return false
	}
}

// Writable reports whether a write to this operand has any effect. Writes
// to non-writable operands are not an error; they are silently discarded.
func (op Operand) Writable() bool {
	switch op.Kind {
	case KindNextWordLiteral, KindLiteral, KindLabelReference:
		return false
	case KindStackOp:
		// SP has already moved past the slot a POP read.
		return op.Stack != Pop
	default:
		return true
	}
}

// Code returns the 6-bit addressing-mode code for op and, if it carries one,
// the inline word that follows it.
func (op Operand) Code() (code uint16, word uint16, hasWord bool) {
	switch op.Kind {
	case KindRegister:
		return uint16(op.Register), 0, false
	case KindAtRegister:
		return encoding.ValAtRegisterBase + uint16(op.Register), 0, false
	case KindAtNextWordPlusRegister:
		return encoding.ValAtNextWordRegBase + uint16(op.Register), op.Word, true
	case KindStackOp:
		switch op.Stack {
		case Pop:
			return encoding.ValPop, 0, false
		case Peek:
			return encoding.ValPeek, 0, false
		case Push:
			return encoding.ValPush, 0, false
		}
	case KindSpecialRegister:
		switch op.Special {
		case SP:
			return encoding.ValSP, 0, false
		case PC:
			return encoding.ValPC, 0, false
		case O:
			return encoding.ValO, 0, false
		}
	case KindAtNextWord:
		return encoding.ValAtNextWord, op.Word, true
	case KindNextWordLiteral:
		return encoding.ValNextWordLiteral, op.Word, true
	case KindLiteral:
		if op.Literal <= 0x1f {
			return encoding.ValLiteralBase + op.Literal, 0, false
		}
		return encoding.ValNextWordLiteral, op.Literal, true
	}
	panic(fmt.Sprintf("inst: operand %+v has no wire encoding", op))
}

func (op Operand) String() string {
	switch op.Kind {
	case KindRegister:
		return encoding.RegisterNames[op.Register]
	case KindAtRegister:
		return fmt.Sprintf("[%s]", encoding.RegisterNames[op.Register])
	case KindAtNextWordPlusRegister:
		return fmt.Sprintf("[0x%x+%s]", op.Word, encoding.RegisterNames[op.Register])
	case KindStackOp:
		return op.Stack.String()
	case KindSpecialRegister:
		return op.Special.String()
	case KindAtNextWord:
		return fmt.Sprintf("[0x%x]", op.Word)
	case KindNextWordLiteral:
		return fmt.Sprintf("0x%x", op.Word)
	case KindLiteral:
		return fmt.Sprintf("0x%x", op.Literal)
	case KindLabelReference:
		return op.Label
	default:
		return "?"
	}
}

// decodeOperand decodes the addressing-mode code (already split out of the
// opcode word by the caller), consuming an inline word from words[pos] if
// the mode requires one. It returns the decoded operand
// and the number of inline words consumed.
func decodeOperand(code uint16, words []uint16, pos int) (Operand, int, error) {
	switch {
	case code <= 0x07:
		return Register(int(code)), 0, nil
	case code <= 0x0f:
		return AtRegister(int(code - encoding.ValAtRegisterBase)), 0, nil
	case code <= 0x17:
		if pos >= len(words) {
			return Operand{}, 0, fmt.Errorf("inst: truncated instruction: missing inline word for [next word+register]")
		}
		return AtNextWordPlusRegister(int(code-encoding.ValAtNextWordRegBase), words[pos]), 1, nil
	case code == encoding.ValPop:
		return StackOperand(Pop), 0, nil
	case code == encoding.ValPeek:
		return StackOperand(Peek), 0, nil
	case code == encoding.ValPush:
		return StackOperand(Push), 0, nil
	case code == encoding.ValSP:
		return SpecialOperand(SP), 0, nil
	case code == encoding.ValPC:
		return SpecialOperand(PC), 0, nil
	case code == encoding.ValO:
		return SpecialOperand(O), 0, nil
	case code == encoding.ValAtNextWord:
		if pos >= len(words) {
			return Operand{}, 0, fmt.Errorf("inst: truncated instruction: missing inline word for [next word]")
		}
		return AtNextWord(words[pos]), 1, nil
	case code == encoding.ValNextWordLiteral:
		if pos >= len(words) {
			return Operand{}, 0, fmt.Errorf("inst: truncated instruction: missing inline word for literal")
		}
		return NextWordLiteral(words[pos]), 1, nil
	default: // 0x20-0x3f
		return Literal(code - encoding.ValLiteralBase), 0, nil
	}
}

// Instruction is a tagged union of a basic two-operand instruction and a
// non-basic one-operand instruction.
type Instruction struct {
	Basic    bool
	Op       Opcode
	NonBasic NonBasicOpcode
	A        Operand
	B        Operand // unused when !Basic
}

// Len reports the total number of words this instruction occupies,
// including its opcode word and any inline words its operands carry.
func (in Instruction) Len() int {
	n := 1
	if in.A.ConsumesWord() {
		n++
	}
	if in.Basic && in.B.ConsumesWord() {
		n++
	}
	return n
}

// Encode serializes in into its wire words. Every operand must already be
// fully resolved (no KindLabelReference); call the assembler's resolver
// first.
func (in Instruction) Encode() []uint16 {
	aCode, aWord, aHasWord := in.A.Code()
	if in.Basic {
		bCode, bWord, bHasWord := in.B.Code()
		head := uint16(in.Op) | (aCode << encoding.FieldShift) | (bCode << encoding.Field2Shift)
		out := make([]uint16, 0, in.Len())
		out = append(out, head)
		if aHasWord {
			out = append(out, aWord)
		}
		if bHasWord {
			out = append(out, bWord)
		}
		return out
	}
	head := uint16(encoding.OpExtended) | (uint16(in.NonBasic) << encoding.FieldShift) | (aCode << encoding.Field2Shift)
	out := make([]uint16, 0, in.Len())
	out = append(out, head)
	if aHasWord {
		out = append(out, aWord)
	}
	return out
}

// Decode reads one instruction from words starting at offset, returning the
// instruction and the number of words consumed.
func Decode(words []uint16, offset int) (Instruction, int, error) {
	if offset >= len(words) {
		return Instruction{}, 0, fmt.Errorf("inst: decode offset %d out of range (len %d)", offset, len(words))
	}
	head := words[offset]
	pos := offset + 1
	low := head & encoding.OpcodeMask

	if low == encoding.OpExtended {
		nonBasic := (head & encoding.FieldMask) >> encoding.FieldShift
		aCode := (head & encoding.Field2Mask) >> encoding.Field2Shift
		a, consumed, err := decodeOperand(aCode, words, pos)
		if err != nil {
			return Instruction{}, 0, err
		}
		pos += consumed
		return Instruction{Basic: false, NonBasic: NonBasicOpcode(nonBasic), A: a}, pos - offset, nil
	}

	aCode := (head & encoding.FieldMask) >> encoding.FieldShift
	bCode := (head & encoding.Field2Mask) >> encoding.Field2Shift
	a, consumed, err := decodeOperand(aCode, words, pos)
	if err != nil {
		return Instruction{}, 0, err
	}
	pos += consumed
	b, consumed, err := decodeOperand(bCode, words, pos)
	if err != nil {
		return Instruction{}, 0, err
	}
	pos += consumed
	return Instruction{Basic: true, Op: Opcode(low), A: a, B: b}, pos - offset, nil
}

func (in Instruction) String() string {
	if in.Basic {
		return fmt.Sprintf("%s %s, %s", in.Op, in.A, in.B)
	}
	return fmt.Sprintf("%s %s", in.NonBasic, in.A)
}
