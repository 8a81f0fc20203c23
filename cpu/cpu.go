// Package cpu implements the DCPU-16 execution engine: registers, RAM,
// fetch/execute, and the crash-loop halt heuristic. It is adapted from the
// teacher's cpu/cpu.go, stripped of the concurrency guard and cycle-accurate
// throttling that package carried (see DESIGN.md) since this specification
// runs single-threaded and does not emulate wall-clock timing.
package cpu

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/sunsided/dcpu-16/encoding"
	"github.com/sunsided/dcpu-16/inst"
)

// CPU holds the full machine state: eight general-purpose registers, the
// program counter, stack pointer, overflow register, and the 64K-word
// address space.
type CPU struct {
	Register [8]uint16
	PC       uint16
	SP       uint16
	O        uint16
	RAM      [encoding.RAMSize]uint16

	logger *slog.Logger
}

// Option configures a CPU at construction time.
type Option func(*CPU)

// WithLogger attaches a structured logger used to trace reserved non-basic
// opcodes. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *CPU) { c.logger = l }
}

// New returns a CPU with program loaded at address 0 and SP initialized to
// 0xffff, matching the convention that the stack grows down from the top of
// memory.
func New(program []uint16, opts ...Option) *CPU {
	c := &CPU{SP: 0xffff, logger: slog.Default()}
	copy(c.RAM[:], program)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load writes words into RAM starting at addr, for tests and tooling that
// want to poke memory directly rather than going through New.
func (c *CPU) Load(addr uint16, words []uint16) {
	for i, w := range words {
		c.RAM[int(addr)+i] = w
	}
}

// resolve returns the current value of operand op and a closure that writes
// back to it. Resolving a stack operand mutates SP immediately, which is why
// callers must resolve operand a before operand b: the DCPU-16 wire format
// defines no other order in which stack effects could be observed.
func (c *CPU) resolve(op inst.Operand) (read uint16, write func(uint16)) {
	switch op.Kind {
	case inst.KindRegister:
		r := op.Register
		return c.Register[r], func(v uint16) { c.Register[r] = v }
	case inst.KindAtRegister:
		addr := c.Register[op.Register]
		return c.RAM[addr], func(v uint16) { c.RAM[addr] = v }
	case inst.KindAtNextWordPlusRegister:
		addr := op.Word + c.Register[op.Register]
		return c.RAM[addr], func(v uint16) { c.RAM[addr] = v }
	case inst.KindStackOp:
		switch op.Stack {
		case inst.Pop:
			addr := c.SP
			c.SP++
			// Writes to POP are discarded: SP has already advanced past
			// the slot that was read.
			return c.RAM[addr], func(uint16) {}
		case inst.Peek:
			addr := c.SP
			return c.RAM[addr], func(v uint16) { c.RAM[addr] = v }
		case inst.Push:
			c.SP--
			addr := c.SP
			return c.RAM[addr], func(v uint16) { c.RAM[addr] = v }
		}
	case inst.KindSpecialRegister:
		switch op.Special {
		case inst.SP:
			return c.SP, func(v uint16) { c.SP = v }
		case inst.PC:
			return c.PC, func(v uint16) { c.PC = v }
		case inst.O:
			return c.O, func(v uint16) { c.O = v }
		}
	case inst.KindAtNextWord:
		addr := op.Word
		return c.RAM[addr], func(v uint16) { c.RAM[addr] = v }
	case inst.KindNextWordLiteral:
		return op.Word, func(uint16) {}
	case inst.KindLiteral:
		return op.Literal, func(uint16) {}
	}
	panic(fmt.Sprintf("cpu: operand %+v has no resolution", op))
}

// fetchWord reads RAM[c.PC] and advances PC.
func (c *CPU) fetchWord() uint16 {
	w := c.RAM[c.PC]
	c.PC++
	return w
}

// Step executes exactly one instruction and reports whether it was a
// self-jump (a SET PC,x instruction whose resolved x equals the address the
// instruction began at), the sole halt condition this specification defines.
// There is deliberately no instruction-count or wall-clock timeout: Run
// loops on Step until it reports true.
func (c *CPU) Step() bool {
	pc0 := c.PC
	head := c.fetchWord()
	low := head & encoding.OpcodeMask

	if low == encoding.OpExtended {
		nonBasic := (head & encoding.FieldMask) >> encoding.FieldShift
		aCode := (head & encoding.Field2Mask) >> encoding.Field2Shift
		aOperand := c.decodeField(aCode)
		aRead, _ := c.resolve(aOperand)

		switch inst.NonBasicOpcode(nonBasic) {
		case inst.JSR:
			c.push(c.PC)
			c.PC = aRead
		default:
			c.logger.Debug("reserved non-basic opcode treated as no-op",
				"opcode", nonBasic, "pc", pc0)
		}
		return false
	}

	aCode := (head & encoding.FieldMask) >> encoding.FieldShift
	bCode := (head & encoding.Field2Mask) >> encoding.Field2Shift
	aOperand := c.decodeField(aCode)
	bOperand := c.decodeField(bCode)

	aRead, aWrite := c.resolve(aOperand)
	bRead, _ := c.resolve(bOperand)

	isSetPC := low == encoding.OpSET && aOperand.Kind == inst.KindSpecialRegister && aOperand.Special == inst.PC

	switch inst.Opcode(low) {
	case inst.SET:
		aWrite(bRead)
	case inst.ADD:
		sum := uint32(aRead) + uint32(bRead)
		c.setOverflow(sum > 0xffff)
		aWrite(uint16(sum))
	case inst.SUB:
		diff := uint32(aRead) - uint32(bRead)
		if aRead < bRead {
			c.O = 0xffff
		} else {
			c.O = 0
		}
		aWrite(uint16(diff))
	case inst.MUL:
		prod := uint32(aRead) * uint32(bRead)
		c.O = uint16(prod >> 16)
		aWrite(uint16(prod))
	case inst.DIV:
		if bRead == 0 {
			c.O = 0
			aWrite(0)
		} else {
			q := (uint32(aRead) << 16) / uint32(bRead)
			c.O = uint16(q)
			aWrite(uint16(q >> 16))
		}
	case inst.MOD:
		if bRead == 0 {
			aWrite(0)
		} else {
			aWrite(aRead % bRead)
		}
	case inst.SHL:
		v := uint32(aRead) << bRead
		c.O = uint16(v >> 16)
		aWrite(uint16(v))
	case inst.SHR:
		v := (uint32(aRead) << 16) >> bRead
		c.O = uint16(v)
		aWrite(uint16(v >> 16))
	case inst.AND:
		aWrite(aRead & bRead)
	case inst.BOR:
		aWrite(aRead | bRead)
	case inst.XOR:
		aWrite(aRead ^ bRead)
	case inst.IFE:
		if aRead != bRead {
			c.skipConditional()
		}
	case inst.IFN:
		if aRead == bRead {
			c.skipConditional()
		}
	case inst.IFG:
		if !(aRead > bRead) {
			c.skipConditional()
		}
	case inst.IFB:
		if aRead&bRead == 0 {
			c.skipConditional()
		}
	}

	if isSetPC && bRead == pc0 {
		return true
	}
	return false
}

// decodeField decodes one operand addressing-mode code, consuming its
// inline word from RAM at the current PC if it requires one.
func (c *CPU) decodeField(code uint16) inst.Operand {
	switch {
	case code <= 0x07:
		return inst.Register(int(code))
	case code <= 0x0f:
		return inst.AtRegister(int(code - encoding.ValAtRegisterBase))
	case code <= 0x17:
		w := c.fetchWord()
		return inst.AtNextWordPlusRegister(int(code-encoding.ValAtNextWordRegBase), w)
	case code == encoding.ValPop:
		return inst.StackOperand(inst.Pop)
	case code == encoding.ValPeek:
		return inst.StackOperand(inst.Peek)
	case code == encoding.ValPush:
		return inst.StackOperand(inst.Push)
	case code == encoding.ValSP:
		return inst.SpecialOperand(inst.SP)
	case code == encoding.ValPC:
		return inst.SpecialOperand(inst.PC)
	case code == encoding.ValO:
		return inst.SpecialOperand(inst.O)
	case code == encoding.ValAtNextWord:
		w := c.fetchWord()
		return inst.AtNextWord(w)
	case code == encoding.ValNextWordLiteral:
		w := c.fetchWord()
		return inst.NextWordLiteral(w)
	default:
		return inst.Literal(code - encoding.ValLiteralBase)
	}
}

// skipConditional advances PC past the single instruction immediately
// following a failed IFx predicate, including whatever inline words that
// instruction's operands carry, counted with encoding.ConsumesInlineWord.
// decodeField, which the fetch path uses, classifies the same codes with its
// own switch.
func (c *CPU) skipConditional() {
	word := c.RAM[c.PC]
	low := word & encoding.OpcodeMask
	consumed := uint16(1)

	if low == encoding.OpExtended {
		aCode := (word & encoding.Field2Mask) >> encoding.Field2Shift
		if encoding.ConsumesInlineWord(aCode) {
			consumed++
		}
	} else {
		aCode := (word & encoding.FieldMask) >> encoding.FieldShift
		bCode := (word & encoding.Field2Mask) >> encoding.Field2Shift
		if encoding.ConsumesInlineWord(aCode) {
			consumed++
		}
		if encoding.ConsumesInlineWord(bCode) {
			consumed++
		}
	}
	c.PC += consumed
}

func (c *CPU) setOverflow(overflow bool) {
	if overflow {
		c.O = 1
	} else {
		c.O = 0
	}
}

func (c *CPU) push(v uint16) {
	c.SP--
	c.RAM[c.SP] = v
}

// Run steps the machine until Step reports a self-jump halt.
func (c *CPU) Run() {
	for !c.Step() {
	}
}

// Hexdump renders the first n words of RAM as lines of "ADDR: W0 W1 ..." in
// uppercase 4-digit hex, wordsPerLine words to a line.
func (c *CPU) Hexdump(w io.Writer, n int, wordsPerLine int) error {
	if wordsPerLine <= 0 {
		wordsPerLine = 8
	}
	for addr := 0; addr < n; addr += wordsPerLine {
		end := addr + wordsPerLine
		if end > n {
			end = n
		}
		if _, err := fmt.Fprintf(w, "%04X:", addr); err != nil {
			return err
		}
		for i := addr; i < end; i++ {
			if _, err := fmt.Fprintf(w, " %04X", c.RAM[i]); err != nil {
				return err
			}
		}
		if _, err := fmt.Fprintln(w); err != nil {
			return err
		}
	}
	return nil
}
