package asm

import (
	"github.com/sunsided/dcpu-16/encoding"
	"github.com/sunsided/dcpu-16/inst"
)

// entry is one parsed program line: an optional label declaration and/or an
// instruction whose operands may still carry unresolved LabelReference
// operands. Both a label and an instruction can appear on the same line, per
// the grammar's `stmt = label | instruction | label instruction`.
type entry struct {
	label     string
	hasInstr  bool
	instr     inst.Instruction
	line, col int
}

var stackOps = map[string]inst.StackOp{
	"PUSH": inst.Push,
	"POP":  inst.Pop,
	"PEEK": inst.Peek,
}

var specialRegs = map[string]inst.SpecialRegister{
	"SP": inst.SP,
	"PC": inst.PC,
	"O":  inst.O,
}

// parser turns a token stream into an ordered list of entries. It is a
// straightforward recursive-descent reader over the grammar in package
// asm's doc comment: one statement per source line, no lookahead beyond a
// single token.
type parser struct {
	toks []token
	pos  int
}

func parseProgram(source string) ([]entry, error) {
	toks, err := newLexer(source).tokenize()
	if err != nil {
		return nil, err
	}
	p := &parser{toks: toks}
	return p.parseEntries()
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) take() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) parseEntries() ([]entry, error) {
	var entries []entry
	for {
		for p.peek().kind == tokNewline {
			p.take()
		}
		if p.peek().kind == tokEOF {
			return entries, nil
		}

		e, err := p.parseLine()
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)

		t := p.peek()
		if t.kind == tokEOF {
			return entries, nil
		}
		if t.kind != tokNewline {
			return nil, &Error{Line: t.line, Col: t.col, Msg: "expected end of line, found " + describeToken(t)}
		}
		p.take()
	}
}

func (p *parser) parseLine() (entry, error) {
	var e entry
	t := p.peek()
	e.line, e.col = t.line, t.col

	if t.kind == tokColon {
		p.take()
		nameTok := p.take()
		if nameTok.kind != tokIdent {
			return entry{}, &Error{Line: nameTok.line, Col: nameTok.col, Msg: "expected label name after ':'"}
		}
		e.label = nameTok.text
	}

	if p.peek().kind == tokIdent {
		instr, err := p.parseInstruction()
		if err != nil {
			return entry{}, err
		}
		e.hasInstr = true
		e.instr = instr
	}

	if e.label == "" && !e.hasInstr {
		bad := p.peek()
		return entry{}, &Error{Line: bad.line, Col: bad.col, Msg: "expected label or instruction, found " + describeToken(bad)}
	}
	return e, nil
}

func (p *parser) parseInstruction() (inst.Instruction, error) {
	mnemonicTok := p.take()
	mnemonic := mnemonicTok.text

	if op, ok := encoding.LookupBasicOpcode(mnemonic); ok {
		a, err := p.parseValue(false)
		if err != nil {
			return inst.Instruction{}, err
		}
		if _, err := p.expect(tokComma); err != nil {
			return inst.Instruction{}, err
		}
		b, err := p.parseValue(true)
		if err != nil {
			return inst.Instruction{}, err
		}
		return inst.Instruction{Basic: true, Op: inst.Opcode(op), A: a, B: b}, nil
	}

	if op, ok := encoding.LookupNonBasicOpcode(mnemonic); ok {
		a, err := p.parseValue(true)
		if err != nil {
			return inst.Instruction{}, err
		}
		return inst.Instruction{Basic: false, NonBasic: inst.NonBasicOpcode(op), A: a}, nil
	}

	return inst.Instruction{}, &Error{Line: mnemonicTok.line, Col: mnemonicTok.col, Msg: "unknown mnemonic " + mnemonic}
}

func (p *parser) expect(k tokenKind) (token, error) {
	t := p.peek()
	if t.kind != k {
		return token{}, &Error{Line: t.line, Col: t.col, Msg: "unexpected token " + describeToken(t)}
	}
	return p.take(), nil
}

// parseValue parses the `value` (or, when allowLabel, `value_or_label`)
// nonterminal.
func (p *parser) parseValue(allowLabel bool) (inst.Operand, error) {
	t := p.peek()
	switch t.kind {
	case tokNumber:
		p.take()
		if t.value <= 0x1f {
			return inst.Literal(t.value), nil
		}
		return inst.NextWordLiteral(t.value), nil
	case tokLBracket:
		return p.parseBracket()
	case tokIdent:
		p.take()
		if idx, ok := encoding.RegisterIndex(t.text); ok {
			return inst.Register(idx), nil
		}
		if s, ok := stackOps[t.text]; ok {
			return inst.StackOperand(s), nil
		}
		if s, ok := specialRegs[t.text]; ok {
			return inst.SpecialOperand(s), nil
		}
		if !allowLabel {
			return inst.Operand{}, &Error{Line: t.line, Col: t.col, Msg: "label reference not permitted here: " + t.text}
		}
		return inst.LabelReference(t.text), nil
	default:
		return inst.Operand{}, &Error{Line: t.line, Col: t.col, Msg: "expected a value, found " + describeToken(t)}
	}
}

// parseBracket parses `'[' (literal | register) ']'` and `'[' literal '+' register ']'`.
func (p *parser) parseBracket() (inst.Operand, error) {
	open := p.take() // '['

	first := p.take()
	switch first.kind {
	case tokNumber:
		if p.peek().kind == tokPlus {
			p.take()
			regTok := p.take()
			if regTok.kind != tokIdent {
				return inst.Operand{}, &Error{Line: regTok.line, Col: regTok.col, Msg: "expected register after '+'"}
			}
			idx, ok := encoding.RegisterIndex(regTok.text)
			if !ok {
				return inst.Operand{}, &Error{Line: regTok.line, Col: regTok.col, Msg: "expected register after '+', found " + regTok.text}
			}
			if _, err := p.expect(tokRBracket); err != nil {
				return inst.Operand{}, err
			}
			return inst.AtNextWordPlusRegister(idx, first.value), nil
		}
		if _, err := p.expect(tokRBracket); err != nil {
			return inst.Operand{}, err
		}
		return inst.AtNextWord(first.value), nil
	case tokIdent:
		idx, ok := encoding.RegisterIndex(first.text)
		if !ok {
			return inst.Operand{}, &Error{Line: first.line, Col: first.col, Msg: "expected literal or register inside brackets, found " + first.text}
		}
		if _, err := p.expect(tokRBracket); err != nil {
			return inst.Operand{}, err
		}
		return inst.AtRegister(idx), nil
	default:
		return inst.Operand{}, &Error{Line: open.line, Col: open.col, Msg: "unterminated bracket"}
	}
}

func describeToken(t token) string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokNewline:
		return "end of line"
	case tokComma:
		return "','"
	case tokColon:
		return "':'"
	case tokLBracket:
		return "'['"
	case tokRBracket:
		return "']'"
	case tokPlus:
		return "'+'"
	case tokNumber:
		return "number " + t.text
	default:
		return "'" + t.text + "'"
	}
}
