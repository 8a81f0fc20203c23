// Package asm implements the DCPU-16 assembler: a hand-written
// recursive-descent parser over the grammar
//
//	program      = (line '\n')*
//	line         = [stmt] [comment]
//	stmt         = label | instruction | label instruction
//	comment      = ';' <any char except newline>*
//	label        = ':' ident
//	instruction  = basic_op value ',' value_or_label
//	             | nonbasic_op value_or_label
//	value        = register | special_reg | stack_op | literal
//	             | '[' (literal | register) ']'
//	             | '[' literal '+' register ']'
//	literal      = '0x' hex{1..4} | dec{1..5}
//	ident        = [A-Za-z0-9]+
//
// followed by the two-pass label-resolution and code-emission scheme
// documented on resolveAndEmit. Mnemonics and register names are
// case-sensitive and must be uppercase. The lexer accepts slightly more than
// the grammar: identifiers may also contain '_', and hex literals may use a
// '0X' prefix.
package asm

// Assemble compiles source into the word stream the cpu package's RAM
// expects. A failing parse or resolution yields no output, only an *Error.
func Assemble(source string) ([]uint16, error) {
	entries, err := parseProgram(source)
	if err != nil {
		return nil, err
	}
	return resolveAndEmit(entries)
}
