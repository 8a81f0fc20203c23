package encoding

import "testing"

func TestConsumesInlineWord(t *testing.T) {
	consumes := []uint16{0x10, 0x17, ValAtNextWord, ValNextWordLiteral}
	for _, v := range consumes {
		if !ConsumesInlineWord(v) {
			t.Errorf("expected ConsumesInlineWord(0x%x) to be true", v)
		}
	}
	doesNot := []uint16{0x00, 0x07, 0x08, 0x0f, ValPop, ValPeek, ValPush, ValSP, ValPC, ValO, 0x20, 0x3f}
	for _, v := range doesNot {
		if ConsumesInlineWord(v) {
			t.Errorf("expected ConsumesInlineWord(0x%x) to be false", v)
		}
	}
}

func TestMnemonicRoundTrip(t *testing.T) {
	for _, name := range []string{"SET", "ADD", "SUB", "MUL", "DIV", "MOD", "SHL", "SHR", "AND", "BOR", "XOR", "IFE", "IFN", "IFG", "IFB"} {
		op, ok := LookupBasicOpcode(name)
		if !ok {
			t.Fatalf("LookupBasicOpcode(%q): not found", name)
		}
		got, ok := BasicMnemonic(op)
		if !ok || got != name {
			t.Errorf("BasicMnemonic(%d): got %q, want %q", op, got, name)
		}
	}
}

func TestRegisterIndex(t *testing.T) {
	for i, name := range RegisterNames {
		idx, ok := RegisterIndex(name)
		if !ok || idx != i {
			t.Errorf("RegisterIndex(%q): got (%d, %v), want (%d, true)", name, idx, ok, i)
		}
	}
	if _, ok := RegisterIndex("Q"); ok {
		t.Error("RegisterIndex(\"Q\") should not be found")
	}
}
