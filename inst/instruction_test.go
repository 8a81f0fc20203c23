package inst

import (
	"reflect"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []Instruction{
		{Basic: true, Op: SET, A: Register(0), B: NextWordLiteral(0x30)},
		{Basic: true, Op: SUB, A: Register(0), B: AtNextWord(0x1000)},
		{Basic: true, Op: IFN, A: Register(0), B: Literal(0x10)},
		{Basic: true, Op: SET, A: AtNextWord(0x2000), B: StackOperand(Push)},
		{Basic: true, Op: SET, A: AtNextWordPlusRegister(6, 0x2000), B: AtRegister(0)},
		{Basic: false, NonBasic: JSR, A: NextWordLiteral(0x18)},
		{Basic: true, Op: SHL, A: Register(3), B: SpecialOperand(O)},
		{Basic: true, Op: SET, A: SpecialOperand(PC), B: StackOperand(Pop)},
	}

	for _, c := range cases {
		words := c.Encode()
		if len(words) != c.Len() {
			t.Errorf("%v: Encode produced %d words, Len() reports %d", c, len(words), c.Len())
		}
		got, consumed, err := Decode(words, 0)
		if err != nil {
			t.Fatalf("%v: Decode: %v", c, err)
		}
		if consumed != len(words) {
			t.Errorf("%v: Decode consumed %d words, expected %d", c, consumed, len(words))
		}
		if !reflect.DeepEqual(got, c) {
			t.Errorf("round trip mismatch:\n got:  %+v\n want: %+v", got, c)
		}
	}
}

func TestLiteralEncodingBoundary(t *testing.T) {
	small := Literal(31)
	if code, _, hasWord := small.Code(); code != 0x3f || hasWord {
		t.Errorf("Literal(31): expected code 0x3f with no inline word, got code 0x%x hasWord=%v", code, hasWord)
	}

	large := Literal(32)
	if code, word, hasWord := large.Code(); code != 0x1f || word != 32 || !hasWord {
		t.Errorf("Literal(32): expected NextWordLiteral form, got code 0x%x word %d hasWord=%v", code, word, hasWord)
	}
}

func TestWritableOperands(t *testing.T) {
	writable := []Operand{Register(0), AtRegister(0), AtNextWordPlusRegister(0, 1), StackOperand(Peek), StackOperand(Push), SpecialOperand(PC), AtNextWord(1)}
	for _, op := range writable {
		if !op.Writable() {
			t.Errorf("%v: expected writable", op)
		}
	}
	notWritable := []Operand{NextWordLiteral(5), Literal(5), LabelReference("x"), StackOperand(Pop)}
	for _, op := range notWritable {
		if op.Writable() {
			t.Errorf("%v: expected not writable", op)
		}
	}
}

func TestDecodeTruncatedInstructionErrors(t *testing.T) {
	// SET A, [next word]: opcode word present, inline word missing.
	words := []uint16{0x7801}
	if _, _, err := Decode(words, 0); err == nil {
		t.Fatal("expected an error decoding a truncated instruction")
	}
}

func TestInstructionLenCountsLabelReferenceAsOneWord(t *testing.T) {
	in := Instruction{Basic: true, Op: SET, A: SpecialOperand(PC), B: LabelReference("crash")}
	if in.Len() != 2 {
		t.Errorf("expected Len()=2 for a label-reference operand, got %d", in.Len())
	}
}
