package chip8

// instruction is a decoded 16-bit opcode word, split into its four nibbles
// and the derived fields the instruction set handlers operate on.
type instruction struct {
	word uint16

	n1, n2, n3, n4 byte // the four nibbles, high to low

	x   byte   // n2: a V register index, for forms that use one
	y   byte   // n3: a second V register index, for forms that use one
	n   byte   // n4: a nibble-sized immediate (sprite height)
	nn  byte   // (n3<<4)|n4: a byte immediate
	nnn uint16 // (n2<<8)|(n3<<4)|n4: an address immediate
}

// decode splits the two bytes at PC and PC+1 into an instruction. x, y, n,
// nn, and nnn are always computed even when a given form doesn't use them;
// callers pick whichever fields their opcode class needs.
func decode(hi, lo byte) instruction {
	n1 := hi >> 4
	n2 := hi & 0x0F
	n3 := lo >> 4
	n4 := lo & 0x0F

	return instruction{
		word: uint16(hi)<<8 | uint16(lo),
		n1:   n1,
		n2:   n2,
		n3:   n3,
		n4:   n4,
		x:    n2,
		y:    n3,
		n:    n4,
		nn:   lo,
		nnn:  uint16(n2)<<8 | uint16(n3)<<4 | uint16(n4),
	}
}
