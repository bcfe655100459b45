package chip8

import "context"

// dispatch decodes instr's opcode class and runs the matching handler. It
// returns whether the framebuffer changed this step (so Step knows whether
// to push a draw snapshot) and any terminal error. Dispatch matches the
// longest fixed pattern first: 00E0 and 00EE win over the general 0nnn shape,
// which is not implemented and is reported as unknown.
func (vm *VM) dispatch(ctx context.Context, instr instruction) (bool, error) {
	switch instr.n1 {
	case 0x0:
		switch instr.word {
		case 0x00E0:
			vm.opCLS()
			return true, nil
		case 0x00EE:
			return false, vm.opRET()
		default:
			return false, vm.unknown(instr)
		}
	case 0x1:
		vm.opJP(instr.nnn)
		return false, nil
	case 0x2:
		return false, vm.opCALL(instr.nnn)
	case 0x3:
		vm.opSE(instr.x, instr.nn)
		return false, nil
	case 0x4:
		vm.opSNE(instr.x, instr.nn)
		return false, nil
	case 0x5:
		if instr.n4 != 0x0 {
			return false, vm.unknown(instr)
		}
		vm.opSEReg(instr.x, instr.y)
		return false, nil
	case 0x6:
		vm.opSET(instr.x, instr.nn)
		return false, nil
	case 0x7:
		vm.opADD(instr.x, instr.nn)
		return false, nil
	case 0x8:
		return false, vm.dispatch8(instr)
	case 0x9:
		if instr.n4 != 0x0 {
			return false, vm.unknown(instr)
		}
		vm.opSNEReg(instr.x, instr.y)
		return false, nil
	case 0xA:
		vm.opSETI(instr.nnn)
		return false, nil
	case 0xB:
		vm.opJPV0(instr.nnn)
		return false, nil
	case 0xC:
		vm.opRND(instr.x, instr.nn)
		return false, nil
	case 0xD:
		return true, vm.opDRW(instr)
	case 0xE:
		return false, vm.dispatchE(instr)
	case 0xF:
		return false, vm.dispatchF(ctx, instr)
	default:
		return false, vm.unknown(instr)
	}
}

func (vm *VM) dispatch8(instr instruction) error {
	switch instr.n4 {
	case 0x0:
		vm.opLD(instr.x, instr.y)
	case 0x1:
		vm.opOR(instr.x, instr.y)
	case 0x2:
		vm.opAND(instr.x, instr.y)
	case 0x3:
		vm.opXOR(instr.x, instr.y)
	case 0x4:
		vm.opADDReg(instr.x, instr.y)
	case 0x5:
		vm.opSUB(instr.x, instr.y)
	case 0x6:
		vm.opSHR(instr.x, instr.y)
	case 0x7:
		vm.opSUBN(instr.x, instr.y)
	case 0xE:
		vm.opSHL(instr.x, instr.y)
	default:
		return vm.unknown(instr)
	}
	return nil
}

func (vm *VM) dispatchE(instr instruction) error {
	switch instr.nn {
	case 0x9E:
		vm.opSKP(instr.x)
	case 0xA1:
		vm.opSKNP(instr.x)
	default:
		return vm.unknown(instr)
	}
	return nil
}

func (vm *VM) dispatchF(ctx context.Context, instr instruction) error {
	switch instr.nn {
	case 0x07:
		vm.opLDVxDT(instr.x)
	case 0x0A:
		return vm.opLDVxK(ctx, instr.x)
	case 0x15:
		vm.opLDDTVx(instr.x)
	case 0x18:
		vm.opLDSTVx(instr.x)
	case 0x1E:
		vm.opADDI(instr.x)
	case 0x29:
		vm.opLDF(instr.x)
	case 0x33:
		return vm.opLDB(instr)
	case 0x55:
		return vm.opLDIVx(instr)
	case 0x65:
		return vm.opLDVxI(instr)
	default:
		return vm.unknown(instr)
	}
	return nil
}

func (vm *VM) unknown(instr instruction) error {
	return &UnknownOpcodeError{PC: vm.reg.pc - 2, Opcode: instr.word}
}

// --- 0x0___, 0x1___ .. 0x9___, 0xA___, 0xB___, 0xC___ --------------------

func (vm *VM) opCLS() {
	vm.gfx.clear()
}

func (vm *VM) opRET() error {
	addr, err := vm.reg.pop()
	if err != nil {
		return err
	}
	vm.reg.pc = addr
	return nil
}

func (vm *VM) opJP(nnn uint16) {
	vm.reg.pc = nnn
}

func (vm *VM) opCALL(nnn uint16) error {
	if err := vm.reg.push(vm.reg.pc); err != nil {
		return err
	}
	vm.reg.pc = nnn
	return nil
}

func (vm *VM) opSE(x, nn byte) {
	if vm.reg.v[x] == nn {
		vm.reg.pc += 2
	}
}

func (vm *VM) opSNE(x, nn byte) {
	if vm.reg.v[x] != nn {
		vm.reg.pc += 2
	}
}

func (vm *VM) opSEReg(x, y byte) {
	if vm.reg.v[x] == vm.reg.v[y] {
		vm.reg.pc += 2
	}
}

func (vm *VM) opSNEReg(x, y byte) {
	if vm.reg.v[x] != vm.reg.v[y] {
		vm.reg.pc += 2
	}
}

func (vm *VM) opSET(x, nn byte) {
	vm.reg.v[x] = nn
}

func (vm *VM) opADD(x, nn byte) {
	vm.reg.v[x] = byte(uint16(vm.reg.v[x]) + uint16(nn))
}

func (vm *VM) opSETI(nnn uint16) {
	vm.reg.i = nnn
}

func (vm *VM) opJPV0(nnn uint16) {
	vm.reg.pc = nnn + uint16(vm.reg.v[0])
}

func (vm *VM) opRND(x, nn byte) {
	vm.reg.v[x] = byte(vm.rng.Intn(256)) & nn
}

// --- 0x8xy_ arithmetic -----------------------------------------------------
//
// VF is always computed into a local and written last, after Vx, so that an
// 8xy4 with y==0xF reads the *old* VF as its operand.

func (vm *VM) opLD(x, y byte) {
	vm.reg.v[x] = vm.reg.v[y]
}

func (vm *VM) opOR(x, y byte) {
	vm.reg.v[x] = vm.reg.v[x] | vm.reg.v[y]
}

func (vm *VM) opAND(x, y byte) {
	vm.reg.v[x] = vm.reg.v[x] & vm.reg.v[y]
}

func (vm *VM) opXOR(x, y byte) {
	vm.reg.v[x] = vm.reg.v[x] ^ vm.reg.v[y]
}

func (vm *VM) opADDReg(x, y byte) {
	sum := uint16(vm.reg.v[x]) + uint16(vm.reg.v[y])
	result := byte(sum)
	var vf byte
	if sum > 0xFF {
		vf = 1
	}
	vm.reg.v[x] = result
	vm.reg.v[0xF] = vf
}

func (vm *VM) opSUB(x, y byte) {
	vx, vy := vm.reg.v[x], vm.reg.v[y]
	result := vx - vy
	var vf byte
	if vx >= vy {
		vf = 1
	}
	vm.reg.v[x] = result
	vm.reg.v[0xF] = vf
}

func (vm *VM) opSHR(x, y byte) {
	var src byte
	if vm.shiftUsesX {
		src = vm.reg.v[x]
	} else {
		src = vm.reg.v[y]
	}
	result := src >> 1
	vf := src & 0x01
	vm.reg.v[x] = result
	vm.reg.v[0xF] = vf
}

func (vm *VM) opSUBN(x, y byte) {
	vx, vy := vm.reg.v[x], vm.reg.v[y]
	result := vy - vx
	var vf byte
	if vy >= vx {
		vf = 1
	}
	vm.reg.v[x] = result
	vm.reg.v[0xF] = vf
}

func (vm *VM) opSHL(x, y byte) {
	var src byte
	if vm.shiftUsesX {
		src = vm.reg.v[x]
	} else {
		src = vm.reg.v[y]
	}
	result := src << 1
	vf := (src >> 7) & 0x01
	vm.reg.v[x] = result
	vm.reg.v[0xF] = vf
}

// --- 0xDxyn draw -------------------------------------------------------

func (vm *VM) opDRW(instr instruction) error {
	vx, vy := vm.reg.v[instr.x], vm.reg.v[instr.y]
	collision, outOfRange, oorIdx := vm.gfx.draw(vm.mem[:], int(vm.reg.i), vx, vy, instr.n)
	if outOfRange {
		return &MemoryOutOfRangeError{PC: vm.reg.pc - 2, Opcode: instr.word, Index: oorIdx, Field: "sprite row"}
	}
	var vf byte
	if collision {
		vf = 1
	}
	vm.reg.v[0xF] = vf
	return nil
}

// --- 0xEx__ keypad skips -------------------------------------------------

func (vm *VM) opSKP(x byte) {
	if vm.keypad.IsDown(vm.reg.v[x]) {
		vm.reg.pc += 2
	}
}

func (vm *VM) opSKNP(x byte) {
	if !vm.keypad.IsDown(vm.reg.v[x]) {
		vm.reg.pc += 2
	}
}

// --- 0xFx__ misc ---------------------------------------------------------

func (vm *VM) opLDVxDT(x byte) {
	vm.reg.v[x] = vm.delay.get()
}

func (vm *VM) opLDVxK(ctx context.Context, x byte) error {
	key, err := vm.keypad.AwaitPress(ctx)
	if err != nil {
		return err
	}
	vm.reg.v[x] = key
	return nil
}

func (vm *VM) opLDDTVx(x byte) {
	vm.delay.set(vm.reg.v[x])
}

func (vm *VM) opLDSTVx(x byte) {
	vm.sound.set(vm.reg.v[x])
}

func (vm *VM) opADDI(x byte) {
	vm.reg.i += uint16(vm.reg.v[x])
}

func (vm *VM) opLDF(x byte) {
	vm.reg.i = FontBase + uint16(vm.reg.v[x]&0x0F)*FontStride
}

func (vm *VM) opLDB(instr instruction) error {
	v := vm.reg.v[instr.x]
	idx := int(vm.reg.i)
	if idx < 0 || idx+2 >= MemorySize {
		return &MemoryOutOfRangeError{PC: vm.reg.pc - 2, Opcode: instr.word, Index: idx + 2, Field: "bcd"}
	}
	vm.mem[idx] = v / 100
	vm.mem[idx+1] = (v / 10) % 10
	vm.mem[idx+2] = v % 10
	return nil
}

func (vm *VM) opLDIVx(instr instruction) error {
	x := instr.x
	idx := int(vm.reg.i)
	if idx < 0 || idx+int(x) >= MemorySize {
		return &MemoryOutOfRangeError{PC: vm.reg.pc - 2, Opcode: instr.word, Index: idx + int(x), Field: "dump"}
	}
	for r := byte(0); r <= x; r++ {
		vm.mem[idx+int(r)] = vm.reg.v[r]
	}
	if !vm.memOpsLeaveI {
		vm.reg.i += uint16(x) + 1
	}
	return nil
}

func (vm *VM) opLDVxI(instr instruction) error {
	x := instr.x
	idx := int(vm.reg.i)
	if idx < 0 || idx+int(x) >= MemorySize {
		return &MemoryOutOfRangeError{PC: vm.reg.pc - 2, Opcode: instr.word, Index: idx + int(x), Field: "load"}
	}
	for r := byte(0); r <= x; r++ {
		vm.reg.v[r] = vm.mem[idx+int(r)]
	}
	if !vm.memOpsLeaveI {
		vm.reg.i += uint16(x) + 1
	}
	return nil
}
