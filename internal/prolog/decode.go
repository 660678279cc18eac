package prolog

import (
	"errors"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// ErrInvalidCode is returned when the decoder cannot make sense of the
// bytes at a given address.
var ErrInvalidCode = errors.New("prolog: invalid instruction")

// conditionCodes maps x86asm's named Jcc mnemonics to the 4-bit condition
// nibble used by the 0F 8x / 7x opcode families.
var conditionCodes = map[x86asm.Op]byte{
	x86asm.JO:  0x0,
	x86asm.JNO: 0x1,
	x86asm.JB:  0x2,
	x86asm.JAE: 0x3,
	x86asm.JE:  0x4,
	x86asm.JNE: 0x5,
	x86asm.JBE: 0x6,
	x86asm.JA:  0x7,
	x86asm.JS:  0x8,
	x86asm.JNS: 0x9,
	x86asm.JP:  0xA,
	x86asm.JNP: 0xB,
	x86asm.JL:  0xC,
	x86asm.JGE: 0xD,
	x86asm.JLE: 0xE,
	x86asm.JG:  0xF,
}

func isLoopLike(op x86asm.Op) bool {
	switch op {
	case x86asm.LOOP, x86asm.LOOPE, x86asm.LOOPNE, x86asm.JCXZ, x86asm.JECXZ, x86asm.JRCXZ:
		return true
	default:
		return false
	}
}

// Decode reads a single instruction from code (which must start at addr)
// and returns its classification. code may extend past the instruction's
// end; only the decoded instruction's own bytes are read.
func Decode(code []byte, addr uintptr) (Instruction, error) {
	inst, err := x86asm.Decode(code, decodeMode)
	if err != nil || inst.Len == 0 {
		return Instruction{}, fmt.Errorf("%w at %#x: %v", ErrInvalidCode, addr, err)
	}

	out := Instruction{
		Addr: addr,
		Len:  inst.Len,
		Raw:  append([]byte(nil), code[:inst.Len]...),
	}

	switch inst.Op {
	case x86asm.RET:
		out.IsReturn = true
	case x86asm.CALL:
		out.IsCall = true
	case x86asm.JMP:
		out.IsUnconditionalJump = true
	}
	if isLoopLike(inst.Op) {
		out.IsLoopLike = true
	}
	if cond, ok := conditionCodes[inst.Op]; ok {
		out.IsConditionalJump = true
		out.Condition = cond
	}

	hasRel := false
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		switch a := arg.(type) {
		case x86asm.Mem:
			if a.Base == x86asm.RIP && inst.PCRel != 0 {
				disp := int32(a.Disp)
				out.RIPRelDisp = &disp
				out.ripRelOff = inst.PCRelOff
				out.ripRelLen = inst.PCRel
			}
		case x86asm.Rel:
			disp := int32(a)
			out.BranchDisp = &disp
			out.BranchImmWidth = inst.PCRel * 8
			hasRel = true
		}
	}
	// jmp through a register or memory operand (no Rel arg) is an
	// indirect control transfer; the builder ends the prolog walk at an
	// indirect jmp.
	if inst.Op == x86asm.JMP && !hasRel {
		out.IsIndirectJump = true
	}

	return out, nil
}
