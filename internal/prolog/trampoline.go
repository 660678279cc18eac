package prolog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/xyproto/detour/internal/pic"
)

// Margin is the minimum prolog size a trampoline must consume: the width
// of the jmp rel32 the patcher installs at the direct patch site.
const Margin = 5

// ErrUnsupportedInstruction is returned when the prolog contains an
// instruction the builder cannot safely relocate.
var ErrUnsupportedInstruction = errors.New("prolog: unsupported instruction")

// Trampoline is the result of walking a target's prolog: a PIC emitter that
// reproduces PrologSize bytes of the original function and then continues
// execution at the first byte past them.
type Trampoline struct {
	Emitter    *pic.Emitter
	PrologSize int
}

// VerboseMode toggles one-line trace output to stderr as instructions are
// relocated, consulted the same way the rest of the module logs.
var VerboseMode = false

func trace(format string, args ...any) {
	if VerboseMode {
		fmt.Fprintf(os.Stderr, "prolog: "+format+"\n", args...)
	}
}

// Build walks the instructions starting at target (code must hold at least
// enough bytes to decode the whole prolog, with code[0] the byte at target)
// and produces a Trampoline whose PrologSize is >= margin. margin is
// clamped up to Margin if the caller passes something smaller.
func Build(code []byte, target uintptr, margin int) (*Trampoline, error) {
	if margin < Margin {
		margin = Margin
	}

	emitter := &pic.Emitter{}
	var branchDst *uintptr
	consumed := 0
	finished := false

	for !finished {
		if consumed >= len(code) {
			return nil, fmt.Errorf("%w: ran past the end of the supplied code window at %#x",
				ErrInvalidCode, target+uintptr(consumed))
		}
		cursorAddr := target + uintptr(consumed)
		inst, err := Decode(code[consumed:], cursorAddr)
		if err != nil {
			return nil, err
		}

		th, setFinished, newBranchDst, err := classify(inst, target, margin, consumed, branchDst)
		if err != nil {
			return nil, err
		}
		if newBranchDst != nil {
			branchDst = newBranchDst
		}

		if th.Len() != inst.Len && branchDst != nil && inst.Addr < *branchDst {
			return nil, fmt.Errorf("%w: relocating instruction at %#x would shift intra-prolog branch target %#x",
				ErrUnsupportedInstruction, inst.Addr, *branchDst)
		}

		trace("relocate %#x len=%d -> thunk len=%d", inst.Addr, inst.Len, th.Len())
		emitter.Add(th)
		consumed += inst.Len
		if setFinished {
			finished = true
		}

		if consumed >= margin && !finished {
			emitter.Add(jmpThunk(target + uintptr(consumed)))
			finished = true
		}
	}

	return &Trampoline{Emitter: emitter, PrologSize: consumed}, nil
}

// classify emits the thunk for a single instruction per the trampoline
// builder's algorithm. consumed is the number of prolog bytes already
// accounted for by earlier iterations, not counting inst itself.
func classify(inst Instruction, target uintptr, margin, consumed int, branchDst *uintptr) (th pic.Thunkable, finished bool, newBranchDst *uintptr, err error) {
	insideEarlierBranch := func(addr uintptr) bool {
		return branchDst != nil && addr >= *branchDst
	}

	switch {
	case inst.RIPRelDisp != nil:
		th = ripRelativeThunk(inst, consumed)
		if inst.IsIndirectJump {
			finished = true
		}

	case inst.BranchDisp != nil:
		absDst := inst.AbsoluteBranchTarget()
		switch {
		case inst.IsCall:
			th = callThunk(absDst)

		case absDst >= target && absDst < target+uintptr(margin):
			// Intra-prolog branch: the destination is still being copied
			// verbatim into the trampoline, so the original relative
			// encoding keeps working unchanged.
			th = pic.Static(inst.Raw)
			dst := absDst
			newBranchDst = &dst

		case inst.IsLoopLike:
			err = fmt.Errorf("%w: loop-class branch at %#x leaves the prolog", ErrUnsupportedInstruction, inst.Addr)

		case inst.IsUnconditionalJump:
			th = jmpThunk(absDst)
			if !insideEarlierBranch(inst.Addr) {
				finished = true
			}

		default: // conditional jcc
			th = jccThunk(absDst, inst.Condition)
		}

	case inst.IsReturn:
		th = pic.Static(inst.Raw)
		if !insideEarlierBranch(inst.Addr) {
			finished = true
		}

	case inst.IsIndirectJump:
		// jmp through a register or non-RIP-relative memory operand: no
		// position-dependent bytes to rewrite, but control leaves the
		// prolog unconditionally.
		th = pic.Static(inst.Raw)
		finished = true

	default:
		th = pic.Static(inst.Raw)
	}

	return
}

// ripRelativeThunk builds the thunk for an instruction with a RIP-relative
// memory operand. If the referent falls inside the bytes already consumed
// from the prolog (d in [-consumed, 0)), the trampoline's verbatim copy of
// those bytes still holds the same referent, so no rewrite is needed.
func ripRelativeThunk(inst Instruction, consumed int) pic.Thunkable {
	d := *inst.RIPRelDisp
	if int(d) >= -consumed && int(d) < 0 {
		return pic.Static(inst.Raw)
	}

	origAddr := inst.Addr
	off, length := inst.ripRelOff, inst.ripRelLen
	raw := append([]byte(nil), inst.Raw...)

	return pic.NewDynamic(len(raw), func(newBase uintptr) []byte {
		out := append([]byte(nil), raw...)
		newDisp := int64(origAddr) - int64(newBase) + int64(d)
		if newDisp > 0x7fffffff || newDisp < -0x80000000 {
			panic(fmt.Sprintf("prolog: rewritten RIP-relative displacement %#x at %#x overflows 32 bits", newDisp, origAddr))
		}
		binary.LittleEndian.PutUint32(out[off:off+length], uint32(int32(newDisp)))
		return out
	})
}
