package prolog

import (
	"bytes"
	"errors"
	"runtime"
	"testing"
)

// expectedJmpLen returns the length of the tail jmp thunk this build's
// arch-specific jmpThunk produces: the absolute form on amd64, rel32 on 386.
func expectedJmpLen() int {
	if runtime.GOARCH == "amd64" {
		return 14
	}
	return 5
}

func TestBuildStraightLinePrologAppendsTailJump(t *testing.T) {
	const target = uintptr(0x1000)
	code := []byte{0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90, 0x90} // 8 one-byte NOPs

	tr, err := Build(code, target, Margin)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tr.PrologSize != 5 {
		t.Fatalf("PrologSize = %d, want 5 (margin reached after 5 NOPs)", tr.PrologSize)
	}
	if want := 5 + expectedJmpLen(); tr.Emitter.Len() != want {
		t.Fatalf("Emitter.Len() = %d, want %d", tr.Emitter.Len(), want)
	}
	out := tr.Emitter.Emit(0x2000)
	if !bytes.Equal(out[:5], []byte{0x90, 0x90, 0x90, 0x90, 0x90}) {
		t.Fatalf("relocated prolog head = % x, want five NOPs", out[:5])
	}
}

func TestBuildShortPrologFinishesEarly(t *testing.T) {
	// xor eax,eax (2 bytes: 31 C0); ret (1 byte: C3) — the hot-patch
	// scenario's short prolog, shorter than the 5-byte margin.
	const target = uintptr(0x3000)
	code := []byte{0x31, 0xC0, 0xC3}

	tr, err := Build(code, target, Margin)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tr.PrologSize != 3 {
		t.Fatalf("PrologSize = %d, want 3 (ret finishes before margin)", tr.PrologSize)
	}
	if tr.Emitter.Len() != 3 {
		t.Fatalf("Emitter.Len() = %d, want 3 (no tail jump appended once finished)", tr.Emitter.Len())
	}
	out := tr.Emitter.Emit(0x4000)
	if !bytes.Equal(out, code) {
		t.Fatalf("relocated short prolog = % x, want verbatim % x", out, code)
	}
}

func TestBuildIntraPrologBranchCopiedVerbatim(t *testing.T) {
	// je +2 targets the NOP sitting at target+4, strictly inside the first
	// margin(5) bytes of the prolog, modeling spec.md's "branch_ret5"-style
	// intra-prolog conditional branch.
	const target = uintptr(0x5000)
	code := []byte{
		0x74, 0x02, // je +2 -> absDst = (target+2) + 2 = target+4
		0x90, 0x90, 0x90, // three one-byte NOPs; the branch lands on the third
	}

	tr, err := Build(code, target, Margin)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// je(2) + 3 nops(3) = 5 bytes consumed reaches margin; builder appends tail jmp.
	if tr.PrologSize != 5 {
		t.Fatalf("PrologSize = %d, want 5", tr.PrologSize)
	}
	out := tr.Emitter.Emit(0x6000)
	if out[0] != 0x74 || out[1] != 0x02 {
		t.Fatalf("intra-prolog je not copied verbatim: % x", out[:2])
	}
}

func TestBuildLoopLeavingPrologIsUnsupported(t *testing.T) {
	// loop +10 targets well past [target, target+margin), so it cannot be
	// treated as an intra-prolog branch and has no long-form encoding.
	const target = uintptr(0x7000)
	code := []byte{0xE2, 0x0A} // loop rel8 = +10

	_, err := Build(code, target, Margin)
	if !errors.Is(err, ErrUnsupportedInstruction) {
		t.Fatalf("Build with escaping loop: err = %v, want ErrUnsupportedInstruction", err)
	}
}

func TestBuildCallInPrologContinuesPastIt(t *testing.T) {
	// call rel32 to some far address, then enough NOPs to reach a margin of
	// 7, which the 5-byte call alone does not reach.
	const target = uintptr(0x8000)
	code := []byte{
		0xE8, 0x00, 0x10, 0x00, 0x00, // call target+5+0x1000
		0x90, 0x90, 0x90, 0x90, 0x90,
	}

	tr, err := Build(code, target, 7)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tr.PrologSize != 7 {
		t.Fatalf("PrologSize = %d, want 7 (call does not finish the walk)", tr.PrologSize)
	}
}

func TestBuildRIPRelativeOutsideProlog(t *testing.T) {
	// mov al, [rip+0] ; then NOPs to margin. "A0" family isn't RIP-capable
	// on its own, so use a representative instruction: "8A 05 00 00 00 00"
	// = mov al, [rip+0] (ModRM mod=00 rm=101 -> RIP-relative, disp32=0).
	const target = uintptr(0x9000)
	code := []byte{
		0x8A, 0x05, 0x00, 0x00, 0x00, 0x00, // mov al, [rip+0]  (len 6)
		0x90, // one more byte, unreachable but keeps margin math simple
	}

	tr, err := Build(code, target, Margin)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if tr.PrologSize != 6 {
		t.Fatalf("PrologSize = %d, want 6 (mov instruction alone exceeds margin)", tr.PrologSize)
	}
	out := tr.Emitter.Emit(0x10000)
	// The displacement must have been rewritten since the referent (rip+0
	// from the original address) sits outside the already-consumed prolog.
	if bytes.Equal(out[2:6], []byte{0, 0, 0, 0}) {
		t.Fatalf("RIP-relative displacement was not rewritten for new base")
	}
}
