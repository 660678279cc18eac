//go:build 386

package prolog

// decodeMode is the x86asm processor-mode bit width this build decodes for.
const decodeMode = 32
