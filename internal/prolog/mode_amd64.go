//go:build amd64

package prolog

// decodeMode is the x86asm processor-mode bit width this build decodes for.
const decodeMode = 64
