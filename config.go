package detour

import (
	"github.com/xyproto/env/v2"

	"github.com/xyproto/detour/internal/alloc"
	"github.com/xyproto/detour/internal/patcher"
	"github.com/xyproto/detour/internal/prolog"
)

// defaultMaxDistance is the proximity allocator's default reach, matching
// the original implementation's 512 MiB default.
const defaultMaxDistance = 0x20000000

// VerboseMode mirrors DETOUR_VERBOSE: when true, the allocator, patcher and
// trampoline builder each print a one-line trace of their decisions to
// stderr.
var VerboseMode = env.Bool("DETOUR_VERBOSE")

// maxDistance is the proximity allocator's configured reach, read once
// from DETOUR_MAX_DISTANCE at package init.
var maxDistance = uintptr(env.Int("DETOUR_MAX_DISTANCE", defaultMaxDistance))

func init() {
	alloc.VerboseMode = VerboseMode
	patcher.VerboseMode = VerboseMode
	prolog.VerboseMode = VerboseMode
}
