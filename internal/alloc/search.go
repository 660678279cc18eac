package alloc

import (
	"errors"

	"github.com/xyproto/detour/internal/memregion"
)

// reachWindow computes [origin-maxDistance, origin+maxDistance), clamping
// the low end at zero rather than wrapping.
func reachWindow(origin, maxDistance uintptr) (low, high uintptr) {
	if origin > maxDistance {
		low = origin - maxDistance
	}
	high = origin + maxDistance
	return
}

// probeFreeRegions scans page-aligned addresses within [origin-maxDistance,
// origin+maxDistance) for ones the region oracle reports unbacked,
// preferring addresses above origin before below it (some OSes forbid
// unprivileged processes from mapping low addresses). It calls try at each
// candidate and stops as soon as try reports success or an error.
func probeFreeRegions(origin, maxDistance uintptr, try func(addr uintptr) (bool, error)) error {
	low, high := reachWindow(origin, maxDistance)
	pageSize := uintptr(memregion.PageSize())

	found, err := scanDirection(origin, low, high, pageSize, true, try)
	if err != nil || found {
		return err
	}
	_, err = scanDirection(origin, low, high, pageSize, false, try)
	return err
}

func scanDirection(origin, low, high, pageSize uintptr, up bool, try func(uintptr) (bool, error)) (bool, error) {
	addr := origin
	for {
		if up {
			if addr >= high {
				return false, nil
			}
		} else if addr < low {
			return false, nil
		}

		region, err := memregion.Query(addr)
		switch {
		case errors.Is(err, memregion.ErrFreed):
			ok, tryErr := try(addr)
			if tryErr != nil {
				return false, tryErr
			}
			if ok {
				return true, nil
			}
			if up {
				addr += pageSize
			} else {
				if addr < low+pageSize {
					return false, nil
				}
				addr -= pageSize
			}
		case err != nil:
			return false, err
		default:
			if up {
				addr = region.High
			} else {
				if region.Low < low+pageSize {
					return false, nil
				}
				addr = region.Low - pageSize
			}
		}
	}
}
