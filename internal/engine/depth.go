package engine

import "fmt"

// DefaultMaxDepth bounds nested Run and RunByName calls within one context.
const DefaultMaxDepth = 64

// DepthGuard tracks how deeply runnables are nested within one context.
//
// Rule sets that invoke rule sets by name can recurse without bound; the
// guard turns that into a MAX_DEPTH_EXCEEDED error instead of a stack
// overflow. Not safe for concurrent use, like the context owning it.
type DepthGuard struct {
	max     int
	current int
}

// NewDepthGuard creates a guard allowing max nested levels.
func NewDepthGuard(max int) *DepthGuard {
	return &DepthGuard{max: max}
}

// Enter records one more level. It fails without changing the depth when
// the limit would be exceeded.
func (g *DepthGuard) Enter(unit, runID string) error {
	if g.current >= g.max {
		return &ExecutionError{
			Code:    ErrCodeMaxDepth,
			Message: fmt.Sprintf("nesting depth %d exceeds limit %d", g.current+1, g.max),
			Unit:    unit,
			RunID:   runID,
		}
	}
	g.current++
	return nil
}

// Leave records leaving one level.
func (g *DepthGuard) Leave() {
	if g.current > 0 {
		g.current--
	}
}

// Current returns the current depth.
func (g *DepthGuard) Current() int {
	return g.current
}

// Max returns the limit.
func (g *DepthGuard) Max() int {
	return g.max
}
