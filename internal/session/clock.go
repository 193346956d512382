package session

// FrameClock is a session clock that advances one frame per Tick. It
// satisfies experiment.Clock so trial timestamps are frame-exact.
type FrameClock struct {
	fps   float64
	ticks int64
}

// NewFrameClock returns a clock for the given frame rate. Non-positive rates
// fall back to 60 FPS.
func NewFrameClock(fps float64) *FrameClock {
	if fps <= 0 {
		fps = 60
	}
	return &FrameClock{fps: fps}
}

// Advance moves the clock forward one frame.
func (c *FrameClock) Advance() { c.ticks++ }

// Ticks returns the number of frames elapsed.
func (c *FrameClock) Ticks() int64 { return c.ticks }

// Millis returns the elapsed session time in milliseconds.
func (c *FrameClock) Millis() float64 {
	return float64(c.ticks) * 1000 / c.fps
}
