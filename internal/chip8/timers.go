package chip8

// Clock is the host wall-clock source the timer subsystem reads from. It is
// the only collaborator the timer code needs; tests supply a fake so timer
// behavior doesn't depend on real elapsed time.
type Clock interface {
	// NowMillis returns a monotonic millisecond count. Only deltas between
	// calls matter, not the absolute value.
	NowMillis() int64
}

// timer models one of the two 60 Hz decrementing timers (delay, sound). It
// is deliberately NOT decremented once per instruction or once per Step --
// that couples the countdown to CPU cadence, which drifts with however fast
// the host happens to dispatch opcodes. Instead it stores the value written
// and the clock reading at the time of the write, and derives the current
// value on read from elapsed wall-clock time.
type timer struct {
	clock     Clock
	base      byte
	writtenAt int64
}

const ticksPerSecond = 60

func newTimer(clock Clock) timer {
	return timer{clock: clock}
}

func (t *timer) set(v byte) {
	t.base = v
	t.writtenAt = t.clock.NowMillis()
}

func (t *timer) get() byte {
	if t.base == 0 {
		return 0
	}
	elapsedMs := t.clock.NowMillis() - t.writtenAt
	ticks := int64(0)
	if elapsedMs > 0 {
		ticks = (elapsedMs * ticksPerSecond) / 1000
	}
	if ticks >= int64(t.base) {
		return 0
	}
	return t.base - byte(ticks)
}
