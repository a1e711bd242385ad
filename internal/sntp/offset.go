package sntp

// ComputeOffset returns the round-trip delay and the clock offset in
// milliseconds, given the originate (t1), receive (t2), transmit (t3) and
// destination (t4) timestamps in milliseconds.
func ComputeOffset(t1, t2, t3, t4 float64) (delayMs, offsetMs float64) {
	delayMs = (t4 - t1) - (t3 - t2)
	offsetMs = ((t2 - t1) + (t3 - t4)) / 2
	return
}
