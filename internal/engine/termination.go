package engine

// StopReason explains why a run terminated.
type StopReason string

const (
	StopMaxSteps       StopReason = "max steps reached"
	StopAllExposed     StopReason = "all users exposed or labeled"
	StopAllNeutralized StopReason = "all generators neutralized"
)

// stopReasons evaluates every stop condition in priority order and returns
// all that hold. The first entry is the one surfaced to callers.
func stopReasons(p Params, steps int, c Census) []StopReason {
	var reasons []StopReason
	if steps >= p.MaxSteps {
		reasons = append(reasons, StopMaxSteps)
	}
	if p.AutoStopWhenAllExposed && c.Unexposed == 0 {
		reasons = append(reasons, StopAllExposed)
	}
	if c.ActiveGenerators == 0 {
		reasons = append(reasons, StopAllNeutralized)
	}
	return reasons
}

// initialStopReasons is the check made before the first step. Only the
// all-exposed auto stop applies there; the step budget and the generator
// count are judged after a step has actually run.
func initialStopReasons(p Params, c Census) []StopReason {
	if p.AutoStopWhenAllExposed && c.Unexposed == 0 {
		return []StopReason{StopAllExposed}
	}
	return nil
}
