package entity

// ScanState is the lifecycle of one scan request.
type ScanState string

const (
	ScanStateIdle         ScanState = "idle"
	ScanStateReadingVideo ScanState = "reading_video"
	ScanStateAggregating  ScanState = "aggregating"
	ScanStateResolving    ScanState = "resolving"
	ScanStateDone         ScanState = "done"
	ScanStateFailed       ScanState = "failed"
)

var scanTransitions = map[ScanState][]ScanState{
	ScanStateIdle:         {ScanStateReadingVideo},
	ScanStateReadingVideo: {ScanStateAggregating, ScanStateFailed},
	ScanStateAggregating:  {ScanStateResolving},
	ScanStateResolving:    {ScanStateDone},
}

// CanTransition reports whether next may follow s. Failed is only reachable
// while the video is being opened.
func (s ScanState) CanTransition(next ScanState) bool {
	for _, allowed := range scanTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s ScanState) Terminal() bool {
	return s == ScanStateDone || s == ScanStateFailed
}
