package pipeline

// Route is the confidence routing decision for a vector-store match.
type Route int

const (
	// RouteMiss falls through to the next tier.
	RouteMiss Route = iota
	// RouteWebRecommended uses the record but flags that a web search would
	// likely improve the answer.
	RouteWebRecommended
	// RouteUncertain uses the record but marks the result uncertain.
	RouteUncertain
	// RouteDirect uses the record with full confidence.
	RouteDirect
)

// RouteForScore maps a similarity score onto a route. It is a pure function
// of the score and the current thresholds; callers re-read thresholds on
// every query so tuning them never requires a restart.
func RouteForScore(score, high, medium, low float64) Route {
	switch {
	case score >= high:
		return RouteDirect
	case score >= medium:
		return RouteUncertain
	case score >= low:
		return RouteWebRecommended
	default:
		return RouteMiss
	}
}

// State names one position in the pipeline's state machine. States advance
// strictly forward; Failed is reachable from anywhere.
type State string

const (
	StateStart       State = "START"
	StateTier1Check  State = "TIER1_CHECK"
	StateVectorCheck State = "VECTOR_CHECK"
	StateTier2Check  State = "TIER2_CHECK"
	StateWebSearch   State = "WEB_SEARCH"
	StateGenerate    State = "GENERATE"
	StateDone        State = "DONE"
	StateFailed      State = "FAILED"
)
