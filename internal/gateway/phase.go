package gateway

// Phase is a startup state. The gateway only moves forward through the
// phases; a failure leaves it in the phase that failed.
type Phase string

const (
	PhaseBootstrapping      Phase = "Bootstrapping"
	PhaseWaitingForServices Phase = "WaitingForServices"
	PhaseIntrospecting      Phase = "Introspecting"
	PhaseStitching          Phase = "Stitching"
	PhaseServing            Phase = "Serving"
)

var phaseOrder = map[Phase]int{
	PhaseBootstrapping:      0,
	PhaseWaitingForServices: 1,
	PhaseIntrospecting:      2,
	PhaseStitching:          3,
	PhaseServing:            4,
}

// Index is the position of p in the startup sequence, -1 if p is unknown.
func (p Phase) Index() int {
	if i, ok := phaseOrder[p]; ok {
		return i
	}
	return -1
}
