package session

// State is the supervisor lifecycle state.
type State string

// Session states, in order.
const (
	StateIdle       State = "idle"
	StateStarting   State = "starting"
	StateRunning    State = "running"
	StateDraining   State = "draining"
	StateTerminated State = "terminated"
)

// EndedBy names what ended a run.
type EndedBy string

const (
	EndedByNone      EndedBy = ""
	EndedByProducer  EndedBy = "producer"
	EndedByConsumer  EndedBy = "consumer"
	EndedByInterrupt EndedBy = "interrupt"
)

// Result is the outcome of a completed run. Child exit codes are surfaced
// as-is; -1 means the child was never started.
type Result struct {
	ProducerExit int
	ConsumerExit int
	EndedBy      EndedBy
	Interrupted  bool
}

// ExitCode is the process exit status for the whole run: the code of the
// child that ended it, or 0 when the user interrupted.
func (r Result) ExitCode() int {
	switch r.EndedBy {
	case EndedByProducer:
		return r.ProducerExit
	case EndedByConsumer:
		return r.ConsumerExit
	default:
		return 0
	}
}
