package stream

type State int32

const (
	Starting State = iota
	Running
	Draining
	Stopped
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Draining:
		return "draining"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// Cause is why the loop left the running state.
type Cause int

const (
	CauseNone Cause = iota
	CauseInterrupt
	CauseShape
	CauseWrite
	CausePanic
)

func (c Cause) String() string {
	switch c {
	case CauseNone:
		return "none"
	case CauseInterrupt:
		return "interrupt"
	case CauseShape:
		return "shape"
	case CauseWrite:
		return "write"
	case CausePanic:
		return "panic"
	}
	return "unknown"
}
