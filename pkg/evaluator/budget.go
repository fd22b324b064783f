package evaluator

// DefaultMaxCallDepth bounds recursion when no limit is configured.
const DefaultMaxCallDepth = 10000

// Limits holds the resource limits for a program execution.
// Zero values mean "use the default" for MaxCallDepth and "unlimited" for
// MaxIterations.
type Limits struct {
	MaxCallDepth  int
	MaxIterations int64
}

// Tracker tracks resource consumption during execution.
type Tracker struct {
	Calls      int64
	Iterations int64
	MaxDepth   int
}

func (l Limits) callDepth() int {
	if l.MaxCallDepth <= 0 {
		return DefaultMaxCallDepth
	}
	return l.MaxCallDepth
}
