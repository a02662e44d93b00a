package pipeline

// Outcome is the result of one best-effort collaborator call. The pipeline is
// forward-only: a degraded call never aborts the round, it just leaves its
// reason behind for the log.
type Outcome[T any] struct {
	Value  T
	Reason string
	ok     bool
}

func Ok[T any](v T) Outcome[T] {
	return Outcome[T]{Value: v, ok: true}
}

func Degraded[T any](reason string) Outcome[T] {
	return Outcome[T]{Reason: reason}
}

func (o Outcome[T]) OK() bool { return o.ok }
