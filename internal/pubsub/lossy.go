package pubsub

// NewLossySender wraps c so that messages accepted by droppable are discarded when c has no room for them, instead of
// blocking the sender. Every other message waits as usual. Closing either the wrapper or c closes both.
func NewLossySender[T any](c Channel[T], droppable func(T) bool) SenderCloser[T] {
	return &lossySender[T]{
		ch:        c,
		droppable: droppable,
	}
}

type lossySender[T any] struct {
	ch        Channel[T]
	droppable func(T) bool
}

// Send reports false only once the channel is closed; a dropped message still counts as sent.
func (s *lossySender[T]) Send(msg T) bool {
	if s.droppable == nil || !s.droppable(msg) {
		return s.ch.Send(msg)
	}
	if s.ch.TrySend(msg) {
		return true
	}
	select {
	case <-s.ch.Closed():
		return false
	default:
		return true
	}
}

func (s *lossySender[T]) Close() {
	s.ch.Close()
}

func (s *lossySender[T]) Closed() <-chan struct{} {
	return s.ch.Closed()
}
