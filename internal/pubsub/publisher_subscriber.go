package pubsub

import (
	"errors"
	"sync"

	"github.com/alanbriolat/video-harvester/internal/sync_"
)

const (
	DefaultPublisherBufSize  = 1
	DefaultSubscriberBufSize = 1
)

var (
	ErrPublisherClosed = errors.New("publisher closed")
)

type Publisher[T any] interface {
	SenderCloser[T]
	// AddSubscriber attaches s to the publisher. If close is true, s is closed along with the publisher.
	AddSubscriber(s SenderCloser[T], close bool) error
	RemoveSubscriber(s SenderCloser[T])
	Subscribe() (ReceiverCloser[T], error)
	SubscribeBufSize(int) (ReceiverCloser[T], error)
}

type publisher[T any] struct {
	mu          sync.Mutex
	ch          Channel[T]
	running     sync.WaitGroup // Goroutines in progress
	pending     sync.WaitGroup // Messages not yet sent to all subscribers
	subscribers *sync_.Mutexed[map[SenderCloser[T]]bool]
	closed      bool
}

func NewPublisher[T any]() Publisher[T] {
	return NewPublisherBufSize[T](DefaultPublisherBufSize)
}

func NewPublisherBufSize[T any](bufSize int) Publisher[T] {
	p := &publisher[T]{
		ch:          NewChannel[T](bufSize),
		subscribers: sync_.NewMutexed(make(map[SenderCloser[T]]bool)),
	}
	p.running.Add(1)
	go func() {
		defer p.running.Done()
		for v := range p.ch.Receive() {
			// Get the latest set of subscribers, to avoid holding a lock that prevents adding new subscribers
			for _, s := range p.subscriberSlice(false) {
				if ok := s.Send(v); !ok {
					p.RemoveSubscriber(s)
				}
			}
			p.pending.Done()
		}
	}()
	return p
}

// Send will publish the value to all subscribers.
func (p *publisher[T]) Send(msg T) bool {
	p.pending.Add(1)
	if ok := p.ch.Send(msg); !ok {
		// Message was not sent, so don't wait for it
		p.pending.Done()
		return false
	} else {
		return true
	}
}

func (p *publisher[T]) Subscribe() (ReceiverCloser[T], error) {
	return p.SubscribeBufSize(DefaultSubscriberBufSize)
}

func (p *publisher[T]) SubscribeBufSize(bufSize int) (ReceiverCloser[T], error) {
	s := NewChannel[T](bufSize)
	if err := p.AddSubscriber(s, true); err != nil {
		return nil, err
	} else {
		return s, nil
	}
}

func (p *publisher[T]) AddSubscriber(s SenderCloser[T], close bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	return p.subscribers.Locked(func(subscribers *map[SenderCloser[T]]bool) error {
		(*subscribers)[s] = close
		return nil
	})
}

func (p *publisher[T]) RemoveSubscriber(s SenderCloser[T]) {
	_ = p.subscribers.Locked(func(subscribers *map[SenderCloser[T]]bool) error {
		delete(*subscribers, s)
		return nil
	})
}

func (p *publisher[T]) subscriberSlice(closing bool) []SenderCloser[T] {
	var result []SenderCloser[T]
	_ = p.subscribers.Locked(func(subscribers *map[SenderCloser[T]]bool) error {
		for s, close := range *subscribers {
			if !closing || close {
				result = append(result, s)
			}
		}
		if closing {
			*subscribers = make(map[SenderCloser[T]]bool)
		}
		return nil
	})
	return result
}

// Close idempotently shuts down the publisher, closing subscribers that were added with close=true.
func (p *publisher[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	// Did we already do this?
	if p.closed {
		return
	}
	// Close the send channel, and wait for the channel to be flushed
	p.ch.Close()
	p.pending.Wait()
	p.running.Wait()
	for _, s := range p.subscriberSlice(true) {
		s.Close()
	}
	// Finally, record the publisher as closed
	p.closed = true
}

func (p *publisher[T]) Closed() <-chan struct{} {
	return p.ch.Closed()
}
