package bus

import (
	"sync"
)

// A broadcasting signal bus. It always cleans up after itself. You can
// emit messages to topics that nobody is waiting on yet, those messages
// will however be drained away.
type SignalBus[K comparable, T any] struct {
	channels map[K][]chan T
	lock     sync.Mutex
}

func New[K comparable, T any]() *SignalBus[K, T] {
	return &SignalBus[K, T]{
		channels: make(map[K][]chan T),
	}
}

// Emit a message on a topic. Every pending wait on the topic resolves
// with the message.
func (s *SignalBus[K, T]) Emit(topic K, message T) {
	s.lock.Lock()
	channels, ok := s.channels[topic]
	if ok {
		delete(s.channels, topic)
	}
	s.lock.Unlock()

	for _, channel := range channels {
		select {
		case channel <- message:
			close(channel)
		default:
		}
	}
}

// Wait for a message on the topic. Returns the message and a bool flag
// that indicates if the wait was aborted. This usually happens when the
// topic is being cleaned up.
func (s *SignalBus[K, T]) Wait(topic K) (T, bool) {
	channel := make(chan T)

	s.lock.Lock()
	if channels, ok := s.channels[topic]; ok {
		s.channels[topic] = append(channels, channel)
	} else {
		s.channels[topic] = []chan T{channel}
	}
	s.lock.Unlock()

	if value, ok := <-channel; ok {
		return value, false
	} else {
		var zero T
		return zero, true
	}
}

// Clean up a topic on the bus. All pending waits resolve with a done
// flag.
func (s *SignalBus[K, T]) CleanUp(topic K) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if channels, ok := s.channels[topic]; ok {
		for _, channel := range channels {
			close(channel)
		}
		delete(s.channels, topic)
	}
}
