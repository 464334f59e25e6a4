package channel

import (
	"context"
	"sync"

	d "github.com/fjod/go_pos/domain"
)

// Local fans messages out in process. A subscriber that falls behind loses messages
// instead of blocking the register; the next snapshot supersedes what it missed.
type Local struct {
	mu     sync.Mutex
	subs   map[int]chan d.ChannelMessage
	nextID int
	closed bool
}

func NewLocal() *Local {
	return &Local{subs: make(map[int]chan d.ChannelMessage)}
}

func (l *Local) Publish(_ context.Context, msg d.ChannelMessage) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return ErrClosed
	}
	for _, ch := range l.subs {
		select {
		case ch <- msg:
		default:
		}
	}
	return nil
}

func (l *Local) Subscribe(ctx context.Context) (<-chan d.ChannelMessage, error) {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, ErrClosed
	}
	id := l.nextID
	l.nextID++
	ch := make(chan d.ChannelMessage, subscriberBuffer)
	l.subs[id] = ch
	l.mu.Unlock()

	go func() {
		<-ctx.Done()
		l.mu.Lock()
		if c, ok := l.subs[id]; ok {
			delete(l.subs, id)
			close(c)
		}
		l.mu.Unlock()
	}()
	return ch, nil
}

func (l *Local) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	for id, ch := range l.subs {
		delete(l.subs, id)
		close(ch)
	}
	return nil
}
