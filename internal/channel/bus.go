package channel

import (
	"context"
	"errors"

	d "github.com/fjod/go_pos/domain"
)

// Bus carries checkout snapshots and payment events from the register to its displays.
type Bus interface {
	Publish(ctx context.Context, msg d.ChannelMessage) error
	// Subscribe returns a stream of messages that is closed when ctx is done.
	Subscribe(ctx context.Context) (<-chan d.ChannelMessage, error)
}

var ErrClosed = errors.New("channel bus closed")

const subscriberBuffer = 64
