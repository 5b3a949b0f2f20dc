package views

import (
	"context"

	"github.com/dmitrijs2005/studycircle/internal/broadcast"
	"github.com/dmitrijs2005/studycircle/internal/client/session"
)

// Watch calls render for every event on sub until the subscription ends or
// ctx is done. It returns sub.Err() in the first case and ctx.Err() in the
// second; broadcast.ErrSlowSubscriber means events were lost and the caller
// should resubscribe. The subscription is closed on return.
func Watch(ctx context.Context, sub broadcast.Subscriber[session.Event], render func(session.Event)) error {
	defer func() { _ = sub.Close() }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-sub.Receive():
			if !ok {
				return sub.Err()
			}
			render(msg.Data)
		}
	}
}
