package redis

import (
	"context"

	"go-freelance-backend/pkg/logger"

	goredis "github.com/redis/go-redis/v9"
)

// ChangeChannel is the pub/sub channel carrying changed tree paths.
const ChangeChannel = "tree:changes"

// ChangeNotifier fans tree changes out to every API instance over redis
// pub/sub.
type ChangeNotifier struct {
	rdb *goredis.Client
}

func NewChangeNotifier(rdb *goredis.Client) *ChangeNotifier {
	return &ChangeNotifier{rdb: rdb}
}

func (n *ChangeNotifier) Publish(ctx context.Context, path string) error {
	return n.rdb.Publish(ctx, ChangeChannel, path).Err()
}

func (n *ChangeNotifier) Listen(ctx context.Context, fn func(path string)) error {
	sub := n.rdb.Subscribe(ctx, ChangeChannel)
	// Wait for the subscription to be confirmed before returning.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return err
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					logger.Log.Warn("Tree change subscription closed")
					return
				}
				fn(msg.Payload)
			}
		}
	}()
	return nil
}
