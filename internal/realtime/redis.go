package realtime

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const channelPrefix = "notifications:"

// NotificationChannel is the per-user pub/sub channel.
func NotificationChannel(userID uuid.UUID) string {
	return channelPrefix + userID.String()
}

func userFromChannel(ch string) (uuid.UUID, error) {
	if !strings.HasPrefix(ch, channelPrefix) {
		return uuid.Nil, fmt.Errorf("unexpected channel %q", ch)
	}
	return uuid.Parse(strings.TrimPrefix(ch, channelPrefix))
}

// NewRedis creates a new Redis client
func NewRedis(addr, password string, db int, log *logrus.Entry) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	log.WithField("addr", addr).Info("redis client created")
	return rdb
}

// Relay forwards notifications published on Redis to sockets connected to
// this process, so any instance can notify a user connected to another one.
type Relay struct {
	RDB *redis.Client
	Hub *Hub
	Log *logrus.Entry
}

func (r *Relay) Run(ctx context.Context) error {
	sub := r.RDB.PSubscribe(ctx, channelPrefix+"*")
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}
	r.Log.Info("notification relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			uid, err := userFromChannel(msg.Channel)
			if err != nil {
				r.Log.WithError(err).Warn("relay: bad channel")
				continue
			}
			r.Hub.SendRaw(uid, []byte(msg.Payload))
		}
	}
}
