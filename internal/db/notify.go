package db

import (
	"context"
	"errors"
	"fmt"
)

// notifyChannel is the LISTEN channel the schema triggers publish table names on.
const notifyChannel = "songboard_changes"

// Listen holds one pooled connection on the change channel and calls fn with
// the changed collection name for every notification. Notifications carry no
// row data; receivers re-read the whole collection. Listen returns nil when
// ctx is cancelled.
func (db *DB) Listen(ctx context.Context, fn func(collection string)) error {
	conn, err := db.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring listen connection: %w", err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+notifyChannel); err != nil {
		return fmt.Errorf("listening on %s: %w", notifyChannel, err)
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("waiting for notification: %w", err)
		}
		fn(n.Payload)
	}
}
