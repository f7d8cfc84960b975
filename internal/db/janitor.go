package db

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"
)

// StartJanitor periodically deletes refresh tokens that are expired or
// revoked and auth codes that are expired or used. Stops when ctx is
// cancelled.
func StartJanitor(ctx context.Context, db *sql.DB, interval time.Duration, log *zap.Logger) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sweep(ctx, db, log)
			}
		}
	}()
}

func sweep(ctx context.Context, db *sql.DB, log *zap.Logger) {
	res, err := db.ExecContext(ctx, `
        DELETE FROM refresh_tokens
         WHERE revoked = TRUE
            OR expires_at < NOW()
    `)
	if err != nil {
		log.Error("failed to clean refresh tokens", zap.Error(err))
	} else if rows, _ := res.RowsAffected(); rows > 0 {
		log.Info("cleaned refresh tokens", zap.Int64("removed", rows))
	}

	res, err = db.ExecContext(ctx, `
        DELETE FROM auth_codes
         WHERE used = TRUE
            OR expires_at < NOW()
    `)
	if err != nil {
		log.Error("failed to clean auth codes", zap.Error(err))
	} else if rows, _ := res.RowsAffected(); rows > 0 {
		log.Info("cleaned auth codes", zap.Int64("removed", rows))
	}
}
