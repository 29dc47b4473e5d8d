package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"stepstunner/api/internal/ids"
	"stepstunner/api/internal/models"
)

// ActivityRecorder writes audit entries fire-and-forget: a failed write is
// logged and never fails the request that triggered it.
type ActivityRecorder struct {
	store ActivityStore
	log   zerolog.Logger
}

func NewActivityRecorder(store ActivityStore, log zerolog.Logger) *ActivityRecorder {
	return &ActivityRecorder{store: store, log: log}
}

type ActivityEntry struct {
	UserID  *string
	Action  string
	Method  string
	Path    string
	IP      string
	Status  int
	Details map[string]any
}

func (r *ActivityRecorder) Record(entry ActivityEntry) {
	if r == nil || r.store == nil {
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		err := r.store.Insert(ctx, models.ActivityLog{
			ID:        ids.New(),
			UserID:    entry.UserID,
			Action:    entry.Action,
			Method:    entry.Method,
			Path:      entry.Path,
			Details:   entry.Details,
			IPAddress: entry.IP,
			Status:    entry.Status,
		})
		if err != nil {
			r.log.Warn().Err(err).Str("action", entry.Action).Msg("activity log write failed")
		}
	}()
}
