package scheduler

import (
	"context"
	"log/slog"
	"time"

	"postify/internal/cache"
	"postify/internal/lib/sl"
)

// viewDrainBatch is how many posts one flush pops from the buffer per round.
const viewDrainBatch = 500

// jobTimeout bounds a single run so a stuck database does not pile up runs.
const jobTimeout = 2 * time.Minute

type QuotaResetter interface {
	ResetMonthly(ctx context.Context) (int64, error)
}

type ViewStore interface {
	AddViews(ctx context.Context, postID, delta int64) error
}

type TokenPurger interface {
	PurgeExpired(ctx context.Context, grace time.Duration) (int64, error)
}

// Jobs holds the periodic maintenance tasks.
type Jobs struct {
	quota      QuotaResetter
	views      cache.ViewBuffer
	viewStore  ViewStore
	tokens     TokenPurger
	tokenGrace time.Duration
	log        *slog.Logger
}

func NewJobs(quota QuotaResetter, views cache.ViewBuffer, viewStore ViewStore, tokens TokenPurger, tokenGrace time.Duration, log *slog.Logger) *Jobs {
	return &Jobs{
		quota:      quota,
		views:      views,
		viewStore:  viewStore,
		tokens:     tokens,
		tokenGrace: tokenGrace,
		log:        log.With(slog.String("component", "jobs")),
	}
}

// ResetMonthlyQuota zeroes every user's published-post counter.
func (j *Jobs) ResetMonthlyQuota() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := j.quota.ResetMonthly(ctx); err != nil {
		j.log.Error("quota reset job failed", sl.Err(err))
	}
}

// FlushViews moves buffered view counts into posts.views.
func (j *Jobs) FlushViews() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if _, err := j.flushViews(ctx); err != nil {
		j.log.Error("view flush job failed", sl.Err(err))
	}
}

// flushViews writes every popped count. A post whose write fails goes back
// into the buffer and the run stops after the current batch, so re-buffered
// posts are retried by the next run instead of being popped again here.
func (j *Jobs) flushViews(ctx context.Context) (int, error) {
	flushed := 0
	for {
		batch, err := j.views.Drain(ctx, viewDrainBatch)
		if err != nil {
			return flushed, err
		}

		var firstErr error
		failed := 0
		for _, pv := range batch {
			if err := j.viewStore.AddViews(ctx, pv.PostID, pv.Views); err != nil {
				failed++
				if firstErr == nil {
					firstErr = err
				}
				if rerr := j.views.Incr(ctx, pv.PostID, pv.Views); rerr != nil {
					j.log.Error("lost buffered views", slog.Int64("post_id", pv.PostID), slog.Int64("views", pv.Views), sl.Err(rerr))
				}
				continue
			}
			flushed++
		}
		if firstErr != nil {
			j.log.Warn("views re-buffered", slog.Int("failed", failed), slog.Int("flushed", flushed))
			return flushed, firstErr
		}

		if len(batch) < viewDrainBatch {
			if flushed > 0 {
				j.log.Debug("views flushed", slog.Int("posts", flushed))
			}
			return flushed, nil
		}
	}
}

// PurgeRefreshTokens deletes refresh tokens past expiry plus the grace period.
func (j *Jobs) PurgeRefreshTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := j.tokens.PurgeExpired(ctx, j.tokenGrace)
	if err != nil {
		j.log.Error("token purge job failed", sl.Err(err))
		return
	}
	j.log.Info("expired refresh tokens purged", slog.Int64("deleted", n))
}
