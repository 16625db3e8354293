// Package catalog mirrors committed storage events into a Repository.
//
// The Syncer is registered as the engine's Observer. Each event becomes a
// worker job; results are reassembled in commit order before they are
// written, so the catalog never applies a delete before the upload it
// follows.
package catalog

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mtiwari1/chunkvault/internal/hasher"
	"github.com/mtiwari1/chunkvault/internal/repository"
	"github.com/mtiwari1/chunkvault/internal/storage"
	"github.com/mtiwari1/chunkvault/internal/worker"
)

const writeTimeout = 2 * time.Second

// Syncer implements storage.Observer.
type Syncer struct {
	pool   *worker.Pool
	repo   repository.Repository
	logger *slog.Logger

	mu      sync.Mutex
	nextSeq uint64
}

// NewSyncer returns a Syncer feeding pool and persisting into repo. The
// pool must be started by the caller.
func NewSyncer(pool *worker.Pool, repo repository.Repository, logger *slog.Logger) *Syncer {
	return &Syncer{pool: pool, repo: repo, logger: logger}
}

// Committed enqueues ev. It blocks while the pool is saturated. Events
// arriving after the pool has stopped are dropped and logged.
func (s *Syncer) Committed(ev storage.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.pool.Submit(worker.Job{Ctx: context.Background(), Seq: s.nextSeq, Event: ev}) {
		s.logger.Warn("catalog event dropped",
			slog.String("event", string(ev.Kind)),
			slog.String("file", ev.Name),
		)
		return
	}
	s.nextSeq++
}

// Run consumes pool results until the results channel is closed, applying
// them to the repository in commit order.
func (s *Syncer) Run() {
	pending := make(map[uint64]worker.Result)
	var next uint64
	for res := range s.pool.Results() {
		pending[res.Seq] = res
		for {
			r, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			s.apply(r)
		}
	}
	if len(pending) > 0 {
		s.logger.Warn("catalog results left unapplied", slog.Int("count", len(pending)))
	}
}

func (s *Syncer) apply(res worker.Result) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	ev := res.Event
	if res.Err != nil {
		s.logger.Error("catalog processing failed",
			slog.String("event", string(ev.Kind)),
			slog.String("file", ev.Name),
			slog.String("error", res.Err.Error()),
		)
	}

	var err error
	switch ev.Kind {
	case storage.EventUploaded, storage.EventVersionCreated:
		err = s.repo.Upsert(ctx, recordFor(ev, res.Content))
	case storage.EventTagsUpdated:
		err = s.repo.UpdateTags(ctx, ev.Name, ev.Metadata.Tags, ev.Metadata.LastModified)
		if errors.Is(err, repository.ErrNotFound) {
			err = s.repo.Upsert(ctx, recordFor(ev, nil))
		}
	case storage.EventDeleted:
		err = s.repo.Delete(ctx, ev.Name)
	}
	if err != nil {
		s.logger.Error("catalog write failed",
			slog.String("event", string(ev.Kind)),
			slog.String("file", ev.Name),
			slog.String("error", err.Error()),
		)
		return
	}

	s.logger.Debug("catalog updated",
		slog.String("event", string(ev.Kind)),
		slog.String("file", ev.Name),
		slog.Uint64("version", ev.Metadata.CurrentVersion),
	)
}

func recordFor(ev storage.Event, content *hasher.Metadata) *repository.CatalogRecord {
	m := ev.Metadata
	rec := &repository.CatalogRecord{
		Name:       m.Name,
		FileType:   m.FileType,
		Size:       m.Size,
		Version:    m.CurrentVersion,
		Tags:       m.Tags,
		Encrypted:  m.IsEncrypted,
		UploadedAt: m.UploadTimestamp,
		ModifiedAt: m.LastModified,
	}
	if content != nil {
		rec.Hash = content.Hash
		rec.MimeType = content.MimeType
		rec.Metadata = content.Extra
	}
	return rec
}
