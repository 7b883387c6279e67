// Package worker keeps a mirror store in step with the primary store.
package worker

import (
	"context"
	"fmt"

	"cashbook/internal/amqp"
	"cashbook/internal/kv"
	"cashbook/internal/log"

	"golang.org/x/sync/errgroup"
)

// MirrorWorker copies the cashbook keys from primary to mirror.
type MirrorWorker struct {
	primary kv.Getter
	mirror  kv.Store
	logger  *log.Logger
}

func NewMirrorWorker(primary kv.Getter, mirror kv.Store, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.Discard()
	}
	return &MirrorWorker{
		primary: primary,
		mirror:  mirror,
		logger:  logger.WithComponent(log.ComponentWorker),
	}
}

// HandleChange mirrors the whole snapshot. The message only triggers the
// copy: every event rewrites both keys, matching how the book saves.
func (w *MirrorWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.logger.InfoContext(ctx, "Processing change event",
		log.FieldOperation, log.OpMirror,
		"kind", msg.Kind,
		log.FieldAccountID, msg.AccountID)

	written, err := w.Mirror(ctx)
	if err != nil {
		return fmt.Errorf("mirror after %s: %w", msg.Kind, err)
	}
	w.logger.InfoContext(ctx, "Mirror updated", "kind", msg.Kind, log.FieldCount, written)
	return nil
}

// StartupSync mirrors once before consuming, to recover from events missed
// while the worker was down.
func (w *MirrorWorker) StartupSync(ctx context.Context) error {
	written, err := w.Mirror(ctx)
	if err != nil {
		return fmt.Errorf("startup mirror: %w", err)
	}
	w.logger.InfoContext(ctx, "Startup sync completed", log.FieldCount, written)
	return nil
}

// invalidator is implemented by read caches such as kv.Cached. The primary
// store is written by another process, so its cached entries are dropped
// before every copy.
type invalidator interface {
	Delete(key string)
}

// Mirror copies every key present in primary whose mirrored value differs.
// It returns how many keys were written. Keys missing from primary are left
// alone in the mirror.
func (w *MirrorWorker) Mirror(ctx context.Context) (int, error) {
	keys := kv.Keys()
	if c, ok := w.primary.(invalidator); ok {
		for _, key := range keys {
			c.Delete(key)
		}
	}
	src := make([]*kv.Record, len(keys))
	dst := make([]*kv.Record, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	for i, key := range keys {
		g.Go(func() error {
			rec, err := w.primary.Get(gctx, key)
			if err != nil {
				return fmt.Errorf("read primary %s: %w", key, err)
			}
			src[i] = rec
			return nil
		})
		g.Go(func() error {
			rec, err := w.mirror.Get(gctx, key)
			if err != nil {
				return fmt.Errorf("read mirror %s: %w", key, err)
			}
			dst[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	// Writes stay sequential and in save order.
	written := 0
	for i, key := range keys {
		if src[i] == nil {
			continue
		}
		if dst[i] != nil && dst[i].Value == src[i].Value {
			continue
		}
		if err := w.mirror.Set(ctx, key, src[i].Value); err != nil {
			return written, fmt.Errorf("write mirror %s: %w", key, err)
		}
		written++
		w.logger.DebugContext(ctx, "Mirrored key", log.FieldKey, key)
	}
	return written, nil
}
