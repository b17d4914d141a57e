package checkpoint

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/funvibe/funcps/internal/runtime"
	"github.com/funvibe/funcps/internal/value"
)

// Checkpointer intercepts every split-point resolution of one compiled
// call and persists the *next* suspension to Store before stepping again,
// so a crash between two split points always resumes from the most
// recently completed one — funbites.checkpoint.Checkpointer.run's own
// guarantee, ported from pickle+file to the SQLite Store.
type Checkpointer struct {
	store  *Store
	fnName string
	id     string
}

// New builds a Checkpointer for fnName, persisting under a fresh UUID v4
// checkpoint ID (the teacher already depends on google/uuid for
// correlation IDs; reused here for the same purpose).
func New(store *Store, fnName string) *Checkpointer {
	return &Checkpointer{store: store, fnName: fnName, id: uuid.NewString()}
}

// Resume rebuilds a Checkpointer bound to a known, previously issued ID
// (the CLI's `funcps resume <id>` path), rather than minting a fresh one.
func Resume(store *Store, fnName, id string) *Checkpointer {
	return &Checkpointer{store: store, fnName: fnName, id: id}
}

// ID reports the checkpoint ID this run is persisted under.
func (c *Checkpointer) ID() string { return c.id }

// Run drives resolve to completion starting at (entry, args), or from
// whatever suspension was last persisted under c.ID if one exists —
// Checkpointer.run's load-or-start-fresh branch. It persists after every
// split and cleans up the checkpoint row on normal completion.
func (c *Checkpointer) Run(ctx context.Context, resolve runtime.Resolver, entry string, args []value.Object) (value.Object, error) {
	startName, startArgs := entry, args
	if saved, _, ok, err := c.store.Load(ctx, c.id); err != nil {
		return nil, err
	} else if ok {
		startName, startArgs = saved.FuncName, saved.Args
	}

	loop := runtime.NewLoop(resolve, startName, startArgs)
	for !loop.Done() {
		loop.Step()
		if call, ok := loop.Value().(*runtime.Call); ok {
			if err := c.store.Save(ctx, c.id, c.fnName, call); err != nil {
				return nil, fmt.Errorf("checkpoint: run %s: %w", c.id, err)
			}
		}
	}
	if err := c.Cleanup(ctx); err != nil {
		return nil, err
	}
	return loop.Value(), nil
}

// Cleanup removes the persisted checkpoint once Run completes normally
// (funbites.checkpoint.Checkpointer.cleanup).
func (c *Checkpointer) Cleanup(ctx context.Context) error {
	return c.store.Delete(ctx, c.id)
}
