// Package dash wires the sync engine together: one API client, one
// state store, one call cursor, one notification queue, and one stream
// connection, constructed explicitly and owned by the caller.
package dash

import (
	"context"
	"fmt"

	"github.com/crewboard/go-crewboard/internal/api"
	"github.com/crewboard/go-crewboard/internal/board"
	"github.com/crewboard/go-crewboard/internal/calls"
	"github.com/crewboard/go-crewboard/internal/config"
	"github.com/crewboard/go-crewboard/internal/event"
	"github.com/crewboard/go-crewboard/internal/notify"
	"github.com/crewboard/go-crewboard/internal/stream"
)

// Dashboard is the root composition of the sync engine. One instance
// mirrors one orchestrator; its lifetime is the page/session, not the
// process.
type Dashboard struct {
	Client *api.Client
	Notes  *notify.Queue
	Store  *board.Store
	Cursor *calls.Cursor
	Stream *stream.Manager

	router *event.Router
}

// New builds a dashboard against the configured orchestrator.
func New(cfg config.Config) *Dashboard {
	client := api.NewClient(cfg.ServerURL)
	notes := notify.NewQueue(cfg.Notify.DefaultDisplay(), cfg.Notify.ErrorDisplay())
	store := board.NewStore(client, notes)
	cursor := calls.NewCursor(client)
	router := event.NewRouter(store, cursor, cfg.RefreshListOnStatus)

	d := &Dashboard{
		Client: client,
		Notes:  notes,
		Store:  store,
		Cursor: cursor,
		router: router,
	}
	d.Stream = stream.NewManager(d.handleFrame)
	return d
}

// handleFrame routes one raw frame. Frames from a connection whose
// project no longer matches the focus are discarded: a teardown race
// must not mutate the new focus's telemetry.
func (d *Dashboard) handleFrame(ctx context.Context, projectID string, frame []byte) {
	if d.Store.FocusedID() != projectID {
		return
	}
	d.router.HandleFrame(ctx, frame)
}

// Focus switches the live telemetry target: releases the previous
// project's telemetry and stream, then attaches the new project and
// opens its stream. On failure the focus is left released.
func (d *Dashboard) Focus(ctx context.Context, projectID string) error {
	d.Stream.Disconnect()

	if err := d.Store.Focus(ctx, projectID); err != nil {
		return err
	}
	d.Cursor.Bind(projectID)

	if err := d.Stream.Connect(ctx, d.Client.StreamURL(projectID), projectID); err != nil {
		return fmt.Errorf("focus %s: %w", projectID, err)
	}
	return nil
}

// Blur releases the focus entirely: stream, telemetry, and cursor.
// Used on navigation away from the detail view.
func (d *Dashboard) Blur() {
	d.Stream.Disconnect()
	d.Cursor.Bind("")
	d.Store.Reset()
}

// Reconnect reopens the stream for the current focus after a transport
// drop. No-op without a focused project.
func (d *Dashboard) Reconnect(ctx context.Context) error {
	projectID := d.Store.FocusedID()
	if projectID == "" {
		return nil
	}
	return d.Stream.Connect(ctx, d.Client.StreamURL(projectID), projectID)
}
