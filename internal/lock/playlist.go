// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lock

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/ManuGH/rundownd/internal/rundown"
)

// PlaylistLock is a held playlist lock. Passing it down the call chain lets
// nested operations on the same playlist run without queueing behind
// themselves.
type PlaylistLock struct {
	owner      *PlaylistLocks
	studioID   rundown.StudioID
	playlistID rundown.PlaylistID

	release  Release
	once     sync.Once
	released atomic.Bool
}

func (l *PlaylistLock) StudioID() rundown.StudioID     { return l.studioID }
func (l *PlaylistLock) PlaylistID() rundown.PlaylistID { return l.playlistID }

// Held reports whether the lock has not been released yet.
func (l *PlaylistLock) Held() bool {
	return l != nil && !l.released.Load()
}

// Release gives the lock up. Calling it more than once is harmless.
func (l *PlaylistLock) Release() {
	if l == nil {
		return
	}
	l.once.Do(func() {
		l.released.Store(true)
		l.release()
	})
}

// PlaylistLocks hands out per-playlist locks.
type PlaylistLocks struct {
	keyed *Keyed
}

// NewPlaylistLocks returns an empty lock set.
func NewPlaylistLocks() *PlaylistLocks {
	return &PlaylistLocks{keyed: NewKeyed("playlist")}
}

func playlistKey(studio rundown.StudioID, id rundown.PlaylistID) string {
	return "playlist_" + string(studio) + "_" + string(id)
}

// Acquire blocks until the playlist lock is held.
func (p *PlaylistLocks) Acquire(ctx context.Context, studio rundown.StudioID, id rundown.PlaylistID) (*PlaylistLock, error) {
	release, err := p.keyed.Acquire(ctx, playlistKey(studio, id))
	if err != nil {
		return nil, err
	}
	return &PlaylistLock{
		owner:      p,
		studioID:   studio,
		playlistID: id,
		release:    release,
	}, nil
}

// Covers reports whether held is a live lock from this set for the playlist.
func (p *PlaylistLocks) Covers(held *PlaylistLock, id rundown.PlaylistID) bool {
	return held.Held() && held.owner == p && held.playlistID == id
}

// Run calls fn under the playlist lock. If held already covers the playlist,
// fn runs with it directly; a held lock of another studio is an error.
func (p *PlaylistLocks) Run(ctx context.Context, held *PlaylistLock, studio rundown.StudioID, id rundown.PlaylistID, fn func(*PlaylistLock) error) error {
	if p.Covers(held, id) {
		if held.studioID != studio {
			return rundown.Internal("held playlist lock %q belongs to studio %q, not %q", id, held.studioID, studio)
		}
		return fn(held)
	}
	l, err := p.Acquire(ctx, studio, id)
	if err != nil {
		return err
	}
	defer l.Release()
	return fn(l)
}
