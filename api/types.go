package api

import (
	"context"
	"time"
)

// SourceKind distinguishes local files from remote identifiers
type SourceKind int

const (
	SourceLocal SourceKind = iota
	SourceRemote
)

// Source describes something playable. Local sources carry a path,
// remote sources carry the video id and its display title.
type Source struct {
	Kind  SourceKind `json:"kind"`
	Path  string     `json:"path,omitempty"`
	ID    string     `json:"id,omitempty"`
	Title string     `json:"title,omitempty"`
}

// Local returns a source for a file on disk
func Local(path string) Source {
	return Source{Kind: SourceLocal, Path: path}
}

// Remote returns a source for a remote video id
func Remote(id, title string) Source {
	return Source{Kind: SourceRemote, ID: id, Title: title}
}

// IsRemote reports whether the source must be resolved through the cache or a stream
func (s Source) IsRemote() bool {
	return s.Kind == SourceRemote
}

// Name returns a human readable label for the source
func (s Source) Name() string {
	if s.Title != "" {
		return s.Title
	}
	if s.Kind == SourceRemote {
		return s.ID
	}
	return s.Path
}

// Status is the transport state of the playback engine
type Status int32

const (
	StatusIdle Status = iota
	StatusPlaying
	StatusPaused
	StatusStopping
)

func (s Status) String() string {
	switch s {
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusStopping:
		return "stopping"
	default:
		return "idle"
	}
}

// Progress is a non-blocking snapshot of the active (or last finished) session.
// Total is 0 while the length of the stream is unknown.
type Progress struct {
	Current    uint64 `json:"current"`
	Total      uint64 `json:"total"`
	SampleRate int    `json:"sample_rate"`
	Status     Status `json:"status"`
	Source     Source `json:"source"`
	Streaming  bool   `json:"streaming"`
}

// Elapsed converts the current frame counter to wall time
func (p Progress) Elapsed() time.Duration {
	return frames(p.Current, p.SampleRate)
}

// Duration converts the total frame counter to wall time, 0 when unknown
func (p Progress) Duration() time.Duration {
	return frames(p.Total, p.SampleRate)
}

func frames(n uint64, rate int) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(rate)
}

// Track is a local file together with the tags read from it
type Track struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	Album     string    `json:"album"`
	FilePath  string    `json:"file_path"`
	Genre     string    `json:"genre"`
	Year      int       `json:"year"`
	TrackNum  int       `json:"track_number"`
	HasArt    bool      `json:"has_art"`
	CreatedAt time.Time `json:"created_at"`
}

// Source returns the playable descriptor for the track
func (t *Track) Source() Source {
	return Source{Kind: SourceLocal, Path: t.FilePath, Title: t.Title}
}

// EventType identifies audio events published on the bus
type EventType int

const (
	EventTrackStarted EventType = iota
	EventTrackEnded
	EventStateChange
	EventError
)

// AudioEvent is published by the engine when a session changes state
type AudioEvent struct {
	Type    EventType
	Session string
	Source  Source
	Status  Status
	Err     error
}

// Player is the surface the UI drives
type Player interface {
	Play(ctx context.Context, src Source) error
	PauseToggle() error
	Stop() error
	Progress() Progress
	Subscribe() <-chan AudioEvent
	Unsubscribe(ch <-chan AudioEvent)
}
