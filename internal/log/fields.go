// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID    = "request_id"
	FieldStudioID     = "studio_id"
	FieldPlaylistID   = "playlist_id"
	FieldRundownID    = "rundown_id"
	FieldRundownExtID = "rundown_external_id"
	FieldSegmentID    = "segment_id"
	FieldPartID       = "part_id"
	FieldInstanceID   = "part_instance_id"

	// Process / pipeline fields
	FieldEvent     = "event"
	FieldComponent = "component"
	FieldOperation = "operation"
	FieldBackend   = "backend"
	FieldTopic     = "topic"

	// Timing fields
	FieldTick       = "tick"
	FieldLowRes     = "low_resolution"
	FieldDurationMS = "duration_ms"

	// Path fields
	FieldPath = "path"
)
