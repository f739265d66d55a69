// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Attribute keys shared by all rundownd spans.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Ingest attributes
	IngestOperationKey  = "ingest.operation"
	IngestStudioKey     = "ingest.studio_id"
	IngestRundownExtKey = "ingest.rundown_external_id"
	IngestRundownIDKey  = "ingest.rundown_id"
	IngestOutcomeKey    = "ingest.outcome"

	// Diff attributes
	DiffAddedKey     = "diff.added"
	DiffChangedKey   = "diff.changed"
	DiffRemovedKey   = "diff.removed"
	DiffUnchangedKey = "diff.unchanged"
	DiffRenamedKey   = "diff.renamed"

	// Playout attributes
	PlaylistIDKey       = "playout.playlist_id"
	PlayoutOperationKey = "playout.operation"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// IngestAttributes creates ingest operation span attributes. Empty values are
// omitted.
func IngestAttributes(operation, studioID, rundownExternalID string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 3)
	if operation != "" {
		attrs = append(attrs, attribute.String(IngestOperationKey, operation))
	}
	if studioID != "" {
		attrs = append(attrs, attribute.String(IngestStudioKey, studioID))
	}
	if rundownExternalID != "" {
		attrs = append(attrs, attribute.String(IngestRundownExtKey, rundownExternalID))
	}
	return attrs
}

// DiffAttributes summarises a segment diff.
func DiffAttributes(added, changed, removed, unchanged, renamed int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(DiffAddedKey, added),
		attribute.Int(DiffChangedKey, changed),
		attribute.Int(DiffRemovedKey, removed),
		attribute.Int(DiffUnchangedKey, unchanged),
		attribute.Int(DiffRenamedKey, renamed),
	}
}

// PlayoutAttributes creates playout operation span attributes.
func PlayoutAttributes(operation, playlistID string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(PlayoutOperationKey, operation),
		attribute.String(PlaylistIDKey, playlistID),
	}
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(_ error, errorType string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}
