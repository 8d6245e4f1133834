// Package domain models tracked locations, their cached weather snapshots,
// and the events that flow between the mutation API and the sync worker.
//
// # Locations
//
// A location is keyed by its city name, unique under case-insensitive
// comparison. Coordinates are required; the weather snapshot is absent until
// the sync worker completes its first successful fetch for the location.
//
// # Events
//
// Every committed mutation emits exactly one event onto the work queue:
//
//	location.created  full record (name + coordinates)
//	location.updated  full record (name + new coordinates)
//	location.deleted  name only
//
// Events travel as a JSON envelope:
//
//	{ "event": "location.created",
//	  "data": { "city": "Nairobi", "lat": -1.29, "lon": 36.82 },
//	  "timestamp": "2026-08-30T12:00:00Z" }
//
// The envelope is decoded exactly once, at the queue boundary, into the
// closed Event union. A payload that cannot be decoded (bad JSON, missing
// city, missing coordinates on created/updated) is structurally broken and
// is never retried. Unknown event kinds decode successfully so consumers can
// skip them without treating newer producers as errors.
//
// # Idempotency
//
// Snapshot upserts are keyed by city name and replace the whole embedded
// snapshot. Processing the same event twice therefore converges on the same
// stored fields (modulo fetchedAt), which makes at-least-once delivery safe
// without a deduplication table.
package domain
