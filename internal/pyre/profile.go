package pyre

// ProfileRecord is one timing snapshot from the checker's profiling
// endpoint: an opaque mapping from measurement name to integer value.
// The shape depends on which endpoint produced it; nothing here interprets
// the keys except Total.
type ProfileRecord map[string]int

// Total returns the record's "total" measurement. Absence is a
// *MalformedOutputError, not a zero: a profile record without a total means
// the checker's telemetry is broken and any derived sum would be a lie.
func (r ProfileRecord) Total() (int, error) {
	total, ok := r["total"]
	if !ok {
		return 0, missingKey("total")
	}
	return total, nil
}

// profileKind selects which profiling endpoint to read. The two kinds
// return different shapes, so the session exposes one statically-typed
// method per kind rather than a single string-dispatched call.
type profileKind string

const (
	profileIncrementalUpdates profileKind = "incremental_updates"
	profileColdStartPhases    profileKind = "cold_start_phases"
)
