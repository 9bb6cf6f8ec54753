package lib

import (
	rp "github.com/Clouded-Sabre/ringpool/lib"
)

// entryPool holds the pre-allocated callback entries. It is created by
// NewMonitorCore and shared by every connection chain. GetElement
// returns nil when the pool is exhausted, which the monitor treats as
// a soft failure (fail-open).
var entryPool *rp.RingPool

// NewEntryData creates a blank callback entry for the ring pool.
func NewEntryData(params ...interface{}) rp.DataInterface {
	return &CallbackEntry{}
}
