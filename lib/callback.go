package lib

import (
	"fmt"

	rp "github.com/Clouded-Sabre/ringpool/lib"
)

// EntryID is a stable opaque identity assigned to a callback entry at
// registration time. Zero is never assigned, so it can mean "no entry".
type EntryID uint64

// EventHandler is invoked by the event fan-out for every entry whose
// mask intersects the dispatched flags. Handlers observe events and
// return them unchanged (or adjusted) so later entries in the chain
// still see them.
type EventHandler func(dev *NetworkDevice, conn *Connection, priv interface{}, flags EventFlags) EventFlags

// Callback entry lifecycle states. A tombstoned entry may still be
// linked into a chain but is never dispatched again.
const (
	entryActive = iota
	entryTombstoned
)

// CallbackEntry records one socket handle's interest in connection
// events. Entries are owned exclusively by their connection's chain and
// allocated from the ring pool; all fields are guarded by the network
// lock.
type CallbackEntry struct {
	id    EntryID
	conn  *Connection // back reference, non-owning
	flags EventFlags  // event mask of interest
	event EventHandler
	priv  interface{} // opaque context identifying the owning socket handle
	state int         // entryActive or entryTombstoned
	elem  *rp.Element // pool element this entry rides in
}

// tombstone disables the entry in place so that re-entrant dispatch
// during the same event cycle cannot invoke it again, even while it is
// still linked.
func (cb *CallbackEntry) tombstone() {
	cb.state = entryTombstoned
	cb.flags = 0
	cb.priv = nil
	cb.event = nil
}

// Reset clears the entry before its pool element is recycled.
func (cb *CallbackEntry) Reset() {
	cb.id = 0
	cb.conn = nil
	cb.flags = 0
	cb.event = nil
	cb.priv = nil
	cb.state = entryActive
	cb.elem = nil
}

// PrintContent prints the entry state for ring pool debugging.
func (cb *CallbackEntry) PrintContent() {
	fmt.Printf("CallbackEntry id=%d flags=%s state=%d\n", cb.id, cb.flags, cb.state)
}

// nextEntryID is guarded by the network lock.
var nextEntryID uint64

// allocEntryLocked requests a callback entry from the ring pool and
// links it at the tail of conn's chain. Pool exhaustion is a soft
// failure reported as ErrNoEntry; callers that must not fail treat it
// as "monitoring absent" rather than an error.
func allocEntryLocked(conn *Connection) (*CallbackEntry, error) {
	if entryPool == nil {
		return nil, ErrNoEntry
	}
	elem := entryPool.GetElement()
	if elem == nil {
		return nil, ErrNoEntry
	}

	cb := elem.Data.(*CallbackEntry)
	cb.elem = elem
	cb.conn = conn
	cb.state = entryActive
	nextEntryID++
	cb.id = EntryID(nextEntryID)

	conn.connEvents = append(conn.connEvents, cb)

	// A connection with live entries must be reachable from its device
	// again, in case an earlier teardown deregistered it.
	if dev := conn.Device; dev != nil {
		dev.connMap[conn.Key] = conn
	}

	return cb, nil
}

// freeEntryLocked unlinks the specific entry from conn's chain and
// returns its element to the ring pool. Freeing an entry that is no
// longer linked is a no-op for the chain but still recycles the element.
func freeEntryLocked(conn *Connection, cb *CallbackEntry) {
	for i, e := range conn.connEvents {
		if e == cb {
			conn.connEvents = append(conn.connEvents[:i], conn.connEvents[i+1:]...)
			break
		}
	}

	elem := cb.elem
	cb.Reset()
	if elem != nil {
		entryPool.ReturnElement(elem)
	}

	// Once the chain empties the connection has nobody watching it;
	// deregister it from the device so a later device-down teardown
	// does not walk long-dead connections and the map stays bounded.
	if len(conn.connEvents) == 0 {
		if dev := conn.Device; dev != nil {
			delete(dev.connMap, conn.Key)
		}
	}
}
