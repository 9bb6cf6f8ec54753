package lib

// dispatchEventLocked fans flags out to every live entry of conn's
// chain whose mask intersects them, in chain order. Each handler's
// returned flags are passed to the next entry, so events are observed
// rather than consumed. Tombstoned entries are skipped even while
// still linked.
//
// This is the hot event delivery path: it must not block and must not
// allocate, so the chain is walked in place by index. Entries are only
// unlinked after a full dispatch pass (see shutdownMonitorLocked), so
// walking by index is safe against handlers running during the pass.
func dispatchEventLocked(dev *NetworkDevice, conn *Connection, flags EventFlags) EventFlags {
	for i := 0; i < len(conn.connEvents); i++ {
		cb := conn.connEvents[i]
		if cb.state != entryActive || cb.event == nil {
			continue
		}
		if cb.flags&flags == 0 {
			continue
		}
		flags = cb.event(dev, conn, cb.priv, flags)
	}

	return flags
}

// DispatchEvent is the protocol engine's generic fan-out: it invokes
// every matching callback entry registered on conn. The monitor's own
// event handler is registered as one such entry per socket.
func DispatchEvent(dev *NetworkDevice, conn *Connection, flags EventFlags) EventFlags {
	netLock()
	defer netUnlock()
	return dispatchEventLocked(dev, conn, flags)
}
