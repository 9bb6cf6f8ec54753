package lib

import (
	"errors"
	"log"
)

var (
	// ErrNotConnected is returned by StartMonitor when the connection
	// was already dead at registration time.
	ErrNotConnected = errors.New("connection already disconnected")

	// ErrNoEntry marks ring pool exhaustion inside the registry. It is
	// never returned by StartMonitor: monitoring is simply absent then.
	ErrNoEntry = errors.New("no callback entry available")
)

// closeConnection applies the loss-of-connection policy to one socket
// handle. These events may be reported:
//
//	EventClose: the remote host closed the connection
//	EventAbort: the remote host aborted the connection
//	EventTimedOut: aborted due to too many retransmissions
//	EventDeviceDown: the network device went down
//
// A graceful close is not an error but an end-of-stream: the socket is
// marked closed so later reads report EOF. A rude loss clears both bits
// and will eventually surface as a not-connected error.
//
// The caller holds the network lock.
func closeConnection(sock *Socket, flags EventFlags) {
	if flags&EventClose != 0 {
		sock.flags &^= sfConnected
		sock.flags |= sfClosed
	} else if flags&(EventAbort|EventTimedOut|EventDeviceDown) != 0 {
		sock.flags &^= sfConnected | sfClosed
	}
}

// monitorEvent is the handler registered per monitored socket. It
// updates only that socket's status bits and returns the flags
// unchanged so sibling entries in the chain still observe the event.
//
// The network is locked; this path must not block or allocate.
func monitorEvent(dev *NetworkDevice, conn *Connection, priv interface{}, flags EventFlags) EventFlags {
	sock, _ := priv.(*Socket)
	if sock != nil {
		if Debug {
			log.Printf("monitor event: flags %s sock flags %02x", flags, sock.flags)
		}

		if flags&DisconnectEvents != 0 {
			closeConnection(sock, flags)
		} else if flags&EventConnected != 0 {
			// Clear the socket error and mark the socket connected.
			sock.sockErr = nil
			sock.flags |= sfBound | sfConnected
			sock.flags &^= sfClosed
		}
	}

	return flags
}

// shutdownMonitorLocked notifies every socket watching conn, including
// dup'ed copies, of the loss-of-connection event, then frees the whole
// chain. Dispatch-to-all strictly precedes free-of-all so every entry
// sees a consistent chain. Calling it on an empty chain is a no-op.
func shutdownMonitorLocked(conn *Connection, flags EventFlags) {
	dispatchEventLocked(conn.Device, conn, flags)

	// Free all allocated connection event callback entries.
	for len(conn.connEvents) > 0 {
		freeEntryLocked(conn, conn.connEvents[0])
	}
}

// StartMonitor sets up to receive connection state changes for sock.
//
// It returns ErrNotConnected if the connection has already been closed
// before monitoring could begin (maybe the connection was lost before
// accept registered the monitor). Ring pool exhaustion is not an
// error: the call succeeds with monitoring silently absent.
func StartMonitor(sock *Socket) error {
	conn := sock.conn

	netLock()
	defer netUnlock()

	// Non-blocking connection in progress?
	nonblockConn := conn.state == StateSynSent && sock.nonBlocking

	// Check if the connection has already been closed before any
	// callbacks have been registered.
	if !(conn.state == StateEstablished || conn.state == StateSynRcvd || nonblockConn) {
		// Mark this handle explicitly; it has no entry yet, so the
		// shutdown dispatch below cannot reach it.
		closeConnection(sock, EventClose)

		// Deliver the synthetic close event to any sockets already
		// watching the connection, then tear the chain down.
		shutdownMonitorLocked(conn, EventClose)

		return ErrNotConnected
	}

	// Allocate the callback entry used to observe loss of connection.
	cb, err := allocEntryLocked(conn)
	if err != nil {
		// Fail-open: the connection proceeds unmonitored rather than
		// failing the call that requested monitoring.
		if Debug {
			log.Printf("monitor not installed for %s: %v", conn.Key, err)
		}
		return nil
	}

	cb.event = monitorEvent
	cb.priv = sock
	cb.flags = DisconnectEvents

	// Also monitor the connected event while the connect is in flight.
	if nonblockConn {
		cb.flags |= EventConnected
	}

	sock.entryID = cb.id
	return nil
}

// StopMonitor stops monitoring connection changes for every socket
// associated with conn. This is the coarse-grained path: all sockets
// sharing the connection, dup'ed copies included, are notified with
// flags and torn down together.
func StopMonitor(conn *Connection, flags EventFlags) {
	netLock()
	defer netUnlock()
	shutdownMonitorLocked(conn, flags)
}

// CloseMonitor handles one socket in a group of dup'ed handles being
// closed: it recovers only that handle's entry and marks only that
// handle closed. Other sockets sharing the same connection are not
// notified or affected.
func CloseMonitor(sock *Socket) {
	conn := sock.conn

	netLock()
	defer netUnlock()

	// Find and free this handle's entry by the stable identity assigned
	// at registration, not by comparing handle addresses.
	if sock.entryID != 0 {
		for _, cb := range conn.connEvents {
			if cb.id == sock.entryID {
				freeEntryLocked(conn, cb)
				break
			}
		}
		sock.entryID = 0
	}

	// Make sure the closing handle is explicitly marked as closed even
	// if it never started monitoring.
	closeConnection(sock, EventClose)
}

// LostConnection is called by the protocol engine when it has itself
// detected the loss and already holds the entry being processed. It
// tombstones that entry so recursive callbacks cannot reach its handler
// during disconnection processing, explicitly marks sock (which may not
// get a callback because of the tombstone), and then stops the monitor
// for all sockets sharing the connection.
//
// LostConnection acquires the network lock, so it must not be called
// from inside an event handler running under a dispatch; loss detected
// while a dispatch is in flight uses lostConnectionLocked instead.
func LostConnection(sock *Socket, cb *CallbackEntry, flags EventFlags) {
	if sock == nil || sock.conn == nil {
		return
	}

	netLock()
	defer netUnlock()
	lostConnectionLocked(sock, cb, flags)
}

// lostConnectionLocked is the in-dispatch form of LostConnection. The
// tombstone keeps the nested shutdown dispatch from re-entering the
// handler currently being processed, and the outer dispatch pass ends
// cleanly once the shutdown has emptied the chain.
func lostConnectionLocked(sock *Socket, cb *CallbackEntry, flags EventFlags) {
	// The entry may already have been tombstoned by an earlier pass.
	if cb != nil {
		cb.tombstone()
	}

	closeConnection(sock, flags)

	// Then stop the network monitor for all sockets.
	shutdownMonitorLocked(sock.conn, flags)
}
