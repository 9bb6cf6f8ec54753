package lib

// Protocol states of a connection, driven by the external protocol
// engine. The monitor only reads them.
const (
	StateClosed uint8 = iota
	StateListen
	StateSynSent
	StateSynRcvd
	StateEstablished
	StateFinWait1
	StateFinWait2
	StateClosing
	StateTimeWait
	StateCloseWait
	StateLastAck
)

// Connection represents one protocol-level connection. It may be
// referenced by any number of socket handles (dup'ed copies); its
// lifetime is independent of any single socket. The monitor never
// destroys a Connection, it only mutates the callback chain.
type Connection struct {
	Key    string
	Device *NetworkDevice // bound device

	// state and connEvents are guarded by the network lock.
	state      uint8
	connEvents []*CallbackEntry // ordered chain of connection event callbacks
}

// NewConnection creates a connection bound to dev and registers it with
// the device so that device-level events reach its chain.
func NewConnection(key string, dev *NetworkDevice) *Connection {
	conn := &Connection{
		Key:    key,
		Device: dev,
		state:  StateClosed,
	}

	if dev != nil {
		netLock()
		dev.connMap[key] = conn
		netUnlock()
	}

	return conn
}

// SetState records the protocol state reported by the engine.
func (c *Connection) SetState(state uint8) {
	netLock()
	c.state = state
	netUnlock()
}

// State returns the protocol state last reported by the engine.
func (c *Connection) State() uint8 {
	netLock()
	defer netUnlock()
	return c.state
}

// EntryCount reports how many callback entries are linked to the
// connection's chain, including tombstoned ones not yet freed.
func (c *Connection) EntryCount() int {
	netLock()
	defer netUnlock()
	return len(c.connEvents)
}
