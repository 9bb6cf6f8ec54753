package lib

// Socket status bits. Exactly three composite states are meaningful:
//
//	connected=1 closed=0 - the socket is connected
//	connected=0 closed=1 - the socket was gracefully disconnected
//	connected=0 closed=0 - unbound, or rudely disconnected
//
// Connected and Closed are never both set.
const (
	sfBound     uint8 = 1 << 0
	sfConnected uint8 = 1 << 1
	sfClosed    uint8 = 1 << 2
)

// Socket is an application-visible handle on a connection. Dup'ed
// handles share one Connection but each keeps its own status bits;
// status of one handle is not synchronized to its siblings even when
// the shared connection changes state underneath them.
type Socket struct {
	conn        *Connection // shared, non-owning
	nonBlocking bool

	// flags, sockErr and entryID are guarded by the network lock.
	flags   uint8
	sockErr error
	entryID EntryID // identity of this handle's monitor entry, 0 if none
}

// NewSocket wraps conn in a new handle. The monitor never creates or
// destroys sockets on its own; the external socket layer does.
func NewSocket(conn *Connection, nonBlocking bool) *Socket {
	return &Socket{
		conn:        conn,
		nonBlocking: nonBlocking,
	}
}

// Connection returns the shared connection this handle references.
func (s *Socket) Connection() *Connection {
	return s.conn
}

// IsBound reports whether the socket has a local address assigned.
func (s *Socket) IsBound() bool {
	netLock()
	defer netUnlock()
	return s.flags&sfBound != 0
}

// IsConnected reports whether the socket is currently connected.
func (s *Socket) IsConnected() bool {
	netLock()
	defer netUnlock()
	return s.flags&sfConnected != 0
}

// IsClosed reports whether the socket was gracefully disconnected. A
// socket that is neither connected nor closed was either never
// connected or rudely disconnected; callers must tell those apart from
// their own prior state.
func (s *Socket) IsClosed() bool {
	netLock()
	defer netUnlock()
	return s.flags&sfClosed != 0
}

// Err returns the stored socket error, for use by the receive, send and
// select implementations.
func (s *Socket) Err() error {
	netLock()
	defer netUnlock()
	return s.sockErr
}

// SetErr stores err on the socket. A successful connect event clears it.
func (s *Socket) SetErr(err error) {
	netLock()
	s.sockErr = err
	netUnlock()
}
