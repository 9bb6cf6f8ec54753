package lib

import "strings"

// EventFlags is a bitmask of connection lifecycle events. More than one
// flag may be set in a single dispatch.
type EventFlags uint16

const (
	EventClose      EventFlags = 1 << 0 // the remote host closed the connection gracefully
	EventAbort      EventFlags = 1 << 1 // the remote host aborted the connection
	EventTimedOut   EventFlags = 1 << 2 // connection aborted due to too many retransmissions
	EventDeviceDown EventFlags = 1 << 3 // the network device went down
	EventConnected  EventFlags = 1 << 4 // the connection completed successfully
)

// DisconnectEvents groups all loss-of-connection events.
const DisconnectEvents = EventClose | EventAbort | EventTimedOut | EventDeviceDown

var eventNames = []struct {
	flag EventFlags
	name string
}{
	{EventClose, "CLOSE"},
	{EventAbort, "ABORT"},
	{EventTimedOut, "TIMEDOUT"},
	{EventDeviceDown, "DEVDOWN"},
	{EventConnected, "CONNECTED"},
}

func (f EventFlags) String() string {
	if f == 0 {
		return "NONE"
	}
	var parts []string
	for _, e := range eventNames {
		if f&e.flag != 0 {
			parts = append(parts, e.name)
		}
	}
	return strings.Join(parts, "|")
}
