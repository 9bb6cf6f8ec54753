package lib

import (
	"log"

	"github.com/eapache/queue"
)

// devEvent is one queued device-level event awaiting delivery.
type devEvent struct {
	conn  *Connection
	flags EventFlags
}

// NetworkDevice models one network interface. Device-level events may
// be reported from a poll or interrupt-equivalent context, so PostEvent
// only queues; delivery to the connection chains happens in
// DrainEvents under the network lock.
type NetworkDevice struct {
	Name string

	core *MonitorCore // owning core, set by AttachDevice

	// up, events and connMap are guarded by the network lock.
	up      bool
	events  *queue.Queue
	connMap map[string]*Connection // connections bound to this device
}

func newNetworkDevice(name string, core *MonitorCore) *NetworkDevice {
	return &NetworkDevice{
		Name:    name,
		core:    core,
		up:      true,
		events:  queue.New(),
		connMap: make(map[string]*Connection),
	}
}

// IsUp reports whether the device is still attached and up.
func (d *NetworkDevice) IsUp() bool {
	netLock()
	defer netUnlock()
	return d.up
}

// PostEvent queues a device-level event for conn. It never blocks and
// never delivers in place, so it is safe to call from the packet
// delivery path. Events for a downed device are dropped.
func (d *NetworkDevice) PostEvent(conn *Connection, flags EventFlags) {
	netLock()
	if !d.up {
		netUnlock()
		log.Printf("device %s: dropping event %s for %s, device is down", d.Name, flags, conn.Key)
		return
	}
	d.events.Add(devEvent{conn: conn, flags: flags})
	netUnlock()

	// Wake the core's drain goroutine.
	if d.core != nil {
		d.core.kickDrain()
	}
}

// DrainEvents delivers every queued event to its connection's callback
// chain, strictly in posting order, all under one hold of the network
// lock.
func (d *NetworkDevice) DrainEvents() {
	netLock()
	defer netUnlock()
	d.drainLocked()
}

func (d *NetworkDevice) drainLocked() {
	for d.events.Length() > 0 {
		ev := d.events.Remove().(devEvent)
		dispatchEventLocked(d, ev.conn, ev.flags)
	}
}
