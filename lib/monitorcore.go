package lib

import (
	"fmt"
	"log"
	"sync"
	"time"

	rs "github.com/Clouded-Sabre/rawsocket/lib"
	rp "github.com/Clouded-Sabre/ringpool/lib"
)

// Debug is the global debug setting, taken from the core config.
var Debug bool

// MonitorCoreConfig configures the monitor core.
type MonitorCoreConfig struct {
	EntryPoolSize        int  `yaml:"entryPoolSize"`        // how many callback entries the ring pool holds
	Debug                bool `yaml:"debug"`                // global debug setting
	PoolDebug            bool `yaml:"poolDebug"`            // ring pool debug setting
	ProcessTimeThreshold int  `yaml:"processTimeThreshold"` // pool element processing time threshold in ms
}

func DefaultMonitorCoreConfig() *MonitorCoreConfig {
	return &MonitorCoreConfig{
		EntryPoolSize:        2000,
		Debug:                false,
		PoolDebug:            false,
		ProcessTimeThreshold: 10,
	}
}

// MonitorCore owns the callback entry pool, the attached devices and
// the goroutine draining their event queues. There should be only one
// core per process; rscore is shared with the rest of the system and is
// closed by Close, like the packet core does it.
type MonitorCore struct {
	config      *MonitorCoreConfig
	rscore      *rs.RSCore                // used for macos and windows only, may be nil
	deviceMap   map[string]*NetworkDevice // attached devices, guarded by the network lock
	eventKick   chan struct{}             // wakes the drain goroutine
	closeSignal chan struct{}             // used to stop go routines
	wg          sync.WaitGroup            // WaitGroup to synchronize goroutines
}

// NewMonitorCore starts the connection monitor core.
func NewMonitorCore(cfg *MonitorCoreConfig, rscore *rs.RSCore) (*MonitorCore, error) {
	if cfg == nil {
		cfg = DefaultMonitorCoreConfig()
	}

	core := &MonitorCore{
		config:      cfg,
		rscore:      rscore,
		deviceMap:   make(map[string]*NetworkDevice),
		eventKick:   make(chan struct{}, 1),
		closeSignal: make(chan struct{}),
	}

	Debug = cfg.Debug
	rp.Debug = cfg.PoolDebug
	entryPool = rp.NewRingPool("MON: ", cfg.EntryPoolSize, NewEntryData)
	entryPool.Debug = cfg.PoolDebug
	entryPool.ProcessTimeThreshold = time.Duration(cfg.ProcessTimeThreshold) * time.Millisecond

	// Start goroutines
	core.wg.Add(1)
	go core.handleDeviceEvents()

	log.Println("Connection monitor core started")

	return core, nil
}

// handleDeviceEvents drains posted device events until the core closes.
func (m *MonitorCore) handleDeviceEvents() {
	// Decrease WaitGroup counter when the goroutine completes
	defer m.wg.Done()

	for {
		select {
		case <-m.closeSignal:
			return // gracefully stop the go routine
		case <-m.eventKick:
			m.drainAttachedDevices()
		}
	}
}

// kickDrain wakes the drain goroutine. The channel carries at most one
// pending wake-up; a drain pass covers every attached device, so a
// coalesced kick never strands an event on a device whose own kick was
// dropped.
func (m *MonitorCore) kickDrain() {
	select {
	case m.eventKick <- struct{}{}:
	default:
	}
}

// drainAttachedDevices delivers the queued events of every attached
// device under one hold of the network lock.
func (m *MonitorCore) drainAttachedDevices() {
	netLock()
	defer netUnlock()

	for _, dev := range m.deviceMap {
		dev.drainLocked()
	}
}

// AttachDevice registers a new network device with the core.
func (m *MonitorCore) AttachDevice(name string) (*NetworkDevice, error) {
	netLock()
	defer netUnlock()

	if _, ok := m.deviceMap[name]; ok {
		return nil, fmt.Errorf("device %s is already attached", name)
	}

	dev := newNetworkDevice(name, m)
	m.deviceMap[name] = dev
	log.Printf("Device %s attached", name)

	return dev, nil
}

// DetachDevice marks dev down and tears down monitoring for every
// connection bound to it with a device-down event, then forgets the
// device.
func (m *MonitorCore) DetachDevice(dev *NetworkDevice) {
	netLock()
	defer netUnlock()

	_, ok := m.deviceMap[dev.Name]
	if !ok {
		// device does not exist in deviceMap
		log.Printf("Device %s does not exist in device map", dev.Name)
		return
	}

	dev.up = false
	for key, conn := range dev.connMap {
		shutdownMonitorLocked(conn, EventDeviceDown)
		delete(dev.connMap, key)
	}

	delete(m.deviceMap, dev.Name)
	log.Printf("Device %s detached and removed.", dev.Name)
}

// Close stops the core gracefully.
func (m *MonitorCore) Close() error {
	// Detach all remaining devices, notifying their connections.
	netLock()
	for name, dev := range m.deviceMap {
		dev.up = false
		for key, conn := range dev.connMap {
			shutdownMonitorLocked(conn, EventDeviceDown)
			delete(dev.connMap, key)
		}
		delete(m.deviceMap, name)
	}
	netUnlock()

	// Send closeSignal to all goroutines
	close(m.closeSignal)

	// Wait for all goroutines to finish
	m.wg.Wait()

	if m.rscore != nil {
		err := (*m.rscore).Close()
		if err != nil {
			log.Println("Error closing RSCore:", err)
			return err
		}
	}

	log.Println("Connection monitor core closed gracefully.")

	return nil
}
