/*
This demo drives the connection monitor core through its lifecycle
without a real protocol engine: it attaches a simulated device, creates
a connection shared by two socket handles, starts monitoring both, and
then injects a scripted sequence of device-level events so the status
transitions can be observed.

Usage:
  ./monitordemo [options]
  Options:
    -config string   Path to the YAML configuration (default "config.yaml")
    -event string    Event to inject: close, abort, timeout, devdown (default "close")
    -raw             Also open a rawsocket core (requires privileges)
*/

package main

import (
	"flag"
	"log"

	"github.com/Clouded-Sabre/pcp-monitor/config"
	"github.com/Clouded-Sabre/pcp-monitor/lib"
	rs "github.com/Clouded-Sabre/rawsocket/lib"
)

var (
	configPath string
	eventName  string
	useRaw     bool
)

func init() {
	flag.StringVar(&configPath, "config", "config.yaml", "path to YAML configuration")
	flag.StringVar(&eventName, "event", "close", "event to inject: close, abort, timeout, devdown")
	flag.BoolVar(&useRaw, "raw", false, "open a rawsocket core (requires privileges)")
	flag.Parse()
}

func eventFromName(name string) lib.EventFlags {
	switch name {
	case "close":
		return lib.EventClose
	case "abort":
		return lib.EventAbort
	case "timeout":
		return lib.EventTimedOut
	case "devdown":
		return lib.EventDeviceDown
	default:
		log.Fatalf("unknown event %q", name)
		return 0
	}
}

func printStatus(name string, s *lib.Socket) {
	log.Printf("%s: bound=%t connected=%t closed=%t err=%v",
		name, s.IsBound(), s.IsConnected(), s.IsClosed(), s.Err())
}

func main() {
	coreConfig, err := config.LoadConfig(configPath)
	if err != nil {
		log.Println("Configuration file not usable, falling back to defaults:", err)
		coreConfig = lib.DefaultMonitorCoreConfig()
	}

	var rscore *rs.RSCore
	if useRaw {
		core, err := rs.NewRSCore(rs.NewDefaultRsConfig())
		if err != nil {
			log.Fatal("Failed to create rawsocket core. exit!")
		}
		rscore = &core
	}

	monitorCore, err := lib.NewMonitorCore(coreConfig, rscore)
	if err != nil {
		log.Fatalln("Error creating monitor core:", err)
	}
	defer monitorCore.Close()

	dev, err := monitorCore.AttachDevice("sim0")
	if err != nil {
		log.Fatalln("Error attaching device:", err)
	}

	// One established connection shared by two dup'ed handles.
	conn := lib.NewConnection("10.0.0.2:80-10.0.0.1:43210", dev)
	conn.SetState(lib.StateEstablished)

	sockA := lib.NewSocket(conn, false)
	sockB := lib.NewSocket(conn, false)

	if err := lib.StartMonitor(sockA); err != nil {
		log.Fatalln("StartMonitor(A):", err)
	}
	if err := lib.StartMonitor(sockB); err != nil {
		log.Fatalln("StartMonitor(B):", err)
	}
	log.Printf("Monitoring %s with %d callback entries", conn.Key, conn.EntryCount())

	// Close one dup'ed handle: only its entry goes away.
	lib.CloseMonitor(sockB)
	log.Printf("Closed handle B, %d entry left", conn.EntryCount())
	printStatus("A", sockA)
	printStatus("B", sockB)

	// Inject the requested loss-of-connection event from the device.
	flags := eventFromName(eventName)
	log.Printf("Injecting %s", flags)
	dev.PostEvent(conn, flags)
	dev.DrainEvents()
	printStatus("A", sockA)
	printStatus("B", sockB)

	// A late monitor start on the dead connection is rejected.
	conn.SetState(lib.StateClosed)
	sockC := lib.NewSocket(conn, false)
	if err := lib.StartMonitor(sockC); err != nil {
		log.Println("Late StartMonitor:", err)
	}
	printStatus("C", sockC)

	// Non-blocking connect in progress: observe the completion too.
	conn2 := lib.NewConnection("10.0.0.3:443-10.0.0.1:51000", dev)
	conn2.SetState(lib.StateSynSent)
	sockD := lib.NewSocket(conn2, true)
	if err := lib.StartMonitor(sockD); err != nil {
		log.Fatalln("StartMonitor(D):", err)
	}
	dev.PostEvent(conn2, lib.EventConnected)
	dev.DrainEvents()
	printStatus("D", sockD)
}
