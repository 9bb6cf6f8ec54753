/*
This tap observes live TCP control packets and feeds them into the
connection monitor as lifecycle events, so the monitor can be exercised
against real traffic without a protocol engine:

	SYN-ACK from the peer -> EventConnected
	FIN from the peer     -> EventClose
	RST from the peer     -> EventAbort

It listens on a raw ip4:tcp socket (usually requires privileges),
classifies each segment with gopacket, and posts the matching event to
the monitored connection's device queue.

Usage:
  ./conntap [options]
  Options:
    -config string   Path to the YAML configuration (default "config.yaml")
    -ip string       Local IP to listen on (default "127.0.0.1")
    -peer string     Peer address to watch, IP:port (default "127.0.0.1:80")
    -lport int       Local port of the watched connection (default 43210)
*/

package main

import (
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Clouded-Sabre/pcp-monitor/config"
	"github.com/Clouded-Sabre/pcp-monitor/lib"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	configPath string
	listenIP   string
	peerAddr   string
	localPort  int
)

func init() {
	flag.StringVar(&configPath, "config", "config.yaml", "path to YAML configuration")
	flag.StringVar(&listenIP, "ip", "127.0.0.1", "local IP to listen on")
	flag.StringVar(&peerAddr, "peer", "127.0.0.1:80", "peer address to watch (IP:port)")
	flag.IntVar(&localPort, "lport", 43210, "local port of the watched connection")
	flag.Parse()
}

// classify maps a peer-sent TCP segment to a lifecycle event, or 0 when
// the segment carries none we care about.
func classify(tcp *layers.TCP) lib.EventFlags {
	switch {
	case tcp.RST:
		return lib.EventAbort
	case tcp.FIN:
		return lib.EventClose
	case tcp.SYN && tcp.ACK:
		return lib.EventConnected
	default:
		return 0
	}
}

func main() {
	peerIPstr, peerPortStr, err := net.SplitHostPort(peerAddr)
	if err != nil {
		log.Fatalln("Peer address is malformated:", err)
	}
	peerPort, err := strconv.Atoi(peerPortStr)
	if err != nil {
		log.Fatalln("Peer port is malformated:", err)
	}
	peerIP := net.ParseIP(peerIPstr)
	if peerIP == nil {
		log.Fatalf("Peer IP %s is malformated", peerIPstr)
	}

	coreConfig, err := config.LoadConfig(configPath)
	if err != nil {
		log.Println("Configuration file not usable, falling back to defaults:", err)
		coreConfig = lib.DefaultMonitorCoreConfig()
	}

	monitorCore, err := lib.NewMonitorCore(coreConfig, nil)
	if err != nil {
		log.Fatalln("Error creating monitor core:", err)
	}
	defer monitorCore.Close()

	dev, err := monitorCore.AttachDevice("tap0")
	if err != nil {
		log.Fatalln("Error attaching device:", err)
	}

	// The watched connection starts as an in-flight non-blocking
	// connect so the tap can observe the SYN-ACK completing it.
	connKey := peerAddr + "-" + net.JoinHostPort(listenIP, strconv.Itoa(localPort))
	conn := lib.NewConnection(connKey, dev)
	conn.SetState(lib.StateSynSent)
	sock := lib.NewSocket(conn, true)
	if err := lib.StartMonitor(sock); err != nil {
		log.Fatalln("StartMonitor:", err)
	}

	tap, err := net.ListenPacket("ip4:tcp", listenIP)
	if err != nil {
		log.Fatalln("Error listening:", err)
	}
	defer tap.Close()
	log.Printf("Tapping TCP control packets from %s for local port %d", peerAddr, localPort)

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)
	closeSignal := make(chan struct{})
	go func() {
		<-signalChan
		log.Println("Received signal. Shutting down...")
		close(closeSignal)
	}()

	buffer := make([]byte, 65535)
	for {
		select {
		case <-closeSignal:
			lib.StopMonitor(conn, lib.EventDeviceDown)
			return
		default:
		}

		// Set a read deadline to ensure non-blocking behavior
		tap.SetReadDeadline(time.Now().Add(500 * time.Millisecond))
		n, addr, err := tap.ReadFrom(buffer)
		if err != nil {
			// Check if the error is a timeout
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			log.Println("conntap: Error reading:", err)
			continue
		}

		if ipAddr, ok := addr.(*net.IPAddr); !ok || !ipAddr.IP.Equal(peerIP) {
			continue
		}

		packet := gopacket.NewPacket(buffer[:n], layers.LayerTypeTCP, gopacket.Default)
		if packet == nil {
			continue
		}
		tcpLayer := packet.Layer(layers.LayerTypeTCP)
		if tcpLayer == nil {
			continue
		}
		tcp, _ := tcpLayer.(*layers.TCP)

		if int(tcp.SrcPort) != peerPort || int(tcp.DstPort) != localPort {
			continue
		}

		flags := classify(tcp)
		if flags == 0 {
			continue
		}

		log.Printf("Observed %s from %s", flags, peerAddr)
		dev.PostEvent(conn, flags)
		dev.DrainEvents()
		log.Printf("Socket status: bound=%t connected=%t closed=%t",
			sock.IsBound(), sock.IsConnected(), sock.IsClosed())
	}
}
