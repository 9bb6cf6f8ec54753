package lib

import "sync"

// netMu is the process-wide network lock. Every mutation of connection
// callback chains, callback entries and socket status bits happens while
// it is held. There is no finer-grained locking.
//
// Functions whose name ends in "Locked" must only be called with netMu
// held; all other exported functions acquire and release it themselves.
var netMu sync.Mutex

func netLock() {
	netMu.Lock()
}

func netUnlock() {
	netMu.Unlock()
}
