package transport

import (
	"hash/fnv"
	"net"
	"strconv"
)

// lockPortFor derives the TCP port used as an advisory mutual-exclusion
// gate from the absolute serial device path, per the concurrency gate:
// port = 10000 + (hash & 0x7FFF), hashed with FNV-1a — a cryptographic
// hash is not warranted for a local advisory lock.
func lockPortFor(devicePath string) int {
	h := fnv.New32a()
	h.Write([]byte(devicePath))
	return 10000 + int(h.Sum32()&0x7FFF)
}

// acquireLock binds a TCP listener on 127.0.0.1 at the port derived
// from devicePath. The listener is never accepted from; its only
// purpose is to hold the port for the life of the process. A bind
// failure means another tockloader process already holds this device.
func acquireLock(devicePath string) (net.Listener, error) {
	port := lockPortFor(devicePath)
	ln, err := net.Listen("tcp", "127.0.0.1:"+strconv.Itoa(port))
	if err != nil {
		return nil, &SerialBusyError{DevicePath: devicePath}
	}
	return ln, nil
}
