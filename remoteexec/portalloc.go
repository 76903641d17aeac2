package remoteexec

import (
	"fmt"
	"net"

	"github.com/slighter12/unreal-mcp-go/logger"
)

// FindAvailablePort probes the range [start, end] for a UDP port that can be
// bound locally. Each editor instance needs its own multicast reply port, so
// the probe walks the range instead of asking the kernel for an ephemeral
// port outside it.
func FindAvailablePort(start, end int) (int, error) {
	if start <= 0 || end < start {
		return 0, fmt.Errorf("invalid port range %d-%d", start, end)
	}

	for port := start; port <= end; port++ {
		conn, err := net.ListenUDP("udp4", &net.UDPAddr{
			IP:   net.IPv4zero,
			Port: port,
		})
		if err != nil {
			continue
		}
		conn.Close()
		logger.Debug("Allocated multicast port", "port", port)
		return port, nil
	}

	return 0, fmt.Errorf("no available port in range %d-%d", start, end)
}
