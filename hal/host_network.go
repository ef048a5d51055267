//go:build !tinygo

package hal

import (
	"fmt"
	"sync"
)

const hostNetQueue = 32

// hostNetwork is a loopback transport: sent packets come back on Recv.
// It stands in for the Ethernet/WiFi MAC on the host, which is enough to
// exercise the remote-control path end to end.
type hostNetwork struct {
	mu sync.Mutex
	q  [][]byte
}

func newHostNetwork() *hostNetwork {
	return &hostNetwork{}
}

func (n *hostNetwork) Send(pkt []byte) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.q) >= hostNetQueue {
		return fmt.Errorf("hal: loopback queue full (%d packets)", hostNetQueue)
	}
	cp := make([]byte, len(pkt))
	copy(cp, pkt)
	n.q = append(n.q, cp)
	return nil
}

func (n *hostNetwork) Recv(pkt []byte) (int, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.q) == 0 {
		return 0, nil
	}
	head := n.q[0]
	n.q = n.q[1:]
	if len(head) > len(pkt) {
		return 0, fmt.Errorf("hal: packet of %d bytes exceeds buffer %d", len(head), len(pkt))
	}
	return copy(pkt, head), nil
}
