// Command socketecn shows how a CE mark decided by a Port gets applied to
// a real outgoing packet: it sends a UDP datagram and sets the IP header's
// ECN bits via golang.org/x/net/ipv4's TOS control, toggling CE on or off
// per datagram to exercise both code paths.
//
// There is no retrieval-pack example that touches golang.org/x/net/ipv4
// directly; this file follows the package's documented API rather than an
// in-pack pattern (see DESIGN.md).
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"golang.org/x/net/ipv4"

	"github.com/quiclab/portsched"
)

// ECN field values per RFC 3168 §5, packed into the low two bits of the
// IPv4 TOS byte.
const (
	ecnNotECT = 0x0
	ecnECT1   = 0x1
	ecnECT0   = 0x2
	ecnCE     = 0x3
)

func main() {
	dest := flag.String("dest", "127.0.0.1:9999", "destination host:port for the demo UDP datagrams")
	count := flag.Int("count", 8, "number of datagrams to send")
	flag.Parse()

	conn, err := net.ListenPacket("udp4", "0.0.0.0:0")
	if err != nil {
		fmt.Fprintf(os.Stderr, "socketecn: listen: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	pconn := ipv4.NewPacketConn(conn)

	addr, err := net.ResolveUDPAddr("udp4", *dest)
	if err != nil {
		fmt.Fprintf(os.Stderr, "socketecn: resolve %s: %v\n", *dest, err)
		os.Exit(1)
	}

	cfg := &portsched.Config{QueueNum: 1, PrioQueueNum: 1, MarkingScheme: portsched.MarkingPerPort, PortThresh: 1, MeanPktSize: 1}
	port, err := portsched.New(cfg, nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "socketecn: new port: %v\n", err)
		os.Exit(1)
	}

	payload := []byte("portsched ecn demo")
	for i := 0; i < *count; i++ {
		port.Enqueue(portsched.Packet{Length: portsched.ByteCount(len(payload)), Queue: 0, ECT: i%2 == 0})
		out := port.Dequeue()
		if !out.Ok {
			continue
		}

		ecn := ecnNotECT
		if out.Packet.ECT {
			ecn = ecnECT0
		}
		if out.Packet.CE {
			ecn = ecnCE
		}
		if err := pconn.SetTOS(ecn); err != nil {
			fmt.Fprintf(os.Stderr, "socketecn: set TOS: %v\n", err)
			continue
		}

		if _, err := pconn.WriteTo(payload, nil, addr); err != nil {
			fmt.Fprintf(os.Stderr, "socketecn: write: %v\n", err)
			continue
		}
		fmt.Printf("sent datagram %d, ce=%v\n", i, out.Packet.CE)
	}
}
