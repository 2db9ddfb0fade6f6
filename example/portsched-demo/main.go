// Command portsched-demo drives a single Port from the command line,
// reading an optional YAML config file and printing each accepted or
// dropped packet, in the flags-plus-custom-usage style of the retrieval
// pack's direwolf command (doismellburning-samoyed/cmd/direwolf/main.go).
package main

import (
	"fmt"
	"math/rand"
	"os"

	"github.com/spf13/pflag"

	"github.com/quiclab/portsched"
	"github.com/quiclab/portsched/configfile"
)

func main() {
	var configPath = pflag.StringP("config-file", "c", "", "YAML config file. Unset fields fall back to built-in defaults.")
	var queueNum = pflag.IntP("queue-num", "q", 4, "Number of CoS queues, overrides the config file's queue_num if nonzero.")
	var packetCount = pflag.IntP("packets", "n", 20, "Number of synthetic packets to enqueue.")
	var linkCapacity = pflag.Float64P("link-capacity", "l", 1e9, "Link capacity in bits/sec, overrides link_capacity if nonzero.")
	var debug = pflag.BoolP("debug", "d", false, "Enable per-event debug logging on the port.")
	var help = pflag.BoolP("help", "h", false, "Display help text.")

	pflag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s - drive a portsched.Port with synthetic traffic.\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "\n")
		fmt.Fprintf(os.Stderr, "Usage: portsched-demo [options]\n")
		pflag.PrintDefaults()
	}

	pflag.Parse()

	if *help {
		pflag.Usage()
		os.Exit(0)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "portsched-demo: %v\n", err)
		os.Exit(1)
	}

	if *queueNum != 0 {
		cfg.QueueNum = *queueNum
		cfg.PrioQueueNum = *queueNum
	}
	if *linkCapacity != 0 {
		cfg.LinkCapacityBPS = *linkCapacity
	}
	cfg.Debug = *debug

	port, err := portsched.New(cfg, nil, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "portsched-demo: new port: %v\n", err)
		os.Exit(1)
	}

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < *packetCount; i++ {
		pkt := portsched.Packet{
			Length: portsched.ByteCount(64 + rng.Intn(1436)),
			Queue:  portsched.QueueIndex(rng.Intn(cfg.QueueNum)),
			ECT:    rng.Intn(2) == 0,
		}
		res := port.Enqueue(pkt)
		if res.Accepted {
			fmt.Printf("enqueue: queue=%d len=%d ect=%v accepted\n", pkt.Queue, pkt.Length, pkt.ECT)
		} else {
			fmt.Printf("enqueue: queue=%d len=%d ect=%v dropped reason=%s\n", pkt.Queue, pkt.Length, pkt.ECT, res.Reason)
		}
	}

	for {
		out := port.Dequeue()
		if !out.Ok {
			break
		}
		mark := ""
		if out.Packet.CE {
			mark = " CE"
		}
		fmt.Printf("dequeue: queue=%d len=%d%s\n", out.Packet.Queue, out.Packet.Length, mark)
	}
}

func loadConfig(path string) (*portsched.Config, error) {
	if path == "" {
		return &portsched.Config{}, nil
	}
	return configfile.Load(path)
}
