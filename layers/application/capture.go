package application

import (
	"fmt"
	"os"
	"time"

	pkgnet "github.com/matheuscscp/world-net/pkg/net"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/hashicorp/go-multierror"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

type (
	// CaptureConfig allows specifying configurations for capturing
	// the simulated probes in the pcapng format.
	CaptureConfig struct {
		Filename string `yaml:"filename"`
	}

	// Capture writes simulated probe datagrams into a pcapng file that
	// regular tools (wireshark, tcpdump) can open.
	Capture struct {
		file *os.File
		w    *pcapgo.NgWriter
	}
)

// NewCapture creates the capture file.
func NewCapture(conf CaptureConfig) (*Capture, error) {
	file, err := os.Create(conf.Filename)
	if err != nil {
		return nil, fmt.Errorf("error creating capture file %s: %w", conf.Filename, err)
	}
	w, err := pcapgo.NewNgWriter(file, gplayers.LinkTypeRaw)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("error creating pcapng writer: %w", err)
	}
	return &Capture{file: file, w: w}, nil
}

// WriteDatagram appends a serialized IPv4 datagram.
func (c *Capture) WriteDatagram(ts time.Time, datagram []byte) error {
	ci := gopacket.CaptureInfo{
		Timestamp:     ts,
		CaptureLength: len(datagram),
		Length:        len(datagram),
	}
	if err := c.w.WritePacket(ci, datagram); err != nil {
		return fmt.Errorf("error writing packet to capture: %w", err)
	}
	return nil
}

// writeExchange records an echo request and the answer it triggers:
// a time-exceeded error from an intermediate hop, or the echo reply
// from the destination.
func (c *Capture) writeExchange(
	ts time.Time,
	rtt time.Duration,
	src, dst, answeredBy pkgnet.Address,
	id, ttl int,
	final bool,
) error {
	if ttl < 1 || MaxTTL < ttl {
		return fmt.Errorf("ttl %d does not fit an ipv4 header", ttl)
	}
	request, err := SerializeProbe(src, dst, uint8(ttl), &icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Body: &icmp.Echo{ID: id, Seq: ttl, Data: []byte("world-net")},
	})
	if err != nil {
		return err
	}
	if err := c.WriteDatagram(ts, request); err != nil {
		return err
	}

	answer := &icmp.Message{
		Type: ipv4.ICMPTypeEchoReply,
		Body: &icmp.Echo{ID: id, Seq: ttl, Data: []byte("world-net")},
	}
	if !final {
		// original header plus the first 8 bytes of its payload
		answer = &icmp.Message{
			Type: ipv4.ICMPTypeTimeExceeded,
			Body: &icmp.TimeExceeded{Data: request[:HeaderLength+8]},
		}
	}
	reply, err := SerializeProbe(answeredBy, src, defaultReplyTTL, answer)
	if err != nil {
		return err
	}
	return c.WriteDatagram(ts.Add(rtt), reply)
}

func (c *Capture) Close() error {
	var err error
	if fErr := c.w.Flush(); fErr != nil {
		err = multierror.Append(err, fmt.Errorf("error flushing pcapng writer: %w", fErr))
	}
	if cErr := c.file.Close(); cErr != nil {
		err = multierror.Append(err, fmt.Errorf("error closing capture file: %w", cErr))
	}
	return err
}
