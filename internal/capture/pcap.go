package capture

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// hwTimestampTrailer is the number of trailing payload bytes holding the
// hardware timestamp: two big-endian uint32 halves (seconds, nanoseconds)
// combined as high*1e9 + low.
const hwTimestampTrailer = 8

// PcapReader reads a generic pcap capture. Packets carry no embedded
// identifier, so the caller derives one from the payload window; the
// hardware timestamp is recovered from the payload trailer.
type PcapReader struct {
	f  *os.File
	pr *pcapgo.Reader
}

// OpenPcap opens a pcap capture file for reading.
func OpenPcap(path string) (*PcapReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture %s: %w", path, err)
	}
	pr, err := pcapgo.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to read pcap header of %s: %w", path, err)
	}
	return &PcapReader{f: f, pr: pr}, nil
}

// ReadSingle returns the next packet's payload window and hardware
// timestamp, or io.EOF when the capture is exhausted. Packets too short to
// carry the timestamp trailer are reported as corruption.
func (r *PcapReader) ReadSingle() (Record, error) {
	data, _, err := r.pr.ReadPacketData()
	if err == io.EOF {
		return Record{}, io.EOF
	}
	if err != nil {
		return Record{}, fmt.Errorf("failed to read packet: %w", err)
	}

	payload := packetPayload(data)
	if len(payload) < hwTimestampTrailer {
		return Record{}, fmt.Errorf("packet payload too short for hardware timestamp: %d bytes", len(payload))
	}

	trailer := payload[len(payload)-hwTimestampTrailer:]
	high := uint64(binary.BigEndian.Uint32(trailer[0:4]))
	low := uint64(binary.BigEndian.Uint32(trailer[4:8]))

	return Record{
		Timestamp: high*1e9 + low,
		Payload:   payload,
	}, nil
}

// Close closes the underlying file.
func (r *PcapReader) Close() error {
	return r.f.Close()
}

// packetPayload returns the innermost application payload of a raw
// ethernet frame, falling back to the raw frame when decoding finds no
// application layer.
func packetPayload(data []byte) []byte {
	pkt := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Lazy)
	if app := pkt.ApplicationLayer(); app != nil {
		return app.Payload()
	}
	return data
}
