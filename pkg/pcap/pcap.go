// Package pcap reads the Wireshark JSON export of a captured USB↔FTDI
// bridge session and reconstructs the raw TX/RX byte streams the MPSSE
// decoder (pkg/mpsse) consumes.
package pcap

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jtagtrace/jtagtrace/pkg/buffer"
)

// bridgeProtocol is the only frame.protocols value the reader considers;
// every other record in the capture (enumeration, other USB traffic) is
// skipped.
const bridgeProtocol = "usb:ftdift"

// MaxPacketSize is FTDI_MAX_PACKET_SIZE: RX payloads are delivered to the
// host in chunks of at most this many bytes, each (but the last) followed
// by two modem-status bytes that Wireshark's USB capture leaves in the
// payload. The reader strips them back out to recover the raw reply
// stream the device actually produced.
const MaxPacketSize = 512

type record struct {
	Source struct {
		Layers struct {
			Frame struct {
				Protocols string `json:"frame.protocols"`
			} `json:"frame"`
			Ftdift struct {
				TxPayload string `json:"ftdift.if_a_tx_payload"`
				RxPayload string `json:"ftdift.if_a_rx_payload"`
			} `json:"ftdift"`
		} `json:"layers"`
	} `json:"_source"`
}

// Read parses the JSON capture in r and returns the TX and RX framed
// buffers the MPSSE decoder expects. Each record contributes frame id
// (its index in the capture, 1-based).
func Read(r io.Reader) (tx, rx *buffer.Buffer, err error) {
	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, nil, fmt.Errorf("pcap: decode json: %w", err)
	}

	tx = buffer.New()
	rx = buffer.New()

	for i, rec := range records {
		if rec.Source.Layers.Frame.Protocols != bridgeProtocol {
			continue
		}
		frame := i + 1

		if rec.Source.Layers.Ftdift.TxPayload != "" {
			data, err := parseHexColon(rec.Source.Layers.Ftdift.TxPayload)
			if err != nil {
				return nil, nil, fmt.Errorf("pcap: frame %d: tx payload: %w", frame, err)
			}
			tx.Append(data, frame)
		}

		if rec.Source.Layers.Ftdift.RxPayload != "" {
			data, err := parseHexColon(rec.Source.Layers.Ftdift.RxPayload)
			if err != nil {
				return nil, nil, fmt.Errorf("pcap: frame %d: rx payload: %w", frame, err)
			}
			rx.Append(stripModemStatus(data), frame)
		}
	}

	return tx, rx, nil
}

// stripModemStatus removes the two-byte modem-status prefix Wireshark
// leaves after every full MaxPacketSize chunk of an RX payload. A final
// remainder shorter than MaxPacketSize carries no trailing modem status
// and is kept verbatim.
func stripModemStatus(data []byte) []byte {
	out := make([]byte, 0, len(data))
	idx := 0
	for len(data)-idx >= MaxPacketSize {
		out = append(out, data[idx:idx+MaxPacketSize]...)
		idx += MaxPacketSize + 2
	}
	if idx < len(data) {
		out = append(out, data[idx:]...)
	}
	return out
}

func parseHexColon(s string) ([]byte, error) {
	parts := strings.Split(s, ":")
	out := make([]byte, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex byte %q: %w", p, err)
		}
		out[i] = byte(v)
	}
	return out, nil
}
