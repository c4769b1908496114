package protocol

import (
	"encoding/hex"
	"fmt"
)

// Command packets are a fixed 16 bytes: 15 payload bytes zero-padded on the
// right, then a one-byte checksum (sum of the payload mod 256).
const (
	commandLength = 16
	payloadLength = 15
)

// Fixed control packets. ENABLE starts realtime streaming, DISABLE stops it.
var (
	CmdEnable  = mustEncodeCommand("a104")
	CmdDisable = mustEncodeCommand("a102")
)

// EncodeCommand builds a 16-byte command packet from a hex payload string.
// Payloads longer than 15 bytes are a caller error.
func EncodeCommand(hexPayload string) ([]byte, error) {
	payload, err := hex.DecodeString(hexPayload)
	if err != nil {
		return nil, fmt.Errorf("invalid command hex %q: %w", hexPayload, err)
	}
	if len(payload) > payloadLength {
		return nil, fmt.Errorf("command payload %q is %d bytes, max %d", hexPayload, len(payload), payloadLength)
	}
	buf := make([]byte, commandLength)
	copy(buf, payload)
	var sum byte
	for _, b := range buf[:payloadLength] {
		sum += b
	}
	buf[payloadLength] = sum
	return buf, nil
}

func mustEncodeCommand(hexPayload string) []byte {
	buf, err := EncodeCommand(hexPayload)
	if err != nil {
		panic(err)
	}
	return buf
}
