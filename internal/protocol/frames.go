// Package protocol implements the ring sensor's binary wire protocol: the
// notification frame decoder, the fixed-length checksummed command encoder,
// and the GATT characteristic identifiers the link layer talks to.
package protocol

import "encoding/binary"

// SyncByte marks the start of every sensor frame.
const SyncByte = 0xA1

// Frame subtypes, the byte following SyncByte.
const (
	subtypeSpO2  = 0x01
	subtypePPG   = 0x02
	subtypeAccel = 0x03
)

// On-wire frame lengths including the sync and subtype bytes.
const (
	frameLenSpO2  = 10
	frameLenPPG   = 10
	frameLenAccel = 8
)

// Frame is one decoded protocol unit. The concrete types are PPGFrame,
// AccelFrame, and SpO2Frame; the set is closed.
type Frame interface {
	frame()
}

// PPGFrame carries one raw photoplethysmography reading.
type PPGFrame struct {
	Value uint16
}

// AccelFrame carries one three-axis accelerometer reading. Each axis is a
// signed 12-bit value.
type AccelFrame struct {
	X, Y, Z int16
}

// SpO2Frame carries one blood-oxygen reading.
type SpO2Frame struct {
	Value uint16
}

func (PPGFrame) frame()   {}
func (AccelFrame) frame() {}
func (SpO2Frame) frame()  {}

// Decode scans buf for frames and returns them in order of appearance.
//
// The scan resynchronizes on anything it cannot parse: a missing sync byte,
// an unrecognized subtype, or a frame whose declared length runs past the end
// of buf all advance the cursor by exactly one byte. Decode keeps no state
// across calls and never reads past the end of buf; bytes belonging to a
// frame split across two notifications are lost, not buffered.
func Decode(buf []byte) []Frame {
	var frames []Frame
	i := 0
	for i < len(buf) {
		if buf[i] != SyncByte || i+1 >= len(buf) {
			i++
			continue
		}
		switch buf[i+1] {
		case subtypePPG:
			if i+frameLenPPG > len(buf) {
				i++
				continue
			}
			frames = append(frames, PPGFrame{Value: binary.BigEndian.Uint16(buf[i+2 : i+4])})
			i += frameLenPPG
		case subtypeAccel:
			if i+frameLenAccel > len(buf) {
				i++
				continue
			}
			// Axes arrive nibble-interleaved in Y, Z, X order.
			y := accelAxis(buf[i+2], buf[i+3])
			z := accelAxis(buf[i+4], buf[i+5])
			x := accelAxis(buf[i+6], buf[i+7])
			frames = append(frames, AccelFrame{X: x, Y: y, Z: z})
			i += frameLenAccel
		case subtypeSpO2:
			if i+frameLenSpO2 > len(buf) {
				i++
				continue
			}
			frames = append(frames, SpO2Frame{Value: binary.BigEndian.Uint16(buf[i+2 : i+4])})
			i += frameLenSpO2
		default:
			i++
		}
	}
	return frames
}

// accelAxis reassembles one signed 12-bit axis from its high byte and low
// nibble.
func accelAxis(hi, lo byte) int16 {
	raw := int(hi)<<4 | int(lo)&0xF
	if raw&0x800 != 0 {
		raw -= 0x1000
	}
	return int16(raw)
}
