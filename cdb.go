package errhist

import "encoding/binary"

// READ BUFFER opcodes (SPC-4).
const (
	opcodeReadBuffer10 = 0x3C
	opcodeReadBuffer16 = 0x9B
)

// BufferMode selects the mode field of a READ BUFFER command.
type BufferMode uint8

// READ BUFFER modes (SPC-4 table 263).
const (
	ModeHeaderData      BufferMode = 0x00
	ModeVendor          BufferMode = 0x01
	ModeData            BufferMode = 0x02
	ModeDescriptor      BufferMode = 0x03
	ModeEchoBuffer      BufferMode = 0x0A
	ModeEchoDescriptor  BufferMode = 0x0B
	ModeMicrocodeStatus BufferMode = 0x0F
	ModeExpanderEcho    BufferMode = 0x1A
	ModeErrorHistory    BufferMode = 0x1C
)

func (m BufferMode) String() string {
	switch m {
	case ModeHeaderData:
		return "combined header and data"
	case ModeVendor:
		return "vendor specific"
	case ModeData:
		return "data"
	case ModeDescriptor:
		return "descriptor"
	case ModeEchoBuffer:
		return "read data from echo buffer"
	case ModeEchoDescriptor:
		return "echo buffer descriptor"
	case ModeMicrocodeStatus:
		return "read microcode status"
	case ModeExpanderEcho:
		return "enable expander comms protocol and echo buffer"
	case ModeErrorHistory:
		return "error history"
	default:
		return "unknown"
	}
}

// CDB10 is a 10-byte READ BUFFER command descriptor block.
type CDB10 [10]byte

// CDB16 is a 16-byte READ BUFFER command descriptor block.
type CDB16 [16]byte

// ReadBuffer10 builds the short-form READ BUFFER command.
//
// offset and length occupy 24-bit wire fields; values above 0xFFFFFF are
// truncated. The encoder performs no bounds validation beyond the mandatory
// field masking; callers bound the parameters.
func ReadBuffer10(mode BufferMode, modeSpecific, bufferID uint8, offset, length uint32) CDB10 {
	var c CDB10
	c[0] = opcodeReadBuffer10
	c[1] = packMode(mode, modeSpecific)
	c[2] = bufferID
	put24(c[3:6], offset)
	put24(c[6:9], length)
	return c
}

// ReadBuffer16 builds the long-form READ BUFFER command, which carries a
// 64-bit buffer offset. length occupies a 24-bit wire field.
func ReadBuffer16(mode BufferMode, modeSpecific, bufferID uint8, offset uint64, length uint32) CDB16 {
	var c CDB16
	c[0] = opcodeReadBuffer16
	c[1] = packMode(mode, modeSpecific)
	binary.BigEndian.PutUint64(c[2:10], offset)
	put24(c[11:14], length)
	c[14] = bufferID
	return c
}

// packMode packs the 5-bit mode into the low bits and the 3-bit
// mode-specific field into the top bits of the mode byte.
func packMode(mode BufferMode, modeSpecific uint8) byte {
	return byte(mode)&0x1F | (modeSpecific&0x07)<<5
}

// put24 stores the low 24 bits of v big-endian into b[0:3].
func put24(b []byte, v uint32) {
	b[0] = byte(v >> 16)
	b[1] = byte(v >> 8)
	b[2] = byte(v)
}
