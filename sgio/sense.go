package sgio

import "github.com/meigma/errhist"

// Sense data response codes. The high bit of byte 0 is a validity flag and
// is masked off before comparison.
const (
	senseFixedCurrent       = 0x70
	senseFixedDeferred      = 0x71
	senseDescriptorCurrent  = 0x72
	senseDescriptorDeferred = 0x73
)

// SenseInfo is the normalized view of a sense buffer.
type SenseInfo struct {
	ResponseCode uint8
	Key          errhist.SenseKey
	ASC          uint8
	ASCQ         uint8
	Deferred     bool
}

// ParseSense normalizes a raw sense buffer in either the fixed or the
// descriptor format. It reports false for buffers too short to carry a
// sense key or with an unknown response code.
//
// Fixed-format buffers place the key at byte 2 and the additional sense
// code pair at bytes 12 and 13; descriptor-format buffers pack all three
// into bytes 1 through 3. Devices may legally truncate the fixed format
// before the additional bytes, in which case the codes stay zero.
func ParseSense(b []byte) (SenseInfo, bool) {
	if len(b) < 3 {
		return SenseInfo{}, false
	}

	info := SenseInfo{ResponseCode: b[0] & 0x7F}
	switch info.ResponseCode {
	case senseFixedCurrent, senseFixedDeferred:
		info.Key = errhist.SenseKey(b[2] & 0x0F)
		if len(b) >= 14 {
			info.ASC = b[12]
			info.ASCQ = b[13]
		}
		info.Deferred = info.ResponseCode == senseFixedDeferred
	case senseDescriptorCurrent, senseDescriptorDeferred:
		if len(b) < 4 {
			return SenseInfo{}, false
		}
		info.Key = errhist.SenseKey(b[1] & 0x0F)
		info.ASC = b[2]
		info.ASCQ = b[3]
		info.Deferred = info.ResponseCode == senseDescriptorDeferred
	default:
		return SenseInfo{}, false
	}
	return info, true
}
