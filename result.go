package errhist

import (
	"errors"
	"fmt"
)

// SenseKey is the device-reported classification of a command outcome,
// distinct from raw transport success or failure.
type SenseKey uint8

// Sense keys defined by SPC.
const (
	SenseNoSense        SenseKey = 0x00
	SenseRecoveredError SenseKey = 0x01
	SenseNotReady       SenseKey = 0x02
	SenseMediumError    SenseKey = 0x03
	SenseHardwareError  SenseKey = 0x04
	SenseIllegalRequest SenseKey = 0x05
	SenseUnitAttention  SenseKey = 0x06
	SenseDataProtect    SenseKey = 0x07
	SenseBlankCheck     SenseKey = 0x08
	SenseVendorSpecific SenseKey = 0x09
	SenseCopyAborted    SenseKey = 0x0A
	SenseAbortedCommand SenseKey = 0x0B
	SenseVolumeOverflow SenseKey = 0x0D
	SenseMiscompare     SenseKey = 0x0E
)

func (k SenseKey) String() string {
	switch k {
	case SenseNoSense:
		return "no sense"
	case SenseRecoveredError:
		return "recovered error"
	case SenseNotReady:
		return "not ready"
	case SenseMediumError:
		return "medium error"
	case SenseHardwareError:
		return "hardware error"
	case SenseIllegalRequest:
		return "illegal request"
	case SenseUnitAttention:
		return "unit attention"
	case SenseDataProtect:
		return "data protect"
	case SenseBlankCheck:
		return "blank check"
	case SenseVendorSpecific:
		return "vendor specific"
	case SenseCopyAborted:
		return "copy aborted"
	case SenseAbortedCommand:
		return "aborted command"
	case SenseVolumeOverflow:
		return "volume overflow"
	case SenseMiscompare:
		return "miscompare"
	default:
		return fmt.Sprintf("reserved (0x%02x)", uint8(k))
	}
}

// CompletionStatus says how a command concluded at the transport level.
type CompletionStatus uint8

const (
	// CompletionGood means the command completed without sense data.
	CompletionGood CompletionStatus = iota

	// CompletionSense means the device terminated the command and reported
	// sense data describing why.
	CompletionSense

	// CompletionError means the command could not be submitted or completed
	// at the OS level; no device-side classification exists.
	CompletionError
)

// Completion is the raw result of one command execution as reported by a
// [Transport], before classification.
type Completion struct {
	Status CompletionStatus

	// Key, ASC and ASCQ describe the sense data when Status is
	// CompletionSense.
	Key  SenseKey
	ASC  uint8
	ASCQ uint8

	// Residual is the count of requested bytes the device did not transfer.
	Residual int

	// Err is the underlying OS error when Status is CompletionError.
	Err error
}

// OutcomeKind tags a classified command outcome.
type OutcomeKind uint8

const (
	// OutcomeOK means the command succeeded.
	OutcomeOK OutcomeKind = iota

	// OutcomeRecovered means the device reported recovered-error or
	// no-sense data; treated as success with no adjustment of the
	// data-size guarantee.
	OutcomeRecovered

	// OutcomeSenseError means the device reported any other sense key,
	// propagated verbatim through the outcome.
	OutcomeSenseError

	// OutcomeTransportError means the submission failed below the protocol
	// level.
	OutcomeTransportError
)

// Outcome is the classified result of one command.
type Outcome struct {
	Kind OutcomeKind

	// Bytes is the count actually transferred: the requested capacity minus
	// the residual, floored at zero.
	Bytes int

	// Key is the sense key for sense-classified outcomes.
	Key SenseKey

	// Err is non-nil for the two error kinds and matches ErrSense or
	// ErrTransport under errors.Is.
	Err error
}

// Good reports whether the outcome counts as success.
func (o Outcome) Good() bool {
	return o.Kind == OutcomeOK || o.Kind == OutcomeRecovered
}

// Classify turns a raw completion into a tagged outcome. requested is the
// data-in capacity that was offered with the command.
func Classify(c Completion, requested int) Outcome {
	bytes := max(requested-c.Residual, 0)
	bytes = min(bytes, requested)

	switch c.Status {
	case CompletionGood:
		return Outcome{Kind: OutcomeOK, Bytes: bytes}
	case CompletionSense:
		if c.Key == SenseRecoveredError || c.Key == SenseNoSense {
			return Outcome{Kind: OutcomeRecovered, Bytes: bytes, Key: c.Key}
		}
		return Outcome{
			Kind:  OutcomeSenseError,
			Bytes: bytes,
			Key:   c.Key,
			Err:   &CommandError{Kind: OutcomeSenseError, Key: c.Key, ASC: c.ASC, ASCQ: c.ASCQ},
		}
	default:
		return Outcome{
			Kind: OutcomeTransportError,
			Err:  &CommandError{Kind: OutcomeTransportError, Cause: c.Err},
		}
	}
}

// CommandError describes one failed command. It matches the ErrSense or
// ErrTransport sentinel under errors.Is according to its Kind.
type CommandError struct {
	Kind  OutcomeKind
	Key   SenseKey
	ASC   uint8
	ASCQ  uint8
	Cause error
}

func (e *CommandError) Error() string {
	if e.Kind == OutcomeSenseError {
		return fmt.Sprintf("errhist: command failed, sense %s (asc 0x%02x ascq 0x%02x)", e.Key, e.ASC, e.ASCQ)
	}
	if e.Cause != nil {
		return fmt.Sprintf("errhist: command submission failed: %v", e.Cause)
	}
	return "errhist: command submission failed"
}

func (e *CommandError) Unwrap() error { return e.Cause }

// Is reports whether the error matches the ErrSense or ErrTransport
// sentinel.
func (e *CommandError) Is(target error) bool {
	switch target {
	case ErrSense:
		return e.Kind == OutcomeSenseError
	case ErrTransport:
		return e.Kind == OutcomeTransportError
	}
	return false
}

// AsCommandError unwraps err to the CommandError carried inside, if any.
func AsCommandError(err error) (*CommandError, bool) {
	var ce *CommandError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
