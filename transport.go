package errhist

import "time"

// DefaultCommandTimeout bounds each device command when no override is
// given through WithCommandTimeout.
const DefaultCommandTimeout = 60 * time.Second

// Transport submits one command descriptor block to a device and blocks
// until the command completes or the timeout elapses.
//
// data is the data-in buffer offered to the device; its length is the
// transfer capacity. Implementations fill data, report the result through
// the returned Completion, and must not retain cdb or data. Exactly one
// command is outstanding at a time.
type Transport interface {
	Execute(cdb, data []byte, timeout time.Duration) Completion
}
