package types

import "fmt"

// ProtocolDecodeError reports a malformed envelope crossing the host/module
// boundary: a JSON-RPC request, an error record, call options or output.
type ProtocolDecodeError struct {
	What string
	Err  error
}

func (e *ProtocolDecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.What, e.Err)
}

func (e *ProtocolDecodeError) Unwrap() error { return e.Err }
