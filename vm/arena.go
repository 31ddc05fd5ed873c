package vm

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/govm-net/harness/types"
)

// MemoryBoundsError reports an arena access outside the bytes allocated so far
// in the current call, or an allocation past the arena cap.
type MemoryBoundsError struct {
	Op     string
	Offset uint64
	Length uint64
	Size   uint64
}

func (e *MemoryBoundsError) Error() string {
	return fmt.Sprintf("arena %s out of bounds: offset=%d length=%d size=%d", e.Op, e.Offset, e.Length, e.Size)
}

// ErrorRecord is the error a module reports through set_error before it traps.
type ErrorRecord struct {
	Message  string `json:"message"`
	FileName string `json:"fileName"`
	Line     uint64 `json:"line"`
	Column   uint64 `json:"column"`
}

func (e *ErrorRecord) Error() string { return e.Message }

// Stack renders the record the way a contract stack trace reads.
func (e *ErrorRecord) Stack() string {
	return fmt.Sprintf("Error: %s\nat %s(%d:%d)", e.Message, e.FileName, e.Line, e.Column)
}

// Arena is the per-call memory shared with a module through host functions.
// It is a bump allocator: regions are only ever appended and the whole arena
// is dropped by Reset at the start of the next call.
type Arena struct {
	buf    []byte
	input  []byte
	output []byte
	err    *ErrorRecord
	limit  uint64
}

// NewArena creates an arena that refuses to grow beyond limit bytes. A zero
// limit means the largest size an offset/length pair can encode.
func NewArena(limit uint64) *Arena {
	if limit == 0 || limit > math.MaxUint32 {
		limit = math.MaxUint32
	}
	return &Arena{limit: limit}
}

// Reset clears every field. The backing storage is kept for reuse.
func (a *Arena) Reset() {
	a.buf = a.buf[:0]
	a.input = nil
	a.output = nil
	a.err = nil
}

// Len is the number of bytes allocated in the current call.
func (a *Arena) Len() uint64 { return uint64(len(a.buf)) }

// Alloc grows the arena by length zeroed bytes and returns the offset of the
// new region.
func (a *Arena) Alloc(length uint64) (uint64, error) {
	offset := uint64(len(a.buf))
	if length > a.limit || offset > a.limit-length {
		return 0, &MemoryBoundsError{Op: "alloc", Offset: offset, Length: length, Size: a.limit}
	}
	end := int(offset + length)
	if end > cap(a.buf) {
		grown := make([]byte, end, max(end, 2*cap(a.buf)))
		copy(grown, a.buf)
		a.buf = grown
		return offset, nil
	}
	a.buf = a.buf[:end]
	clear(a.buf[offset:end])
	return offset, nil
}

// SetInput appends the serialized context after whatever is already
// allocated and records it as the call input.
func (a *Arena) SetInput(input []byte) error {
	offset, err := a.Alloc(uint64(len(input)))
	if err != nil {
		return err
	}
	copy(a.buf[offset:], input)
	a.input = a.buf[offset : offset+uint64(len(input)) : offset+uint64(len(input))]
	return nil
}

// Input is the serialized context of the current call.
func (a *Arena) Input() []byte { return a.input }

func (a *Arena) check(op string, offset, length uint64) error {
	size := uint64(len(a.buf))
	if offset > size || length > size-offset {
		return &MemoryBoundsError{Op: op, Offset: offset, Length: length, Size: size}
	}
	return nil
}

// Read returns a copy of the region [offset, offset+length).
func (a *Arena) Read(offset, length uint64) ([]byte, error) {
	if err := a.check("read", offset, length); err != nil {
		return nil, err
	}
	out := make([]byte, length)
	copy(out, a.buf[offset:offset+length])
	return out, nil
}

// Write copies data into an already allocated region.
func (a *Arena) Write(offset uint64, data []byte) error {
	if err := a.check("write", offset, uint64(len(data))); err != nil {
		return err
	}
	copy(a.buf[offset:], data)
	return nil
}

// LoadByte returns the byte at offset.
func (a *Arena) LoadByte(offset uint64) (byte, error) {
	if err := a.check("load", offset, 1); err != nil {
		return 0, err
	}
	return a.buf[offset], nil
}

// StoreByte stores one byte at offset.
func (a *Arena) StoreByte(offset uint64, value byte) error {
	if err := a.check("store", offset, 1); err != nil {
		return err
	}
	a.buf[offset] = value
	return nil
}

// SetOutput copies a region into the call output.
func (a *Arena) SetOutput(offset, length uint64) error {
	out, err := a.Read(offset, length)
	if err != nil {
		return err
	}
	a.output = out
	return nil
}

// Output is the raw output set by the module.
func (a *Arena) Output() []byte { return a.output }

// DecodeOutput parses the output as JSON. An empty output is an empty object.
func (a *Arena) DecodeOutput() (types.Value, error) {
	if len(a.output) == 0 {
		return types.Object(), nil
	}
	v, err := types.ParseValue(a.output)
	if err != nil {
		return types.Null(), &types.ProtocolDecodeError{What: "function output", Err: err}
	}
	return v, nil
}

// SetError records the error envelope found at [offset, offset+length).
func (a *Arena) SetError(offset, length uint64) error {
	raw, err := a.Read(offset, length)
	if err != nil {
		return err
	}
	var envelope struct {
		Message  *string     `json:"message"`
		Metadata ErrorRecord `json:"metadata"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return &types.ProtocolDecodeError{What: "error envelope", Err: err}
	}
	if envelope.Message == nil {
		return &types.ProtocolDecodeError{What: "error envelope", Err: fmt.Errorf("missing message")}
	}
	rec := envelope.Metadata
	rec.Message = *envelope.Message
	a.err = &rec
	return nil
}

// CapturedError is the record set_error stored during the current call, if any.
func (a *Arena) CapturedError() *ErrorRecord { return a.err }
