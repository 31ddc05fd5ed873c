package vm

import (
	"context"
	"log/slog"
	"sync"
)

// Indices of the host imports every test module declares, in order.
const (
	fnLog uint32 = iota
	fnStoreU8
	fnLoadU8
	fnInputSize
	fnAlloc
	fnSetOutput
	fnSetError
	fnJSONRPC
	numImports
)

// opcodes used by the test modules
const (
	opUnreachable = 0x00
	opBlock       = 0x02
	opLoop        = 0x03
	opEnd         = 0x0b
	opBr          = 0x0c
	opBrIf        = 0x0d
	opDrop        = 0x1a
	opI64Eqz      = 0x50
	opI64LtU      = 0x54
	opI64LeU      = 0x58
	opI64GeU      = 0x5a
	opI32And      = 0x71
	opI64Add      = 0x7c
	opI64Sub      = 0x7d
	opI64Mul      = 0x7e
	opI64DivU     = 0x80
	opI64RemU     = 0x82
	opI64And      = 0x83
	opI64ShrU     = 0x88
	opI32WrapI64  = 0xa7
	opI64ExtI32U  = 0xad
	blockVoid     = 0x40
	valI32        = 0x7f
	valI64        = 0x7e
)

func uleb(v uint64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func sleb(v int64) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if (v == 0 && b&0x40 == 0) || (v == -1 && b&0x40 != 0) {
			return append(out, b)
		}
		out = append(out, b|0x80)
	}
}

func join(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func op(codes ...byte) []byte { return codes }

func i64c(v int64) []byte   { return append([]byte{0x42}, sleb(v)...) }
func i32c(v int32) []byte   { return append([]byte{0x41}, sleb(int64(v))...) }
func call(idx uint32) []byte { return append([]byte{0x10}, uleb(uint64(idx))...) }
func get(i byte) []byte      { return []byte{0x20, i} }
func set(i byte) []byte      { return []byte{0x21, i} }
func tee(i byte) []byte      { return []byte{0x22, i} }

func name(s string) []byte { return join(uleb(uint64(len(s))), []byte(s)) }

func vec(items ...[]byte) []byte {
	return join(uleb(uint64(len(items))), join(items...))
}

func section(id byte, content []byte) []byte {
	return join([]byte{id}, uleb(uint64(len(content))), content)
}

// writeBytes allocates len(data) arena bytes, stores data there byte by byte
// and leaves the offset in local.
func writeBytes(local byte, data []byte) []byte {
	code := join(i64c(int64(len(data))), call(fnAlloc), set(local))
	for i, b := range data {
		code = join(code, get(local), i64c(int64(i)), op(opI64Add), i32c(int32(b)), call(fnStoreU8))
	}
	return code
}

// emit writes data into the arena and passes the region to a host function
// taking (offset, length).
func emit(host uint32, data string) []byte {
	return join(writeBytes(0, []byte(data)), get(0), i64c(int64(len(data))), call(host))
}

// isDigit leaves (local >= '0' && local <= '9') as i32.
func isDigit(local byte) []byte {
	return join(get(local), i64c('0'), op(opI64GeU), get(local), i64c('9'), op(opI64LeU), op(opI32And))
}

// parseLastNumber leaves in local 1 the last run of decimal digits found in
// the input. Locals 0, 2, 3 are scratch.
func parseLastNumber() []byte {
	loadPrev := join(get(0), i64c(1), op(opI64Sub), tee(0), call(fnLoadU8), op(opI64ExtI32U), tee(3), op(opDrop))
	return join(
		call(fnInputSize), set(0),
		i64c(0), set(1),
		i64c(1), set(2),
		op(opBlock, blockVoid, opLoop, blockVoid),
		loadPrev,
		isDigit(3), op(opBrIf, 1),
		op(opBr, 0),
		op(opEnd, opEnd),
		op(opBlock, blockVoid, opLoop, blockVoid),
		get(1), get(3), i64c('0'), op(opI64Sub), get(2), op(opI64Mul), op(opI64Add), set(1),
		get(2), i64c(10), op(opI64Mul), set(2),
		get(0), op(opI64Eqz), op(opBrIf, 1),
		loadPrev,
		isDigit(3), op(opBrIf, 0),
		op(opEnd, opEnd),
	)
}

// outputNumber sets the output to prefix + decimal(local 1) + suffix.
// Locals 0, 2, 3, 4 are scratch.
func outputNumber(prefix, suffix string) []byte {
	fixed := int64(len(prefix) + len(suffix))
	code := join(
		// local 2 = number of digits
		i64c(1), set(2),
		get(1), set(3),
		op(opBlock, blockVoid, opLoop, blockVoid),
		get(3), i64c(10), op(opI64LtU), op(opBrIf, 1),
		get(3), i64c(10), op(opI64DivU), set(3),
		get(2), i64c(1), op(opI64Add), set(2),
		op(opBr, 0),
		op(opEnd, opEnd),
		// local 0 = region
		i64c(fixed), get(2), op(opI64Add), call(fnAlloc), set(0),
	)
	for i, b := range []byte(prefix) {
		code = join(code, get(0), i64c(int64(i)), op(opI64Add), i32c(int32(b)), call(fnStoreU8))
	}
	code = join(code,
		// digits right to left
		get(0), i64c(int64(len(prefix))-1), op(opI64Add), get(2), op(opI64Add), set(4),
		get(1), set(3),
		op(opBlock, blockVoid, opLoop, blockVoid),
		get(4), get(3), i64c(10), op(opI64RemU), i64c('0'), op(opI64Add), op(opI32WrapI64), call(fnStoreU8),
		get(3), i64c(10), op(opI64DivU), tee(3), op(opI64Eqz), op(opBrIf, 1),
		get(4), i64c(1), op(opI64Sub), set(4),
		op(opBr, 0),
		op(opEnd, opEnd),
		get(0), i64c(int64(len(prefix))), op(opI64Add), get(2), op(opI64Add), set(4),
	)
	for i, b := range []byte(suffix) {
		code = join(code, get(4), i64c(int64(i)), op(opI64Add), i32c(int32(b)), call(fnStoreU8))
	}
	return join(code, get(0), i64c(fixed), get(2), op(opI64Add), call(fnSetOutput))
}

type testFunc struct {
	name    string
	typeIdx byte
	body    []byte
}

// moduleBuilder assembles a module importing every host function and
// exporting parameterless functions with six i64 locals each. Exports return
// nothing unless added with exportReturning.
type moduleBuilder struct {
	funcs []testFunc
}

func newModule() *moduleBuilder { return &moduleBuilder{} }

func (m *moduleBuilder) export(fn string, code ...[]byte) *moduleBuilder {
	m.funcs = append(m.funcs, testFunc{name: fn, body: join(code...)})
	return m
}

// exportReturning adds a function of type () -> i64. code must leave the
// i64 result on the stack.
func (m *moduleBuilder) exportReturning(fn string, code ...[]byte) *moduleBuilder {
	m.funcs = append(m.funcs, testFunc{name: fn, typeIdx: 4, body: join(code...)})
	return m
}

func (m *moduleBuilder) bytes() []byte {
	typeSec := vec(
		[]byte{0x60, 0x00, 0x00},
		[]byte{0x60, 0x02, valI64, valI64, 0x00},
		[]byte{0x60, 0x02, valI64, valI32, 0x00},
		[]byte{0x60, 0x01, valI64, 0x01, valI32},
		[]byte{0x60, 0x00, 0x01, valI64},
		[]byte{0x60, 0x01, valI64, 0x01, valI64},
		[]byte{0x60, 0x02, valI64, valI64, 0x01, valI64},
	)
	imp := func(field string, typeIdx byte) []byte {
		return join(name(HostNamespace), name(field), []byte{0x00, typeIdx})
	}
	importSec := vec(
		imp("log", 1),
		imp("store_u8", 2),
		imp("load_u8", 3),
		imp("input_size", 4),
		imp("alloc", 5),
		imp("set_output", 1),
		imp("set_error", 1),
		imp("jsonrpc", 6),
	)

	var funcTypes, exports, bodies [][]byte
	for i, f := range m.funcs {
		funcTypes = append(funcTypes, []byte{f.typeIdx})
		exports = append(exports, join(name(f.name), []byte{0x00}, uleb(uint64(numImports)+uint64(i))))
		body := join([]byte{0x01, 0x06, valI64}, f.body, []byte{opEnd})
		bodies = append(bodies, join(uleb(uint64(len(body))), body))
	}

	return join(
		[]byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00},
		section(1, typeSec),
		section(2, importSec),
		section(3, vec(funcTypes...)),
		section(7, vec(exports...)),
		section(10, vec(bodies...)),
	)
}

// Ready-made modules shared by the tests.

func counterModule() []byte {
	return newModule().
		export(OnInit, emit(fnSetOutput, `{"state":{"counter":0}}`)).
		export("increment", parseLastNumber(), get(1), i64c(1), op(opI64Add), set(1), outputNumber(`{"state":{"counter":`, `}}`)).
		export("dump", i64c(0), call(fnInputSize), call(fnLog)).
		bytes()
}

func echoModule() []byte {
	return newModule().
		export("echo", i64c(0), call(fnInputSize), call(fnSetOutput)).
		export("dump", i64c(0), call(fnInputSize), call(fnLog)).
		export("answer", emit(fnSetOutput, `{"answer":42}`)).
		export("empty").
		bytes()
}

// captureHandler records the messages logged at Info and above.
type captureHandler struct {
	mu       *sync.Mutex
	messages *[]string
}

func newCapture() (*slog.Logger, func() []string) {
	h := captureHandler{mu: &sync.Mutex{}, messages: &[]string{}}
	return slog.New(h), func() []string {
		h.mu.Lock()
		defer h.mu.Unlock()
		return append([]string(nil), *h.messages...)
	}
}

func (h captureHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (h captureHandler) Handle(_ context.Context, r slog.Record) error {
	h.mu.Lock()
	*h.messages = append(*h.messages, r.Message)
	h.mu.Unlock()
	return nil
}

func (h captureHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h captureHandler) WithGroup(string) slog.Handler      { return h }
