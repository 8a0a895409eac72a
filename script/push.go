// Package script builds and classifies Bitcoin locking scripts.
package script

import (
	"encoding/binary"
	"fmt"

	bscript "github.com/bsv-blockchain/go-sdk/script"
)

// Opcodes used by the standard templates.
const (
	Op0             = bscript.Op0
	OpPUSHDATA1     = bscript.OpPUSHDATA1
	OpPUSHDATA2     = bscript.OpPUSHDATA2
	OpPUSHDATA4     = bscript.OpPUSHDATA4
	Op1             = bscript.Op1
	Op16            = bscript.Op16
	OpRETURN        = bscript.OpRETURN
	OpDUP           = bscript.OpDUP
	OpEQUAL         = bscript.OpEQUAL
	OpEQUALVERIFY   = bscript.OpEQUALVERIFY
	OpHASH160       = bscript.OpHASH160
	OpCHECKSIG      = bscript.OpCHECKSIG
	OpCHECKMULTISIG = bscript.OpCHECKMULTISIG
	OpDATA20        = bscript.OpDATA20
	OpDATA32        = bscript.OpDATA32
)

// maxDirectPush is the largest push encoded by its length byte alone.
const maxDirectPush = 75

// opReserved sits between OP_1NEGATE and OP_1 and is not a push.
const opReserved = 0x50

// MaxScriptSize is the consensus limit above which a script can never be spent.
const MaxScriptSize = 10_000

// PushData returns the minimal-prefix push of data: a direct length byte up
// to 75 bytes, then OP_PUSHDATA1, OP_PUSHDATA2 and OP_PUSHDATA4 with
// little-endian lengths.
func PushData(data []byte) []byte {
	n := len(data)
	var out []byte
	switch {
	case n <= maxDirectPush:
		out = make([]byte, 0, 1+n)
		out = append(out, byte(n))
	case n <= 0xff:
		out = make([]byte, 0, 2+n)
		out = append(out, OpPUSHDATA1, byte(n))
	case n <= 0xffff:
		out = make([]byte, 3, 3+n)
		out[0] = OpPUSHDATA2
		binary.LittleEndian.PutUint16(out[1:], uint16(n))
	default:
		out = make([]byte, 5, 5+n)
		out[0] = OpPUSHDATA4
		binary.LittleEndian.PutUint32(out[1:], uint32(n))
	}
	return append(out, data...)
}

// SmallIntOp returns the opcode pushing n for 0 <= n <= 16.
func SmallIntOp(n int) (byte, error) {
	switch {
	case n == 0:
		return Op0, nil
	case n >= 1 && n <= 16:
		return byte(int(Op1) + n - 1), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrInvalidSmallInt, n)
	}
}

// SmallIntValue is the inverse of SmallIntOp.
func SmallIntValue(op byte) (int, bool) {
	switch {
	case op == Op0:
		return 0, true
	case op >= Op1 && op <= Op16:
		return int(op-Op1) + 1, true
	default:
		return 0, false
	}
}

// Builder accumulates a script. The first error sticks and is returned by Script.
type Builder struct {
	script []byte
	err    error
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddOp appends a raw opcode.
func (b *Builder) AddOp(op byte) *Builder {
	if b.err == nil {
		b.script = append(b.script, op)
	}
	return b
}

// AddData appends a data push.
func (b *Builder) AddData(data []byte) *Builder {
	if b.err == nil {
		b.script = append(b.script, PushData(data)...)
	}
	return b
}

// AddSmallInt appends OP_0 .. OP_16.
func (b *Builder) AddSmallInt(n int) *Builder {
	if b.err != nil {
		return b
	}
	op, err := SmallIntOp(n)
	if err != nil {
		b.err = err
		return b
	}
	b.script = append(b.script, op)
	return b
}

// Script returns the accumulated bytes or the first error.
func (b *Builder) Script() ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	return b.script, nil
}

// Op is one parsed script element. Data is set for pushes only.
type Op struct {
	Code byte
	Data []byte
}

// IsPush reports whether the element pushes data or a small integer.
func (o Op) IsPush() bool {
	return o.Code <= Op16 && o.Code != opReserved
}

// Parse splits a script into opcodes and pushes.
func Parse(s []byte) ([]Op, error) {
	var ops []Op
	for i := 0; i < len(s); {
		code := s[i]
		i++

		var n int
		switch {
		case code >= 0x01 && code <= maxDirectPush:
			n = int(code)
		case code == OpPUSHDATA1:
			if i+1 > len(s) {
				return nil, fmt.Errorf("%w: truncated OP_PUSHDATA1 length", ErrMalformedScript)
			}
			n = int(s[i])
			i++
		case code == OpPUSHDATA2:
			if i+2 > len(s) {
				return nil, fmt.Errorf("%w: truncated OP_PUSHDATA2 length", ErrMalformedScript)
			}
			n = int(binary.LittleEndian.Uint16(s[i:]))
			i += 2
		case code == OpPUSHDATA4:
			if i+4 > len(s) {
				return nil, fmt.Errorf("%w: truncated OP_PUSHDATA4 length", ErrMalformedScript)
			}
			n = int(binary.LittleEndian.Uint32(s[i:]))
			i += 4
		default:
			ops = append(ops, Op{Code: code})
			continue
		}

		if n < 0 || n > len(s)-i {
			return nil, fmt.Errorf("%w: push of %d bytes at offset %d overruns script", ErrMalformedScript, n, i)
		}
		ops = append(ops, Op{Code: code, Data: s[i : i+n]})
		i += n
	}
	return ops, nil
}
