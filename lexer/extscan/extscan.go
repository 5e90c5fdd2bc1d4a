/*
Package extscan is the external-scanner adapter: a thin façade that
invokes grammar-supplied hooks (create/destroy/scan/serialize/deserialize),
either natively or through a wasm store. A grammar brings an external
scanner for tokens its lexing DFA cannot express — indentation, heredocs,
raw string fences — and the engine treats it as an opaque callback with a
serializable state.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>

*/
package extscan

import "github.com/npillmayer/glrts/base"

// LexerFacade is the minimal surface an external scanner needs from the
// engine's positional lexer: lookahead, advance, and position/mark
// bookkeeping.
type LexerFacade interface {
	Lookahead() (byte, bool)
	Advance() bool
	MarkEnd()
	Point() base.Point
	Position() uint32
}

// Result is what a scan call reports: whether it recognized a token, which
// symbol, and the byte offset it ended at. Fatal signals a scanner that
// cannot proceed at all, distinct from "found nothing at this position".
type Result struct {
	Recognized bool
	Symbol     base.TokType
	EndByte    uint32
	Fatal      bool
}

// Scanner is the native external-scanner ABI: Create/Destroy manage an
// opaque per-parser payload, Scan attempts to recognize a token given a
// predicate over the currently valid symbols, and Serialize/Deserialize
// move the payload into/out of a byte buffer carried on the stack version.
// Implementations must not assume the buffer outlives a single scanner
// call.
type Scanner interface {
	Create() interface{}
	Destroy(payload interface{})
	Scan(payload interface{}, lex LexerFacade, validSymbols func(base.TokType) bool) Result
	Serialize(payload interface{}) []byte
	Deserialize(payload interface{}, state []byte)
}

// WasmStore is the interface seam for a wasm-hosted external scanner.
// This module carries no wasm runtime of its own; callers embedding a
// wasm-compiled grammar supply their own store.
type WasmStore interface {
	Instantiate(module []byte) (WasmScanner, error)
}

// WasmScanner mirrors Scanner but calls cross the store boundary, so every
// method can fail.
type WasmScanner interface {
	Create() (payload uint32, err error)
	Destroy(payload uint32) error
	Scan(payload uint32, lex LexerFacade, validSymbols func(base.TokType) bool) (Result, error)
	Serialize(payload uint32) ([]byte, error)
	Deserialize(payload uint32, state []byte) error
}

// Adapter wraps either a native Scanner or a WasmScanner behind one
// interface so the lexing path does not need to know which it has.
type Adapter struct {
	native Scanner
	wasm   WasmScanner

	payload     interface{}
	wasmPayload uint32
}

// NewNativeAdapter wraps a native Scanner.
func NewNativeAdapter(s Scanner) *Adapter {
	a := &Adapter{native: s}
	a.payload = s.Create()
	return a
}

// NewWasmAdapter wraps a wasm-hosted scanner. A Create failure is returned
// here; errors from later wasm calls are not returned: a failed Scan
// reports Recognized=false, mirroring a scanner that found nothing, and
// Deserialize, Serialize and Destroy errors are dropped.
func NewWasmAdapter(s WasmScanner) (*Adapter, error) {
	p, err := s.Create()
	if err != nil {
		return nil, err
	}
	return &Adapter{wasm: s, wasmPayload: p}, nil
}

// Deserialize loads a previously-serialized state into the adapter's
// payload before Scan is invoked.
func (a *Adapter) Deserialize(state []byte) {
	if a.native != nil {
		a.native.Deserialize(a.payload, state)
		return
	}
	_ = a.wasm.Deserialize(a.wasmPayload, state)
}

// Scan invokes the underlying scanner and returns its result plus the
// freshly-serialized state to store alongside the produced token.
func (a *Adapter) Scan(lex LexerFacade, validSymbols func(base.TokType) bool) (Result, []byte) {
	if a.native != nil {
		r := a.native.Scan(a.payload, lex, validSymbols)
		return r, a.native.Serialize(a.payload)
	}
	r, err := a.wasm.Scan(a.wasmPayload, lex, validSymbols)
	if err != nil {
		return Result{}, nil
	}
	state, _ := a.wasm.Serialize(a.wasmPayload)
	return r, state
}

// Destroy releases the adapter's payload through whichever scanner it
// wraps, native or wasm.
func (a *Adapter) Destroy() {
	if a.native != nil {
		a.native.Destroy(a.payload)
	} else if a.wasm != nil {
		_ = a.wasm.Destroy(a.wasmPayload)
	}
}
