// Package codec implements the wire payload serialization used for every
// WORK/OK/ERROR frame: a msgpack encoding with a pluggable extension-type
// table, so application values that msgpack cannot represent natively
// (time.Time being the one every deployment needs) round-trip losslessly.
package codec

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"sync"

	"github.com/pkg/errors"
	"github.com/vmihailenco/msgpack/v5"
	"github.com/vmihailenco/msgpack/v5/msgpcode"
)

// UnknownTypeError is returned by Unmarshal when an inbound ext code
// has no registered handler. Marshal does not return it: a value msgpack
// cannot represent (a channel, a function, ...) fails with msgpack's own
// error, wrapped with "codec: marshal".
type UnknownTypeError struct {
	TypeName string
	ExtCode  int8
}

func (e *UnknownTypeError) Error() string {
	if e.TypeName != "" {
		return fmt.Sprintf("codec: no encoding for type %s", e.TypeName)
	}
	return fmt.Sprintf("codec: no handler registered for ext code %d", e.ExtCode)
}

// ExtCodec encodes and decodes one Go type as a msgpack extension under
// a fixed code. Encode/Decode must be safe for concurrent use.
type ExtCodec interface {
	// Code is the ext type this codec claims. Codes 0-127 are
	// first-come; negative codes are reserved by the msgpack spec for
	// future built-in types.
	Code() int8
	// Type is the concrete Go type this codec handles.
	Type() reflect.Type
	Encode(v interface{}) ([]byte, error)
	// Decode returns a value of Type, populated from data.
	Decode(data []byte) (interface{}, error)
}

// Packer wraps msgpack.Marshal/Unmarshal with a translation table of
// ExtCodec entries, mirroring the original implementation's
// translation_table: every registered Go type is transparently wrapped
// in a msgpack ext on the way out, and unwrapped on the way in. A
// sync.Map remembers which concrete types have already been resolved
// to a codec so repeated Marshal calls with the same type skip the
// table lookup under the read lock.
//
// The zero value is not usable; use NewPacker.
type Packer struct {
	mu     sync.RWMutex
	byType map[reflect.Type]ExtCodec
	byCode map[int8]ExtCodec

	resolved sync.Map // reflect.Type -> ExtCodec
}

// NewPacker returns a Packer pre-seeded with the default datetime
// extension codec, at code 123 to match the original implementation's
// translation table start. Additional codecs can be added with
// RegisterExtType.
func NewPacker() *Packer {
	p := &Packer{
		byType: make(map[reflect.Type]ExtCodec),
		byCode: make(map[int8]ExtCodec),
	}
	if err := p.RegisterExtType(&timeCodec{}); err != nil {
		panic(err)
	}
	return p
}

// RegisterExtType adds an extension codec to the table. It returns an
// error if the code is already claimed by a different type, matching
// the original implementation's register_ext_handler duplicate check.
func (p *Packer) RegisterExtType(c ExtCodec) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if existing, ok := p.byCode[c.Code()]; ok && existing.Type() != c.Type() {
		return errors.Errorf("codec: ext code %d already registered for type %s", c.Code(), existing.Type())
	}
	p.byCode[c.Code()] = c
	p.byType[c.Type()] = c
	p.resolved.Delete(c.Type())
	return nil
}

func (p *Packer) codecForType(t reflect.Type) (ExtCodec, bool) {
	if v, ok := p.resolved.Load(t); ok {
		c, ok := v.(ExtCodec)
		return c, ok
	}
	p.mu.RLock()
	c, ok := p.byType[t]
	p.mu.RUnlock()
	if ok {
		p.resolved.Store(t, c)
	}
	return c, ok
}

// Marshal encodes v to msgpack bytes, routing through any registered
// extension codec whose Type matches v's concrete type.
func (p *Packer) Marshal(v interface{}) ([]byte, error) {
	if v == nil {
		return msgpack.Marshal(nil)
	}

	t := reflect.TypeOf(v)
	if codec, ok := p.codecForType(t); ok {
		inner, err := codec.Encode(v)
		if err != nil {
			return nil, errors.Wrapf(err, "codec: encoding ext type %s", t)
		}
		var buf bytes.Buffer
		enc := msgpack.NewEncoder(&buf)
		if err := enc.EncodeExtHeader(codec.Code(), len(inner)); err != nil {
			return nil, errors.Wrap(err, "codec: writing ext header")
		}
		buf.Write(inner)
		return buf.Bytes(), nil
	}

	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "codec: marshal")
	}
	return b, nil
}

// Unmarshal decodes msgpack bytes into v, reversing any extension
// encoding via the registered ExtCodec table. If data is a msgpack ext
// whose code is unregistered, it returns *UnknownTypeError.
func (p *Packer) Unmarshal(data []byte, v interface{}) error {
	if len(data) == 0 {
		return nil
	}
	if msgpcode.IsExt(data[0]) {
		dec := msgpack.NewDecoder(bytes.NewReader(data))
		code, length, err := dec.DecodeExtHeader()
		if err != nil {
			return errors.Wrap(err, "codec: reading ext header")
		}
		p.mu.RLock()
		codec, ok := p.byCode[code]
		p.mu.RUnlock()
		if !ok {
			return &UnknownTypeError{ExtCode: code}
		}
		payload := make([]byte, length)
		if _, err := io.ReadFull(dec.Buffered(), payload); err != nil {
			return errors.Wrap(err, "codec: reading ext payload")
		}
		decoded, err := codec.Decode(payload)
		if err != nil {
			return errors.Wrapf(err, "codec: decoding ext type %s", codec.Type())
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() != reflect.Ptr {
			return errors.New("codec: Unmarshal destination must be a pointer")
		}
		rv.Elem().Set(reflect.ValueOf(decoded))
		return nil
	}

	if err := msgpack.Unmarshal(data, v); err != nil {
		return errors.Wrap(err, "codec: unmarshal")
	}
	return nil
}
