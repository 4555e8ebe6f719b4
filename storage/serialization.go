// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/persimmon/core"
)

// documentFormat is the leading byte of every encoded document.
const documentFormat byte = 1

// MarshalAttributes serializes a document body to bytes.
func MarshalAttributes(attrs core.Attributes) []byte {
	buf := make([]byte, 1+sizeAttributes(attrs))
	buf[0] = documentFormat
	marshalAttributes(attrs, buf[1:])
	return buf
}

// UnmarshalAttributes deserializes a document body from bytes.
func UnmarshalAttributes(data []byte) (core.Attributes, error) {
	if len(data) == 0 {
		return core.Attributes{}, fmt.Errorf("%w: %w: empty document", ErrSerializationFailed, ErrTruncatedData)
	}
	if data[0] != documentFormat {
		return core.Attributes{}, fmt.Errorf("%w: unknown document format %d", ErrSerializationFailed, data[0])
	}
	d := decoder{bs: data[1:]}
	attrs, err := d.attributes()
	if err != nil {
		return core.Attributes{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return attrs, nil
}

// MarshalValue serializes a single value to bytes.
func MarshalValue(v core.Value) []byte {
	buf := make([]byte, sizeValue(v))
	marshalValue(v, buf)
	return buf
}

// UnmarshalValue deserializes a single value from bytes.
func UnmarshalValue(data []byte) (core.Value, error) {
	d := decoder{bs: data}
	v, err := d.value()
	if err != nil {
		return core.Value{}, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return v, nil
}

func sizeAttributes(a core.Attributes) int {
	size := varint.Uint64.Size(uint64(a.Len()))
	for _, k := range a.Keys() {
		size += ord.String.Size(k) + sizeValue(a.Value(k))
	}
	return size
}

func sizeValue(v core.Value) int {
	size := 1
	switch v.Kind() {
	case core.KindBool:
		size += ord.Bool.Size(v.Bool())
	case core.KindInt:
		size += varint.Int64.Size(v.Int())
	case core.KindFloat:
		size += varint.Uint64.Size(math.Float64bits(v.Float()))
	case core.KindString:
		size += ord.String.Size(v.Str())
	case core.KindTime:
		size += varint.Int64.Size(v.Time().UnixMilli())
	case core.KindList:
		items := v.List()
		size += varint.Uint64.Size(uint64(len(items)))
		for _, item := range items {
			size += sizeValue(item)
		}
	case core.KindMap:
		size += sizeAttributes(v.Map())
	}
	return size
}

func marshalAttributes(a core.Attributes, bs []byte) (n int) {
	n = varint.Uint64.Marshal(uint64(a.Len()), bs)
	for _, k := range a.Keys() {
		n += ord.String.Marshal(k, bs[n:])
		n += marshalValue(a.Value(k), bs[n:])
	}
	return n
}

func marshalValue(v core.Value, bs []byte) (n int) {
	bs[0] = byte(v.Kind())
	n = 1
	switch v.Kind() {
	case core.KindBool:
		n += ord.Bool.Marshal(v.Bool(), bs[n:])
	case core.KindInt:
		n += varint.Int64.Marshal(v.Int(), bs[n:])
	case core.KindFloat:
		n += varint.Uint64.Marshal(math.Float64bits(v.Float()), bs[n:])
	case core.KindString:
		n += ord.String.Marshal(v.Str(), bs[n:])
	case core.KindTime:
		n += varint.Int64.Marshal(v.Time().UnixMilli(), bs[n:])
	case core.KindList:
		items := v.List()
		n += varint.Uint64.Marshal(uint64(len(items)), bs[n:])
		for _, item := range items {
			n += marshalValue(item, bs[n:])
		}
	case core.KindMap:
		n += marshalAttributes(v.Map(), bs[n:])
	}
	return n
}

type decoder struct {
	bs  []byte
	pos int
}

func (d *decoder) remaining() []byte { return d.bs[d.pos:] }

// count reads a length prefix. Every entry takes at least one byte, so a
// count larger than the remaining input means the data was cut short.
func (d *decoder) count() (int, error) {
	c, n, err := varint.Uint64.Unmarshal(d.remaining())
	if err != nil {
		return 0, err
	}
	d.pos += n
	if c > uint64(len(d.remaining())) {
		return 0, ErrTruncatedData
	}
	return int(c), nil
}

func (d *decoder) attributes() (core.Attributes, error) {
	var attrs core.Attributes
	c, err := d.count()
	if err != nil {
		return attrs, err
	}
	for range c {
		k, n, err := ord.String.Unmarshal(d.remaining())
		if err != nil {
			return attrs, err
		}
		d.pos += n
		v, err := d.value()
		if err != nil {
			return attrs, err
		}
		attrs.Set(k, v)
	}
	return attrs, nil
}

func (d *decoder) value() (core.Value, error) {
	if d.pos >= len(d.bs) {
		return core.Value{}, ErrTruncatedData
	}
	kind := core.Kind(d.bs[d.pos])
	d.pos++
	switch kind {
	case core.KindNull:
		return core.Null(), nil
	case core.KindBool:
		b, n, err := ord.Bool.Unmarshal(d.remaining())
		d.pos += n
		return core.Bool(b), err
	case core.KindInt:
		i, n, err := varint.Int64.Unmarshal(d.remaining())
		d.pos += n
		return core.Int(i), err
	case core.KindFloat:
		u, n, err := varint.Uint64.Unmarshal(d.remaining())
		d.pos += n
		return core.Float(math.Float64frombits(u)), err
	case core.KindString:
		s, n, err := ord.String.Unmarshal(d.remaining())
		d.pos += n
		return core.String(s), err
	case core.KindTime:
		ms, n, err := varint.Int64.Unmarshal(d.remaining())
		d.pos += n
		return core.Time(time.UnixMilli(ms)), err
	case core.KindList:
		c, err := d.count()
		if err != nil {
			return core.Value{}, err
		}
		items := make([]core.Value, c)
		for i := range items {
			if items[i], err = d.value(); err != nil {
				return core.Value{}, err
			}
		}
		return core.List(items...), nil
	case core.KindMap:
		attrs, err := d.attributes()
		if err != nil {
			return core.Value{}, err
		}
		return core.Map(attrs), nil
	}
	return core.Value{}, fmt.Errorf("unknown value kind %d", kind)
}
