package cbor

import (
	"bytes"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
	"sync"
)

// ReflectEncoder writes values of named types, typed slices, arrays, maps,
// pointers and structs by reflection. Nested values go through the encode
// handler chain again.
//
// Struct fields are encoded as a map keyed by field name. The "cbor" struct
// tag can rename a field, and takes the options "omitempty" and "keyasint"
// (use the integer name as the key). A blank field "_" tagged with
// ",toarray" encodes the struct as an array of its field values.
type ReflectEncoder struct{}

func (ReflectEncoder) Match(v any) bool {
	if v == nil {
		return false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Chan, reflect.Func, reflect.Complex64, reflect.Complex128, reflect.UnsafePointer:
		return false
	}
	return true
}

func (ReflectEncoder) Encode(e *Encoder, v any) error {
	rv := reflect.ValueOf(v)
	return typeEncoder(rv.Type())(e, rv)
}

type encoderFunc func(e *Encoder, v reflect.Value) error

var encoderCache sync.Map // map[reflect.Type]encoderFunc

func typeEncoder(t reflect.Type) encoderFunc {
	if fi, ok := encoderCache.Load(t); ok {
		return fi.(encoderFunc)
	}

	// To deal with recursive types, populate the map with an
	// indirect func before we build it. This type waits on the
	// real func (f) to be ready and then calls it. This indirect
	// func is only used for recursive types.
	var (
		wg sync.WaitGroup
		f  encoderFunc
	)
	wg.Add(1)
	fi, loaded := encoderCache.LoadOrStore(t, encoderFunc(func(e *Encoder, v reflect.Value) error {
		wg.Wait()
		return f(e, v)
	}))
	if loaded {
		return fi.(encoderFunc)
	}

	// Compute the real encoder and replace the indirect func with it.
	f = newTypeEncoder(t)
	wg.Done()
	encoderCache.Store(t, f)
	return f
}

func newTypeEncoder(t reflect.Type) encoderFunc {
	switch t.Kind() {
	case reflect.Bool:
		return boolEncoder
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return intEncoder
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return uintEncoder
	case reflect.Float32, reflect.Float64:
		return floatEncoder
	case reflect.String:
		return stringEncoder
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return bytesEncoder
		}
		return sliceEncoder
	case reflect.Array:
		return sliceEncoder
	case reflect.Map:
		return mapEncoder
	case reflect.Pointer, reflect.Interface:
		return indirectEncoder
	case reflect.Struct:
		return structEncoder
	}
	return unsupportedTypeEncoder
}

func boolEncoder(e *Encoder, v reflect.Value) error {
	e.writeBool(v.Bool())
	return nil
}

func intEncoder(e *Encoder, v reflect.Value) error {
	e.writeInt(v.Int())
	return nil
}

func uintEncoder(e *Encoder, v reflect.Value) error {
	e.WriteArgument(MajorTypePositiveInt, v.Uint())
	return nil
}

func floatEncoder(e *Encoder, v reflect.Value) error {
	e.WriteFloat64(v.Float())
	return nil
}

func stringEncoder(e *Encoder, v reflect.Value) error {
	e.writeString(v.String())
	return nil
}

func bytesEncoder(e *Encoder, v reflect.Value) error {
	e.writeBytes(v.Bytes())
	return nil
}

func unsupportedTypeEncoder(e *Encoder, v reflect.Value) error {
	return &UnsupportedValueError{Type: v.Type()}
}

func sliceEncoder(e *Encoder, v reflect.Value) error {
	l := v.Len()
	e.WriteArgument(MajorTypeArray, uint64(l))
	for i := 0; i < l; i++ {
		if err := e.WriteValue(v.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

type mapKey struct {
	key     reflect.Value
	encoded []byte
}

func cmpMapKey(a, b mapKey) int {
	return bytes.Compare(a.encoded, b.encoded)
}

func mapEncoder(e *Encoder, v reflect.Value) error {
	keys := make([]mapKey, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		encoded, err := e.marshal(iter.Key().Interface())
		if err != nil {
			return err
		}
		keys = append(keys, mapKey{iter.Key(), encoded})
	}
	slices.SortFunc(keys, cmpMapKey)

	e.WriteArgument(MajorTypeMap, uint64(len(keys)))
	for _, key := range keys {
		e.WriteRaw(key.encoded)
		if err := e.WriteValue(v.MapIndex(key.key).Interface()); err != nil {
			return err
		}
	}
	return nil
}

func indirectEncoder(e *Encoder, v reflect.Value) error {
	if v.IsNil() {
		e.writeByte(sigilNull)
		return nil
	}
	return e.WriteValue(v.Elem().Interface())
}

func structEncoder(e *Encoder, v reflect.Value) error {
	st, err := cachedStructType(v.Type())
	if err != nil {
		return err
	}

	if st.toArray {
		e.WriteArgument(MajorTypeArray, uint64(len(st.fields)))
		for _, f := range st.fields {
			if err := e.WriteValue(v.FieldByIndex(f.index).Interface()); err != nil {
				return err
			}
		}
		return nil
	}

	fields := make([]reflect.Value, len(st.fields))
	var n int
	for i, f := range st.fields {
		fv := v.FieldByIndex(f.index)
		if f.omitempty && isEmptyValue(fv) {
			continue
		}
		fields[i] = fv
		n++
	}
	e.WriteArgument(MajorTypeMap, uint64(n))
	for i, f := range st.fields {
		if !fields[i].IsValid() {
			continue
		}
		e.WriteRaw(f.encodedKey)
		if err := e.WriteValue(fields[i].Interface()); err != nil {
			return err
		}
	}
	return nil
}

func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64,
		reflect.Interface, reflect.Pointer:
		return v.IsZero()
	}
	return false
}

var structTypeCache sync.Map // map[reflect.Type]*structType

func cachedStructType(t reflect.Type) (*structType, error) {
	if st, ok := structTypeCache.Load(t); ok {
		return st.(*structType), nil
	}
	st, err := newStructType(t)
	if err != nil {
		return nil, err
	}
	structTypeCache.Store(t, st)
	return st, nil
}

type structType struct {
	toArray bool
	fields  []field
}

type field struct {
	encodedKey []byte
	omitempty  bool
	index      []int
}

func newStructType(t reflect.Type) (*structType, error) {
	var toArray bool
	fields := []field{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("cbor")
		if tag == "-" {
			continue
		}

		// parse tag
		var omitempty bool
		var keyasint bool
		name, tag, _ := strings.Cut(tag, ",")
		for tag != "" {
			var opt string
			opt, tag, _ = strings.Cut(tag, ",")
			switch opt {
			case "omitempty":
				omitempty = true
			case "keyasint":
				keyasint = true
			case "toarray":
				if f.Name == "_" {
					toArray = true
				}
			}
		}

		if !f.IsExported() {
			continue
		}

		var encodedKey []byte
		if keyasint {
			key, err := strconv.ParseInt(name, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("cbor: invalid keyasint field %s.%s: %w", t, f.Name, err)
			}
			encodedKey, err = Marshal(key)
			if err != nil {
				return nil, err
			}
		} else {
			if name == "" {
				name = f.Name
			}
			var err error
			encodedKey, err = Marshal(name)
			if err != nil {
				return nil, err
			}
		}

		fields = append(fields, field{
			encodedKey: encodedKey,
			omitempty:  omitempty,
			index:      f.Index,
		})
	}
	return &structType{
		toArray: toArray,
		fields:  fields,
	}, nil
}
