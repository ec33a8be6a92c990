package conversion

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Msgpack returns the converters that store values of type T as MessagePack
// encoded bytes. It suits structured values kept in BLOB or BYTEA columns.
func Msgpack[T any]() (writing, reading *Converter) {
	writing = NewWriting(func(v T) ([]byte, error) {
		return msgpack.Marshal(v)
	})
	reading = NewReading(func(b []byte) (T, error) {
		var v T
		err := msgpack.Unmarshal(b, &v)
		return v, err
	})
	return writing, reading
}
