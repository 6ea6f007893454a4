package runtime

import (
	"fmt"
	"reflect"

	"google.golang.org/protobuf/proto"

	errspkg "github.com/drblury/kafkaflow/internal/runtime/errors"
)

// NewProtoMessage instantiates an empty protobuf message for the provided generic type.
func NewProtoMessage[T proto.Message]() (T, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil || typ.Kind() != reflect.Ptr {
		return zero, errspkg.ErrProtoTypeRequired
	}

	typed, ok := reflect.New(typ.Elem()).Interface().(T)
	if !ok {
		return zero, fmt.Errorf("unexpected prototype type %s", typ)
	}
	return typed, nil
}

// MustProtoMessage instantiates the protobuf message and panics if the type cannot be created.
func MustProtoMessage[T proto.Message]() T {
	msg, err := NewProtoMessage[T]()
	if err != nil {
		panic(err)
	}
	return msg
}
