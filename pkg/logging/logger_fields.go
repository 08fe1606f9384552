package logging

import (
	"fmt"
	"time"
)

// Common field constructors
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

func Uint64(key string, value uint64) Field {
	return Field{Key: key, Value: value}
}

func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

func Duration(key string, value time.Duration) Field {
	return Field{Key: key, Value: value.String()}
}

func Error(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: nil}
	}
	return Field{Key: "error", Value: err.Error()}
}

func Any(key string, value any) Field {
	return Field{Key: key, Value: value}
}

// Domain helpers

func Component(name string) Field {
	return String("component", name)
}

func MapID(id string) Field {
	return String("map_id", id)
}

func LeafKey(key string) Field {
	return String("leaf_key", key)
}

// NodeID accepts any string-kinded id type (graph.NodeID, graph.DeviceKey).
func NodeID[T ~string](id T) Field {
	return String("node_id", string(id))
}

func DeviceKey[T ~string](key T) Field {
	return String("device_key", string(key))
}

// Mode logs a session mode via its String method.
func Mode(m fmt.Stringer) Field {
	return String("mode", m.String())
}

func Generation(gen uint64) Field {
	return Uint64("generation", gen)
}

func Operation(op string) Field {
	return String("operation", op)
}

func Latency(d time.Duration) Field {
	return Duration("latency", d)
}

func Count(n int) Field {
	return Int("count", n)
}
