package utilities

import "encoding/json"

// Serializable is anything that can be put on a queue.
type Serializable interface {
	Serialize() ([]byte, error)
}

// Serialize is the JSON encoding shared by the queue DTOs.
func Serialize[T any](content T) ([]byte, error) {
	return json.Marshal(content)
}

func Map[T, U any](items []T, fn func(T) U) []U {
	out := make([]U, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

func Ternary[T any](cond bool, whenTrue, whenFalse T) T {
	if cond {
		return whenTrue
	}
	return whenFalse
}
