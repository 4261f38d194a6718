package models

// SourceKind tells where a cached collection came from.
type SourceKind int

const (
	SourceRemote SourceKind = iota
	SourceFallback
)

func (k SourceKind) String() string {
	switch k {
	case SourceRemote:
		return "remote"
	case SourceFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// DataSource is either Remote(items), mirrored from the API, or
// Fallback(items), the bundled dataset used while the API is out of reach.
// The zero value is an empty Remote source.
type DataSource[T any] struct {
	kind  SourceKind
	items []T
}

func Remote[T any](items []T) DataSource[T] {
	return DataSource[T]{kind: SourceRemote, items: items}
}

func Fallback[T any](items []T) DataSource[T] {
	return DataSource[T]{kind: SourceFallback, items: items}
}

func (d DataSource[T]) Kind() SourceKind { return d.kind }
func (d DataSource[T]) IsRemote() bool   { return d.kind == SourceRemote }
func (d DataSource[T]) Len() int         { return len(d.items) }

// Items returns a copy; callers may not alias the cached slice.
func (d DataSource[T]) Items() []T {
	out := make([]T, len(d.items))
	copy(out, d.items)
	return out
}
