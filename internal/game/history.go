package game

// Bounded keeps at most limit items, evicting from the opposite end of the insert.
type Bounded[T any] struct {
	items []T
	limit int
}

func NewBounded[T any](limit int) *Bounded[T] {
	if limit < 1 {
		limit = 1
	}
	return &Bounded[T]{items: make([]T, 0, limit), limit: limit}
}

// Push appends v, dropping the oldest item when full.
func (b *Bounded[T]) Push(v T) {
	b.items = append(b.items, v)
	if len(b.items) > b.limit {
		b.items = append(b.items[:0], b.items[len(b.items)-b.limit:]...)
	}
}

// PushFront prepends v, dropping the last item when full.
func (b *Bounded[T]) PushFront(v T) {
	b.items = append([]T{v}, b.items...)
	if len(b.items) > b.limit {
		b.items = b.items[:b.limit]
	}
}

// Items returns a copy, safe to hand out.
func (b *Bounded[T]) Items() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

func (b *Bounded[T]) Len() int { return len(b.items) }

func (b *Bounded[T]) Reset() { b.items = b.items[:0] }
