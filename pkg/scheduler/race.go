package scheduler

import "context"

// Either holds the winner of a Race. Exactly one of Left and Right is set,
// as reported by IsLeft.
type Either[A, B any] struct {
	left   A
	right  B
	isLeft bool
	ok     bool
}

// IsLeft reports whether the first channel won.
func (e Either[A, B]) IsLeft() bool { return e.isLeft }

// Left returns the value received from the first channel.
func (e Either[A, B]) Left() A { return e.left }

// Right returns the value received from the second channel.
func (e Either[A, B]) Right() B { return e.right }

// Open reports whether the winning receive got a value. It is false when the
// winning channel was closed.
func (e Either[A, B]) Open() bool { return e.ok }

// Race receives from whichever of a and b is ready first. Only the winning
// branch is received; a value waiting on the other channel stays there.
// When both are ready the winner is chosen at random, so neither side is
// starved. A nil channel never wins.
//
// Race returns ctx.Err() if ctx is done first.
func Race[A, B any](ctx context.Context, a <-chan A, b <-chan B) (Either[A, B], error) {
	var e Either[A, B]
	select {
	case v, ok := <-a:
		e.left, e.isLeft, e.ok = v, true, ok
	case v, ok := <-b:
		e.right, e.ok = v, ok
	case <-ctx.Done():
		return e, ctx.Err()
	}
	return e, nil
}
