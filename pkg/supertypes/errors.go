package supertypes

import (
	"fmt"
)

// InternalError reports a type graph that violates the model's invariants,
// such as a generic type with the wrong number of arguments. There is no
// meaningful partial result, so the finder panics with it; Guard turns it
// back into an error at the boundary of an analysis pass.
type InternalError struct {
	Msg string
}

func (e *InternalError) Error() string {
	return "internal error: " + e.Msg
}

func abortf(format string, args ...any) {
	panic(&InternalError{Msg: fmt.Sprintf(format, args...)})
}

// Guard runs fn, converting an InternalError panic into a returned error.
// Other panics are not recovered.
func Guard(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			ie, ok := r.(*InternalError)
			if !ok {
				panic(r)
			}
			err = ie
		}
	}()
	return fn()
}
