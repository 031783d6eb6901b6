package values

import (
	"errors"
	"fmt"
)

// ErrPathTraversal is matched by every *PathTraversalError via errors.Is.
var ErrPathTraversal = errors.New("values: path traversal failed")

// PathTraversalError reports a path that could not be followed through a
// values tree. Segment is the segment that failed and Depth its position.
type PathTraversalError struct {
	Path    string
	Segment string
	Depth   int
	Reason  string
}

func (e *PathTraversalError) Error() string {
	if e.Segment == "" {
		return fmt.Sprintf("values: path %q: %s", e.Path, e.Reason)
	}
	return fmt.Sprintf("values: path %q: segment %q (depth %d): %s", e.Path, e.Segment, e.Depth, e.Reason)
}

func (e *PathTraversalError) Is(target error) bool { return target == ErrPathTraversal }

// AsPathTraversal extracts a *PathTraversalError using errors.As.
func AsPathTraversal(err error) (*PathTraversalError, bool) {
	if err == nil {
		return nil, false
	}
	var pe *PathTraversalError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}
