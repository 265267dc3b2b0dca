package engine

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotPrepared is returned when a match or stats query references a
// folder that has no built index. This is caller misuse, not a runtime
// condition the engine recovers from.
var ErrNotPrepared = errors.New("folder not prepared")

// Kind classifies per-operation failures
type Kind int

const (
	KindUnreadable Kind = iota
	KindUnsupported
	KindTimeout
	KindCacheCorrupt
)

func (k Kind) String() string {
	switch k {
	case KindUnreadable:
		return "unreadable"
	case KindUnsupported:
		return "unsupported"
	case KindTimeout:
		return "timeout"
	case KindCacheCorrupt:
		return "cache-corrupt"
	default:
		return "unknown"
	}
}

// Error carries a failure kind and the path it concerns
type Error struct {
	Kind Kind
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err wraps an Error of the given kind
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func unreadable(path string, err error) *Error {
	return &Error{Kind: KindUnreadable, Path: path, Err: err}
}

func unsupported(path string, err error) *Error {
	return &Error{Kind: KindUnsupported, Path: path, Err: err}
}

func cacheCorrupt(err error) *Error {
	return &Error{Kind: KindCacheCorrupt, Err: err}
}

// wrapCtx maps context cancellation into the timeout kind so callers
// see one taxonomy for interrupted work.
func wrapCtx(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindTimeout, Err: err}
	}
	return err
}
