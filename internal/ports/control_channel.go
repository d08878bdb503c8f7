package ports

import (
	"context"
	"io"

	"github.com/bnema/oabot/internal/domain"
)

// ControlChannel is the out-of-band command stream. Ensure creates it when
// absent; Open returns a reader that yields newline-delimited commands until
// end-of-stream or until ctx is cancelled.
type ControlChannel interface {
	Path() string
	Ensure() error
	Open(ctx context.Context) (io.ReadCloser, error)
}

type Vocabulary interface {
	Lookup(word string) (domain.ControlCommand, bool)
}
