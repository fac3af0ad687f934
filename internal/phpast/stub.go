//go:build !cgo

package phpast

import (
	"context"
	"errors"
)

// ErrNoCGO is returned when structural parsing is unavailable due to missing CGO.
var ErrNoCGO = errors.New("structural parsing requires CGO (tree-sitter)")

// Parser is a stub for non-CGO builds. Analysis falls back to textual
// detection only.
type Parser struct{}

// NewParser returns a stub parser.
func NewParser() *Parser {
	return &Parser{}
}

// IsAvailable returns false when CGO is disabled.
func IsAvailable() bool {
	return false
}

// Parse always fails with ErrNoCGO.
func (p *Parser) Parse(ctx context.Context, source []byte) (*Node, error) {
	return nil, ErrNoCGO
}
