package loader

import "errors"

var (
	ErrNoRoot       = errors.New("loader: config has no root")
	ErrUnknownNode  = errors.New("loader: unknown node")
	ErrUnknownType  = errors.New("loader: unsupported node type")
	ErrCycle        = errors.New("loader: node cycle")
	ErrShapeChanged = errors.New("loader: tree shape changed")
	ErrBadParam     = errors.New("loader: bad parameter")
)
