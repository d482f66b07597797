package hooks

import "errors"

// ErrEngineClosed is returned when operating on a closed engine.
var ErrEngineClosed = errors.New("hooks engine is closed")
