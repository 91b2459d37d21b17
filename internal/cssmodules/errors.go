package cssmodules

import "errors"

var (
	// ErrInvalidTemplate indicates a localIdentName the scoper cannot interpolate
	ErrInvalidTemplate = errors.New("invalid local ident template")
	// ErrUnsupportedComposes indicates a composes declaration that cannot be resolved within the file
	ErrUnsupportedComposes = errors.New("unsupported composes declaration")
	// ErrSyntax indicates the stylesheet could not be tokenised
	ErrSyntax = errors.New("css syntax error")
)
