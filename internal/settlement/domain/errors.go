package settlement

import "errors"

var (
	// ErrNilSettlement indicates a nil settlement argument.
	ErrNilSettlement = errors.New("settlement: nil settlement")
	// ErrNoItems indicates a settlement without allocation items.
	ErrNoItems = errors.New("settlement: no items")
)
