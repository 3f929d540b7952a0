package bag

import "errors"

var (
	// ErrInvalidKey is returned when an item with the zero key is put.
	ErrInvalidKey = errors.New("bag: invalid key")

	// ErrNilItem is returned when a nil item is put.
	ErrNilItem = errors.New("bag: nil item")

	// ErrInvalidLevels is returned when a bag is built with fewer than one level.
	ErrInvalidLevels = errors.New("bag: levels must be at least 1")

	// ErrInvalidCapacity is returned when a bag is built with a non-positive
	// capacity, or a cache with a negative one.
	ErrInvalidCapacity = errors.New("bag: invalid capacity")
)
