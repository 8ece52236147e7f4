package blog

import "errors"

var (
	ErrNotFound         = errors.New("record not found")
	ErrRemote           = errors.New("remote call failed")
	ErrUnknownKind      = errors.New("unknown entity type")
	ErrUnknownOperation = errors.New("unknown operation kind")
	ErrPlaceholder      = errors.New("unresolved placeholder id")
	ErrInvalidResponse  = errors.New("invalid remote response")
	ErrInitialSync      = errors.New("initial sync failed")
)
