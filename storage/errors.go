package storage

import "github.com/rotisserie/eris"

var (
	ErrEntityDoesNotExist       = eris.New("entity does not exist")
	ErrComponentNotOnEntity     = eris.New("component not on entity")
	ErrComponentAlreadyOnEntity = eris.New("component already on entity")
	ErrComponentNotInTable      = eris.New("component has no column in this table")
	ErrRowOutOfRange            = eris.New("table row out of range")
	ErrTooManyComponentTypes    = eris.New("component id exceeds mask capacity")
)
