package ecs

import "github.com/rotisserie/eris"

// Structural errors returned by World operations. Match them with errors.Is;
// the returned errors carry the entity and component involved.
var (
	ErrComponentNotFound         = eris.New("component not found")
	ErrComponentAlreadyExists    = eris.New("component already exists")
	ErrComponentNotRegistered    = eris.New("component type not registered")
	ErrMaxComponentTypesExceeded = eris.New("maximum number of component types exceeded")
	ErrInvalidEntity             = eris.New("invalid entity handle")
	ErrSnapshotFormat            = eris.New("malformed snapshot")
	ErrSnapshotSchema            = eris.New("snapshot written with a different component registry")
)
