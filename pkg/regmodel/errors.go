package regmodel

import "errors"

// Fatal extraction errors. Any of these aborts a generation run.
var (
	// ErrInvalidRegisterWidth indicates a register width outside {8,16,32,64}.
	ErrInvalidRegisterWidth = errors.New("invalid register width")
	// ErrUnsupportedMultipleAddressSets indicates a memory region with more than one address set.
	ErrUnsupportedMultipleAddressSets = errors.New("cannot handle multiple address sets in one region")
	// ErrConflictingDuplicate indicates two definitions sharing an identity key but differing in value.
	ErrConflictingDuplicate = errors.New("conflicting duplicate definition")
	// ErrUnknownSymbol indicates an indirect value naming an undeclared schema property.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrMissingProperty indicates a required property is absent or has the wrong shape.
	ErrMissingProperty = errors.New("missing required property")
)
