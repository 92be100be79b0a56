package plugin

import "github.com/google/uuid"

// UUIDGenerator hands out instance identities for new bag members.
type UUIDGenerator interface {
	Generate() string
}

// UUIDFunc adapts a function to UUIDGenerator.
type UUIDFunc func() string

func (f UUIDFunc) Generate() string { return f() }

// RandomUUID generates version 4 UUIDs.
var RandomUUID UUIDGenerator = UUIDFunc(uuid.NewString)
