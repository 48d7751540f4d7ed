package model

import (
	"strings"

	"github.com/google/uuid"
)

const tempIDPrefix = "tmp-"

// NewTempID returns a client-only identifier for a record that has not been
// acknowledged by the backend yet.
func NewTempID() string {
	return tempIDPrefix + uuid.New().String()
}

func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}
