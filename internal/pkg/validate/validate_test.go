package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type sample struct {
	DeviceToken string `json:"device_token" validate:"required"`
	Permission  string `json:"permission,omitempty" validate:"oneof=granted denied"`
}

func TestStruct_ReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Permission: "maybe"})
	assert.EqualError(t, err, "field 'device_token' failed 'required'; field 'permission' failed 'oneof'")
}

func TestStruct_Valid(t *testing.T) {
	assert.NoError(t, Struct(sample{DeviceToken: "x", Permission: "granted"}))
}
