package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type signup struct {
	Username string `json:"username" validate:"required,username"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type payment struct {
	Amount string `json:"amount" validate:"required,amount"`
}

func TestStructAcceptsValid(t *testing.T) {
	require.NoError(t, Struct(signup{Username: "ada_l", Email: "ada@example.com", Password: "correct-horse"}))
	require.NoError(t, Struct(payment{Amount: "10.50"}))
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(signup{Username: "a!", Email: "nope", Password: "short"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username must be 3-30")
	assert.Contains(t, err.Error(), "email must be a valid email")
	assert.Contains(t, err.Error(), "password must be at least 8")
}

func TestAmountTag(t *testing.T) {
	for _, bad := range []string{"0", "-1", "1.234", "1e3", "abc"} {
		assert.Error(t, Struct(payment{Amount: bad}), bad)
	}
}
