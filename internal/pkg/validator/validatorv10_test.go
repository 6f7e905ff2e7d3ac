package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type generateBody struct {
	Email string `json:"email" validate:"required,email,max=254"`
}

type verifyBody struct {
	SessionID string `json:"session_id" validate:"required"`
	OTP       string `json:"otp" validate:"required,passcode,min=4,max=9"`
}

func TestV10Validator(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	tests := []struct {
		name string
		data any
		want map[string]string
	}{
		{name: "ValidEmail", data: generateBody{Email: "user@example.com"}},
		{name: "BadEmail", data: generateBody{Email: "not-an-email"}, want: map[string]string{"email": "email must be a valid email address"}},
		{name: "MissingEmail", data: generateBody{}, want: map[string]string{"email": "email is a required field"}},
		{name: "ValidVerify", data: verifyBody{SessionID: "abc", OTP: "012345"}},
		{name: "NonDigitOTP", data: verifyBody{SessionID: "abc", OTP: "12a456"}, want: map[string]string{"otp": "otp must contain digits only"}},
		{
			name: "MissingBoth",
			data: verifyBody{},
			want: map[string]string{"session_id": "session_id is a required field", "otp": "otp is a required field"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.data)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}

			var verr V10ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.want, verr.Values())
			assert.NotEmpty(t, verr.Error())
		})
	}
}

func TestV10Validator_NotStruct(t *testing.T) {
	v, err := NewV10Validator()
	require.NoError(t, err)

	err = v.Validate("plain string")
	require.Error(t, err)

	var verr V10ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestV10ValidationError_Empty(t *testing.T) {
	assert.Equal(t, "validation error", V10ValidationError{}.Error())
}
