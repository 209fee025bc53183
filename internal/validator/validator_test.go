package validator_test

import (
	"testing"

	"echoscribe/internal/validator"

	"github.com/stretchr/testify/assert"
)

func TestPasswordStrength(t *testing.T) {
	v := validator.New()

	type input struct {
		Password string `validate:"password_strength"`
	}

	tests := []struct {
		name     string
		password string
		valid    bool
	}{
		{name: "valid password", password: "Sterk3Wacht!", valid: true},
		{name: "too short", password: "Ab1!", valid: false},
		{name: "missing uppercase", password: "zwak3wacht!", valid: false},
		{name: "missing lowercase", password: "STERK3WACHT!", valid: false},
		{name: "missing digit", password: "SterkWachtwoord!", valid: false},
		{name: "missing special character", password: "Sterk3Wachtwoord", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(input{Password: tt.password})
			if tt.valid {
				assert.Nil(t, err)
			} else {
				assert.NotNil(t, err)
			}
		})
	}
}

func TestNoDisposableEmail(t *testing.T) {
	v := validator.New()

	type input struct {
		Email string `validate:"no_disposable_email"`
	}

	tests := []struct {
		name  string
		email string
		valid bool
	}{
		{name: "regular address", email: "sanne@example.com", valid: true},
		{name: "disposable domain", email: "user@mailinator.com", valid: false},
		{name: "disposable domain uppercase", email: "user@MAILINATOR.COM", valid: false},
		{name: "missing at sign", email: "not-an-email", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(input{Email: tt.email})
			if tt.valid {
				assert.Nil(t, err)
			} else {
				assert.NotNil(t, err)
			}
		})
	}
}

func TestAudioMimeType(t *testing.T) {
	v := validator.New()

	type input struct {
		MimeType string `validate:"audio_mime_type"`
	}

	tests := []struct {
		name     string
		mimeType string
		valid    bool
	}{
		{name: "mp3", mimeType: "audio/mpeg", valid: true},
		{name: "wav", mimeType: "audio/wav", valid: true},
		{name: "uppercase accepted", mimeType: "AUDIO/OGG", valid: true},
		{name: "video rejected", mimeType: "video/mp4", valid: false},
		{name: "empty rejected", mimeType: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(input{MimeType: tt.mimeType})
			if tt.valid {
				assert.Nil(t, err)
			} else {
				assert.NotNil(t, err)
			}
		})
	}
}
