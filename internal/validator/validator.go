package validator

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var disposableEmailDomains = map[string]struct{}{
	"10minutemail.com": {}, "guerrillamail.com": {}, "mailinator.com": {},
	"tempmail.org": {}, "yopmail.com": {}, "maildrop.cc": {},
	"temp-mail.org": {}, "throwaway.email": {},
}

// Audio types the transcription provider accepts.
var allowedAudioMimeTypes = map[string]struct{}{
	"audio/mpeg": {}, "audio/mp4": {}, "audio/wav": {}, "audio/x-wav": {},
	"audio/webm": {}, "audio/ogg": {}, "audio/flac": {},
}

var (
	upperPattern   = regexp.MustCompile(`[A-Z]`)
	lowerPattern   = regexp.MustCompile(`[a-z]`)
	digitPattern   = regexp.MustCompile(`\d`)
	specialPattern = regexp.MustCompile(`[!@#$%^&*(),.?":{}|<>]`)
)

type Validator struct {
	validate *validator.Validate
}

func New() *Validator {
	v := validator.New()

	v.RegisterValidation("password_strength", validatePasswordStrength)
	v.RegisterValidation("no_disposable_email", validateNoDisposableEmail)
	v.RegisterValidation("audio_mime_type", validateAudioMimeType)

	return &Validator{validate: v}
}

func (v *Validator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

// validatePasswordStrength requires at least 8 characters with uppercase,
// lowercase, digit, and special character each present.
func validatePasswordStrength(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 8 {
		return false
	}

	return upperPattern.MatchString(password) &&
		lowerPattern.MatchString(password) &&
		digitPattern.MatchString(password) &&
		specialPattern.MatchString(password)
}

func validateNoDisposableEmail(fl validator.FieldLevel) bool {
	email := fl.Field().String()

	_, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return false
	}

	_, disposable := disposableEmailDomains[strings.ToLower(domain)]
	return !disposable
}

func validateAudioMimeType(fl validator.FieldLevel) bool {
	_, ok := allowedAudioMimeTypes[strings.ToLower(fl.Field().String())]
	return ok
}
