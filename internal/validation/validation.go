// Package validation holds the input rules shared by handlers and services.
package validation

import (
	"net/http"
	"strings"

	"odinbook/internal/models"
)

// MinPasswordLength is the shortest accepted password, counted after trimming.
const MinPasswordLength = 6

// MaxPasswordBytes is the bcrypt input limit.
const MaxPasswordBytes = 72

// JPEGContentType is the only accepted upload type.
const JPEGContentType = "image/jpeg"

// SignupInput is the normalized result of ValidateSignup. Password is kept
// exactly as given.
type SignupInput struct {
	Name     string
	Username string
	Password string
}

// ValidateSignup trims name and username and checks the signup rules. All
// violations are reported together.
func ValidateSignup(name, username, password string) (SignupInput, error) {
	in := SignupInput{
		Name:     strings.TrimSpace(name),
		Username: strings.TrimSpace(username),
		Password: password,
	}

	var fields []models.FieldError
	if in.Name == "" {
		fields = append(fields, models.FieldError{Field: "name", Message: "Name must be specified"})
	}
	if in.Username == "" {
		fields = append(fields, models.FieldError{Field: "username", Message: "Username must be specified"})
	}
	switch {
	case len([]rune(strings.TrimSpace(password))) < MinPasswordLength:
		fields = append(fields, models.FieldError{Field: "password", Message: "Password must be at least 6 characters"})
	case len(password) > MaxPasswordBytes:
		fields = append(fields, models.FieldError{Field: "password", Message: "Password must be at most 72 bytes"})
	}
	if len(fields) > 0 {
		return in, models.NewValidationError("Invalid signup data", fields...)
	}
	return in, nil
}

// ValidateContent returns the trimmed content, or a validation error on the
// given field when nothing remains.
func ValidateContent(field, content string) (string, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return "", models.NewValidationError("Content must not be empty",
			models.FieldError{Field: field, Message: "Content must not be empty"})
	}
	return trimmed, nil
}

// ValidateProfile checks an edit-profile request.
func ValidateProfile(name, pictureURL string) (string, string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", "", models.NewValidationError("Name must be specified",
			models.FieldError{Field: "name", Message: "Name must be specified"})
	}
	return name, strings.TrimSpace(pictureURL), nil
}

// ValidateImage checks an upload against the JPEG-only policy and the size
// limit. The declared type must match the sniffed bytes.
func ValidateImage(declared string, data []byte, maxBytes int64) error {
	if len(data) == 0 {
		return models.NewValidationError("Image is empty",
			models.FieldError{Field: "image", Message: "Image is empty"})
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return models.NewValidationError("Image is too large",
			models.FieldError{Field: "image", Message: "Image exceeds the upload limit"})
	}
	declared = strings.ToLower(strings.TrimSpace(strings.Split(declared, ";")[0]))
	if declared != "" && declared != JPEGContentType && declared != "image/jpg" {
		return models.NewValidationError("Only JPEG images are allowed",
			models.FieldError{Field: "image", Message: "Only JPEG images are allowed"})
	}
	if http.DetectContentType(data) != JPEGContentType {
		return models.NewValidationError("Only JPEG images are allowed",
			models.FieldError{Field: "image", Message: "Only JPEG images are allowed"})
	}
	return nil
}
