package registrations

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^(\+62|62|0)[0-9]{9,13}$`)
	phoneNoise   = strings.NewReplacer(" ", "", "-", "")

	validate = newValidator()
)

// RegisterInput is what an attendee submits.
type RegisterInput struct {
	Name  string `json:"name" validate:"required,max=200"`
	Email string `json:"email" validate:"required,tldemail,max=254"`
	Phone string `json:"phone" validate:"omitempty,idphone"`
}

// FieldError is one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every rejected field of a RegisterInput.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, "; ")
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("tldemail", func(fl validator.FieldLevel) bool {
		return emailPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("idphone", func(fl validator.FieldLevel) bool {
		return phonePattern.MatchString(fl.Field().String())
	})
	return v
}

// Normalize trims the input, lowercases the email and strips spaces and hyphens from the phone.
func (in RegisterInput) Normalize() RegisterInput {
	return RegisterInput{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
		Phone: phoneNoise.Replace(strings.TrimSpace(in.Phone)),
	}
}

// Validate checks a normalized input and returns a *ValidationError on failure.
func (in RegisterInput) Validate() error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err
	}
	out := &ValidationError{}
	for _, fe := range ve {
		out.Fields = append(out.Fields, FieldError{Field: jsonField(fe.Field()), Message: message(fe)})
	}
	return out
}

func jsonField(name string) string {
	return strings.ToLower(name)
}

func message(fe validator.FieldError) string {
	switch fe.Field() {
	case "Name":
		if fe.Tag() == "max" {
			return "Nama terlalu panjang"
		}
		return "Nama wajib diisi"
	case "Email":
		switch fe.Tag() {
		case "required":
			return "Email wajib diisi"
		default:
			return "Format email tidak valid"
		}
	case "Phone":
		return "Format nomor telepon tidak valid"
	}
	return fe.Field() + " tidak valid"
}
