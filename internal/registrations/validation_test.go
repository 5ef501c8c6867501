package registrations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	in := RegisterInput{Name: "  Gading Satrio ", Email: " Gading@Example.COM ", Phone: "0812-3456 7890"}.Normalize()
	assert.Equal(t, "Gading Satrio", in.Name)
	assert.Equal(t, "gading@example.com", in.Email)
	assert.Equal(t, "081234567890", in.Phone)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		input  RegisterInput
		fields []string
	}{
		{"valid", RegisterInput{Name: "Gading", Email: "gading@example.com"}, nil},
		{"valid with phone", RegisterInput{Name: "Gading", Email: "gading@example.com", Phone: "+6281234567890"}, nil},
		{"missing name", RegisterInput{Email: "gading@example.com"}, []string{"name"}},
		{"missing email", RegisterInput{Name: "Gading"}, []string{"email"}},
		{"email without tld", RegisterInput{Name: "Gading", Email: "gading@example"}, []string{"email"}},
		{"email with space", RegisterInput{Name: "Gading", Email: "gad ing@example.com"}, []string{"email"}},
		{"bad phone", RegisterInput{Name: "Gading", Email: "gading@example.com", Phone: "12345"}, []string{"phone"}},
		{"everything wrong", RegisterInput{Phone: "abc"}, []string{"name", "email", "phone"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Normalize().Validate()
			if tt.fields == nil {
				assert.NoError(t, err)
				return
			}
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			var got []string
			for _, f := range ve.Fields {
				got = append(got, f.Field)
				assert.NotEmpty(t, f.Message)
			}
			assert.Equal(t, tt.fields, got)
		})
	}
}

func TestValidationMessages(t *testing.T) {
	err := RegisterInput{Name: "Gading", Email: "nope"}.Validate()
	assert.EqualError(t, err, "Format email tidak valid")
}
