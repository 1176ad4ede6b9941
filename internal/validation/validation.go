// Package validation provides input validation for analysis requests, both
// as plain checks and as gin binding tags.
package validation

import (
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/mbd888/chainrisk/internal/signal"
)

// MaxRequestSize is the maximum request body size (64KB). Analysis requests
// carry two short fields.
const MaxRequestSize = 64 << 10

// MaxAddressLength bounds the raw address before any parsing.
const MaxAddressLength = 128

// RequestSizeMiddleware limits request body size
func RequestSizeMiddleware(maxSize int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize)
		}
		c.Next()
	}
}

// IsValidEVMAddress reports whether addr is 0x followed by 40 hex digits.
// Checksums are not enforced; lookups are case-insensitive.
func IsValidEVMAddress(addr string) bool {
	return strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}

// SanitizeString removes null bytes, trims whitespace and limits length
func SanitizeString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.ReplaceAll(s, "\x00", "")
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Sentence renders the error for API clients, e.g. "Address parameter is required".
func (e ValidationError) Sentence() string {
	if e.Field == "" {
		return e.Message
	}
	return strings.ToUpper(e.Field[:1]) + e.Field[1:] + " " + e.Message
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return e[0].Sentence()
}

// Validate runs validators and collects their errors
func Validate(validators ...func() *ValidationError) ValidationErrors {
	var errs ValidationErrors
	for _, v := range validators {
		if err := v(); err != nil {
			errs = append(errs, *err)
		}
	}
	return errs
}

// Required checks if a field is non-empty
func Required(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if strings.TrimSpace(value) == "" {
			return &ValidationError{Field: field, Message: "parameter is required"}
		}
		return nil
	}
}

// ValidAddress checks that a non-empty field is an EVM address
func ValidAddress(field, value string) func() *ValidationError {
	return func() *ValidationError {
		value = strings.TrimSpace(value)
		if value == "" {
			return nil // Use Required for required fields
		}
		if len(value) > MaxAddressLength || !IsValidEVMAddress(value) {
			return &ValidationError{Field: field, Message: "must be an EVM address (0x followed by 40 hex characters); non-EVM chains are not supported"}
		}
		return nil
	}
}

// ValidChain checks that a non-empty field names a supported chain
func ValidChain(field, value string) func() *ValidationError {
	return func() *ValidationError {
		if value == "" || signal.IsSupportedChain(value) {
			return nil
		}
		return &ValidationError{Field: field, Message: "must be one of " + strings.Join(signal.SupportedChains, ", ")}
	}
}

// MaxLength checks if a field exceeds max length
func MaxLength(field, value string, max int) func() *ValidationError {
	return func() *ValidationError {
		if len(value) > max {
			return &ValidationError{Field: field, Message: "exceeds maximum length"}
		}
		return nil
	}
}

// RegisterTags adds the "evmaddress" and "chain" tags to a validator, for
// use in gin binding structs.
func RegisterTags(v *validator.Validate) error {
	if err := v.RegisterValidation("evmaddress", func(fl validator.FieldLevel) bool {
		return IsValidEVMAddress(strings.TrimSpace(fl.Field().String()))
	}); err != nil {
		return err
	}
	return v.RegisterValidation("chain", func(fl validator.FieldLevel) bool {
		return signal.IsSupportedChain(fl.Field().String())
	})
}

// FromBinding converts validator errors from gin binding into API-facing
// validation errors. fieldNames maps struct field names to request
// parameter names.
func FromBinding(err error, fieldNames map[string]string) ValidationErrors {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return ValidationErrors{{Message: "Malformed request body"}}
	}
	out := make(ValidationErrors, 0, len(verrs))
	for _, fe := range verrs {
		name := fieldNames[fe.Field()]
		if name == "" {
			name = strings.ToLower(fe.Field())
		}
		var check func() *ValidationError
		switch fe.Tag() {
		case "required":
			check = Required(name, "")
		case "evmaddress":
			check = ValidAddress(name, "invalid")
		case "chain":
			check = ValidChain(name, "invalid")
		default:
			check = func() *ValidationError { return &ValidationError{Field: name, Message: "is invalid"} }
		}
		if ve := check(); ve != nil {
			out = append(out, *ve)
		}
	}
	return out
}
