package checkout

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"storefront/internal/orders"

	"github.com/go-playground/validator/v10"
)

var upiPattern = regexp.MustCompile(`^[a-zA-Z0-9.\-_]{2,256}@[a-zA-Z]{2,64}$`)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidUPIHandle reports whether s looks like localpart@bankcode.
func ValidUPIHandle(s string) bool {
	return upiPattern.MatchString(s)
}

func normaliseAddress(a orders.Address) orders.Address {
	return orders.Address{
		FullName:      strings.TrimSpace(a.FullName),
		StreetAddress: strings.TrimSpace(a.StreetAddress),
		City:          strings.TrimSpace(a.City),
		State:         strings.TrimSpace(a.State),
		Pincode:       strings.TrimSpace(a.Pincode),
		Phone:         strings.TrimSpace(a.Phone),
	}
}

// ValidateAddress trims every field and checks the six required fields and
// the pincode length. The returned address is the trimmed one.
func ValidateAddress(a orders.Address) (orders.Address, error) {
	a = normaliseAddress(a)
	err := validate.Struct(a)
	if err == nil {
		return a, nil
	}
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) || len(vErrs) == 0 {
		return a, err
	}
	fe := vErrs[0]
	switch fe.Tag() {
	case "required":
		return a, &ValidationError{Field: fe.Field(), Message: "Please fill in all address fields."}
	case "len":
		return a, &ValidationError{Field: fe.Field(), Message: "Please enter a valid pincode."}
	default:
		return a, &ValidationError{Field: fe.Field(), Message: "is invalid"}
	}
}

// ValidatePayment checks the method and, for UPI-family methods, the handle.
func ValidatePayment(method orders.PaymentMethod, upiHandle string) error {
	if method == "" {
		return &ValidationError{Field: "payment_method", Message: "Please select a payment method."}
	}
	if !method.Valid() {
		return &ValidationError{Field: "payment_method", Message: "Unsupported payment method."}
	}
	if method.IsUPI() && !ValidUPIHandle(strings.TrimSpace(upiHandle)) {
		return &ValidationError{Field: "upi_id", Message: "Please enter a valid UPI ID (e.g., user@bank)."}
	}
	return nil
}
