package config

import (
	"fmt"
	"net"
	"net/netip"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// getValidationMessage returns a human-readable message for a validation error
func getValidationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "field is required"
	case "min", "gte":
		return fmt.Sprintf("must be >= %s", e.Param())
	case "max", "lte":
		return fmt.Sprintf("must be <= %s", e.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", e.Param())
	case "ip_or_empty":
		return "must be a valid IP address or empty"
	case "hostport_or_empty":
		return "must be in format 'host:port' or empty"
	case "cidr_notation":
		return "must be in CIDR notation (address/prefix)"
	default:
		return fmt.Sprintf("validation failed: %s", e.Tag())
	}
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	ItemName  string // for interfaces: the interface name (e.g. "eth0")
	FieldPath string // dot-notation field path (e.g. "general.api_listen", "ipv4.gateway")
	Message   string // human-readable error message
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("validation failed with %d error(s):\n", len(ve)))
	for i, err := range ve {
		if err.ItemName != "" {
			sb.WriteString(fmt.Sprintf("  %d. [%s] %s: %s\n", i+1, err.ItemName, err.FieldPath, err.Message))
		} else {
			sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.FieldPath, err.Message))
		}
	}
	return sb.String()
}

var validate *validator.Validate

func init() {
	validate = validator.New()

	if err := validate.RegisterValidation("ip_or_empty", validateIPOrEmpty); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("hostport_or_empty", validateHostPortOrEmpty); err != nil {
		panic(err)
	}
	if err := validate.RegisterValidation("cidr_notation", validateCIDRNotation); err != nil {
		panic(err)
	}

	// Report field names by their "toml" tag
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("toml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validator: IP address or empty
func validateIPOrEmpty(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, err := netip.ParseAddr(value)
	return err == nil
}

// Custom validator: host:port format or empty
func validateHostPortOrEmpty(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true
	}
	_, _, err := net.SplitHostPort(value)
	return err == nil
}

// Custom validator: CIDR notation
func validateCIDRNotation(fl validator.FieldLevel) bool {
	_, err := netip.ParsePrefix(fl.Field().String())
	return err == nil
}
