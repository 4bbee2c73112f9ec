package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidateConfig validates the entire configuration and returns all
// validation errors at once.
func (c *Config) ValidateConfig() error {
	var validationErrors ValidationErrors

	if c.General == nil {
		validationErrors = append(validationErrors, ValidationError{
			FieldPath: "general",
			Message:   "configuration must contain 'general' section",
		})
		return validationErrors
	}

	if err := validate.Struct(c.General); err != nil {
		validationErrors = append(validationErrors, convertValidatorErrors(err, "general", "")...)
	}

	validationErrors = append(validationErrors, c.validateInterfaces()...)

	if len(validationErrors) > 0 {
		return validationErrors
	}

	return nil
}

func (c *Config) validateInterfaces() ValidationErrors {
	var validationErrors ValidationErrors

	seenNames := make(map[string]bool)

	for i, iface := range c.Interfaces {
		itemName := iface.Name
		if itemName == "" {
			itemName = fmt.Sprintf("interface[%d]", i)
		}

		if err := validate.Struct(iface); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, fmt.Sprintf("interface.%d", i), itemName)...)
		}

		if seenNames[iface.Name] {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: "name",
				Message:   fmt.Sprintf("duplicate interface name: %s", iface.Name),
			})
		}
		seenNames[iface.Name] = true

		if iface.IPv4 == nil && iface.IPv6 == nil {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: "ipv4",
				Message:   "interface must configure at least one address family",
			})
			continue
		}

		validationErrors = append(validationErrors, validateFamily(itemName, "ipv4", iface.IPv4, false)...)
		validationErrors = append(validationErrors, validateFamily(itemName, "ipv6", iface.IPv6, true)...)
	}

	return validationErrors
}

func validateFamily(itemName, fieldPrefix string, fam *FamilyConfig, wantV6 bool) ValidationErrors {
	if fam == nil {
		return nil
	}

	var validationErrors ValidationErrors

	if err := validate.Struct(fam); err != nil {
		validationErrors = append(validationErrors, convertValidatorErrors(err, fieldPrefix, itemName)...)
	}

	if fam.Method == "manual" && len(fam.Addresses) == 0 {
		validationErrors = append(validationErrors, ValidationError{
			ItemName:  itemName,
			FieldPath: fieldPrefix + ".addresses",
			Message:   "manual method requires at least one address",
		})
	}

	for j, spec := range fam.Addresses {
		prefix, _, err := splitAddressSpec(spec)
		if err != nil {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: fmt.Sprintf("%s.addresses.%d", fieldPrefix, j),
				Message:   err.Error(),
			})
			continue
		}
		if prefix.Addr().Is6() != wantV6 {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: fmt.Sprintf("%s.addresses.%d", fieldPrefix, j),
				Message:   fmt.Sprintf("address %s belongs to the wrong family", prefix.Addr()),
			})
		}
	}

	if fam.Gateway != "" {
		if gw, err := netip.ParseAddr(fam.Gateway); err == nil && gw.Is6() != wantV6 {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: fieldPrefix + ".gateway",
				Message:   fmt.Sprintf("gateway %s belongs to the wrong family", fam.Gateway),
			})
		}
	}

	for j, route := range fam.Routes {
		if err := validate.Struct(route); err != nil {
			validationErrors = append(validationErrors, convertValidatorErrors(err, fmt.Sprintf("%s.route.%d", fieldPrefix, j), itemName)...)
			continue
		}
		prefix, err := netip.ParsePrefix(route.Network)
		if err != nil {
			continue // already reported by the struct validator
		}
		if prefix.Addr().Is6() != wantV6 {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: fmt.Sprintf("%s.route.%d.network", fieldPrefix, j),
				Message:   fmt.Sprintf("network %s belongs to the wrong family", route.Network),
			})
		}
		if prefix.Bits() == 0 {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: fmt.Sprintf("%s.route.%d.network", fieldPrefix, j),
				Message:   "default routes are expressed through the gateway field, not a /0 route",
			})
		}
	}

	for j, ns := range fam.Nameservers {
		if _, err := netip.ParseAddr(ns); err != nil {
			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: fmt.Sprintf("%s.nameservers.%d", fieldPrefix, j),
				Message:   fmt.Sprintf("invalid nameserver address: %s", ns),
			})
		}
	}

	return validationErrors
}

// splitAddressSpec parses "addr/prefix" with an optional label after a
// space ("10.0.0.2/24 eth0:backup").
func splitAddressSpec(spec string) (netip.Prefix, string, error) {
	cidr, label, _ := strings.Cut(spec, " ")
	prefix, err := netip.ParsePrefix(strings.TrimSpace(cidr))
	if err != nil {
		return netip.Prefix{}, "", fmt.Errorf("invalid address %q: must be in CIDR notation", spec)
	}
	return prefix, strings.TrimSpace(label), nil
}

// convertValidatorErrors converts go-playground/validator errors to our ValidationError format
func convertValidatorErrors(err error, fieldPrefix string, itemName string) ValidationErrors {
	var validationErrors ValidationErrors

	var validatorErrs validator.ValidationErrors
	if errors.As(err, &validatorErrs) {
		for _, e := range validatorErrs {
			fieldPath := fieldPrefix
			if e.Field() != "" {
				fieldName := e.Field()
				if fieldPrefix != "" {
					fieldPath = fieldPrefix + "." + fieldName
				} else {
					fieldPath = fieldName
				}
			}

			validationErrors = append(validationErrors, ValidationError{
				ItemName:  itemName,
				FieldPath: fieldPath,
				Message:   getValidationMessage(e),
			})
		}
	}

	return validationErrors
}
