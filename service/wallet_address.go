package service

import (
	"fmt"
	"regexp"
	"strings"
)

// AddressValidator checks payout addresses against the configured format
type AddressValidator struct {
	pattern *regexp.Regexp
}

// NewAddressValidator compiles the address pattern
func NewAddressValidator(pattern string) (*AddressValidator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid wallet address pattern: %w", err)
	}
	return &AddressValidator{pattern: re}, nil
}

// Normalize trims surrounding whitespace and returns ErrInvalidAddress when the
// address does not match the pattern
func (v *AddressValidator) Normalize(address string) (string, error) {
	address = strings.TrimSpace(address)
	if address == "" || !v.pattern.MatchString(address) {
		return "", ErrInvalidAddress
	}
	return address, nil
}
