package licensing

import "errors"

var (
	ErrInvalidID          = errors.New("invalid license id")
	ErrValidation         = errors.New("invalid license request")
	ErrDomainTaken        = errors.New("domain already registered")
	ErrLicenseKeyTaken    = errors.New("license key already registered")
	ErrPaymentCodeExpired = errors.New("payment code expired")
)
