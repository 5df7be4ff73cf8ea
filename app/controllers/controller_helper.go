package controllers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/licensing"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/notifications"
)

var validate = validator.New()

var errBadPayment = errors.New(`payment is only accepted with status "paid"`)

// badRequestError marks body decoding failures.
type badRequestError struct {
	err error
}

func (e *badRequestError) Error() string { return e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

func errorResponse(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error":   code,
		"message": message,
	})
}

func notFound(c *fiber.Ctx, what string) error {
	return errorResponse(c, fiber.StatusNotFound, "not_found", what+" not found")
}

// decodeBody decodes the JSON body into dst. An empty body is allowed when
// optional is set and leaves dst untouched.
func decodeBody(c *fiber.Ctx, dst interface{}, optional bool) error {
	if len(bytes.TrimSpace(c.Body())) == 0 {
		if optional {
			return nil
		}
		return &badRequestError{errors.New("request body is required")}
	}
	if err := json.Unmarshal(c.Body(), dst); err != nil {
		return &badRequestError{err}
	}
	return nil
}

// parseBody is decodeBody followed by struct validation.
func parseBody(c *fiber.Ctx, dst interface{}, optional bool) error {
	if err := decodeBody(c, dst, optional); err != nil {
		return err
	}
	return validate.Struct(dst)
}

// handleError translates service errors into JSON responses.
func handleError(c *fiber.Ctx, err error) error {
	var bad *badRequestError
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &bad):
		return errorResponse(c, fiber.StatusBadRequest, "invalid_request", bad.Error())
	case errors.As(err, &verrs):
		return errorResponse(c, fiber.StatusBadRequest, "validation_failed", describeValidation(verrs))
	case errors.Is(err, licensing.ErrInvalidID), errors.Is(err, notifications.ErrInvalidJob):
		return errorResponse(c, fiber.StatusBadRequest, "invalid_id", err.Error())
	case errors.Is(err, licensing.ErrValidation):
		return errorResponse(c, fiber.StatusBadRequest, "validation_failed", err.Error())
	case errors.Is(err, licensing.ErrDomainTaken):
		return errorResponse(c, fiber.StatusConflict, "domain_taken", err.Error())
	case errors.Is(err, licensing.ErrLicenseKeyTaken), errors.Is(err, gorm.ErrDuplicatedKey):
		return errorResponse(c, fiber.StatusConflict, "license_key_taken", err.Error())
	case errors.Is(err, licensing.ErrPaymentCodeExpired):
		return errorResponse(c, fiber.StatusGone, "payment_code_expired", err.Error())
	}
	log.Errorf("[API] %s %s failed: %v", c.Method(), c.Path(), err)
	return errorResponse(c, fiber.StatusInternalServerError, "internal_error", "internal server error")
}

func describeValidation(verrs validator.ValidationErrors) string {
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s must satisfy %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

// dateValue accepts RFC 3339 timestamps and plain YYYY-MM-DD dates. Plain
// dates are placed at midnight in the billing zone.
type dateValue struct {
	t        time.Time
	dateOnly bool
}

func (d *dateValue) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("date must be a string: %w", err)
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.t = t
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("invalid date %q", s)
	}
	d.t, d.dateOnly = t, true
	return nil
}

func (d *dateValue) in(loc *time.Location) *time.Time {
	if d == nil {
		return nil
	}
	t := d.t
	if d.dateOnly {
		y, m, day := t.Date()
		t = time.Date(y, m, day, 0, 0, 0, 0, loc)
	}
	return &t
}

// moneyValue accepts numbers and numeric strings like "S/ 1,250.50".
type moneyValue float64

func (m *moneyValue) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	v, ok := licensing.CoerceMoney(raw)
	if !ok {
		return fmt.Errorf("invalid amount %s", string(b))
	}
	*m = moneyValue(v)
	return nil
}

func (m *moneyValue) ptr() *float64 {
	if m == nil {
		return nil
	}
	v := float64(*m)
	return &v
}

func (m *moneyValue) value() float64 {
	if m == nil {
		return 0
	}
	return float64(*m)
}
