package licensing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/shortener"
)

const maxCodeAttempts = 5

// PaymentIntent is a normalized license plus the code a customer quotes when
// paying.
type PaymentIntent struct {
	*Result
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// CreatePaymentIntent issues a fresh payment code for the license. A
// non-positive ttlMinutes uses the configured default.
func (s *Service) CreatePaymentIntent(ctx context.Context, id string, ttlMinutes int) (*PaymentIntent, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	l, err := s.licenses.GetByID(ctx, id)
	if err != nil || l == nil {
		return nil, err
	}

	ttl := s.cfg.PaymentCodeTTL
	if ttlMinutes > 0 {
		ttl = time.Duration(ttlMinutes) * time.Minute
	}
	code, err := s.uniquePaymentCode(ctx)
	if err != nil {
		return nil, err
	}

	previous := l.CurrentPaymentCode
	expiresAt := s.now().Add(ttl)
	l.CurrentPaymentCode = code
	l.CurrentPaymentCodeExpiresAt = &expiresAt
	l.PaymentVerificationState = models.VerificationAwaiting
	if err := s.licenses.Save(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to save payment intent for %s: %w", id, err)
	}

	if s.codes != nil {
		if previous != "" {
			s.dropPaymentCode(ctx, previous)
		}
		if err := s.codes.Put(ctx, code, l.ID, ttl); err != nil {
			log.Warnf("[Licensing] Failed to index payment code %s: %v", code, err)
		}
	}
	log.Infof("[Licensing] Payment code %s issued for license %s (expires %s)", code, l.ID, expiresAt.Format(time.RFC3339))

	res, err := s.normalizeAndPersist(ctx, l)
	if err != nil {
		return nil, err
	}
	res.Effects = append([]SideEffect{{Kind: EffectPaymentIntent, Detail: code}}, res.Effects...)
	return &PaymentIntent{Result: res, Code: code, ExpiresAt: expiresAt}, nil
}

func (s *Service) uniquePaymentCode(ctx context.Context) (string, error) {
	for i := 0; i < maxCodeAttempts; i++ {
		code, err := shortener.GeneratePaymentCode(s.cfg.PaymentCodeLength)
		if err != nil {
			return "", err
		}
		existing, err := s.licenses.FindByPaymentCode(ctx, code)
		if err != nil {
			return "", err
		}
		if existing == nil {
			return code, nil
		}
	}
	return "", errors.New("could not allocate a unique payment code")
}

// ResolvePaymentCode finds the license currently holding code. Unknown codes
// yield (nil, nil); expired ones ErrPaymentCodeExpired.
func (s *Service) ResolvePaymentCode(ctx context.Context, raw string) (*Result, error) {
	code := shortener.NormalizeCode(raw)
	if code == "" {
		return nil, nil
	}

	var l *models.License
	if s.codes != nil {
		id, err := s.codes.Lookup(ctx, code)
		if err != nil {
			log.Warnf("[Licensing] Payment code index lookup failed, falling back to store: %v", err)
		}
		if id != "" {
			found, err := s.licenses.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			if found != nil && found.CurrentPaymentCode == code {
				l = found
			}
		}
	}
	if l == nil {
		found, err := s.licenses.FindByPaymentCode(ctx, code)
		if err != nil {
			return nil, err
		}
		l = found
	}
	if l == nil {
		return nil, nil
	}
	if l.CurrentPaymentCodeExpiresAt != nil && !s.now().Before(*l.CurrentPaymentCodeExpiresAt) {
		return nil, fmt.Errorf("%w: %s", ErrPaymentCodeExpired, code)
	}
	return s.normalizeAndPersist(ctx, l)
}

// ConfirmPayment applies tx to the license holding code. The transaction id
// keeps repeated confirmations idempotent.
func (s *Service) ConfirmPayment(ctx context.Context, code string, tx models.Transaction) (*Result, error) {
	res, err := s.ResolvePaymentCode(ctx, code)
	if err != nil || res == nil {
		return nil, err
	}
	amount := tx.Amount
	return s.Update(ctx, res.License.ID, ApplyPayment{
		Amount:        &amount,
		Method:        tx.Type,
		Currency:      tx.Currency,
		TransactionID: tx.TransactionID,
		Notes:         "Pago verificado con código " + shortener.NormalizeCode(code),
	})
}
