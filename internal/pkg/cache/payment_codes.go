package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const paymentCodePrefix = "payment_code:"

// PaymentCodeStore indexes active payment codes to license ids. Entries
// expire together with the code.
type PaymentCodeStore struct {
	client redis.Cmdable
}

func NewPaymentCodeStore(client redis.Cmdable) *PaymentCodeStore {
	return &PaymentCodeStore{client: client}
}

func paymentCodeKey(code string) string {
	return paymentCodePrefix + code
}

func (s *PaymentCodeStore) Put(ctx context.Context, code, licenseID string, ttl time.Duration) error {
	return s.client.Set(ctx, paymentCodeKey(code), licenseID, ttl).Err()
}

// Lookup returns the license id holding code, or "" when the code is unknown
// or expired.
func (s *PaymentCodeStore) Lookup(ctx context.Context, code string) (string, error) {
	id, err := s.client.Get(ctx, paymentCodeKey(code)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return id, nil
}

func (s *PaymentCodeStore) Delete(ctx context.Context, code string) error {
	return s.client.Del(ctx, paymentCodeKey(code)).Err()
}
