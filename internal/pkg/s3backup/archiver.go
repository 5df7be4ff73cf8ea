package s3backup

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/licensing"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/shortener"
)

const (
	snapshotContentType = "application/json"
	snapshotSlugLength  = 6
	maxKeyAttempts      = 3
)

// ObjectStore is what the archiver needs from the bucket.
type ObjectStore interface {
	UploadBytes(ctx context.Context, objectKey string, body []byte, contentType string) (*UploadResult, error)
	ObjectExists(ctx context.Context, objectKey string) (bool, error)
}

// LedgerSnapshot is the archived document.
type LedgerSnapshot struct {
	GeneratedAt      time.Time        `json:"generatedAt"`
	Count            int              `json:"count"`
	TotalOutstanding float64          `json:"totalOutstanding"`
	ByStatus         map[string]int   `json:"byStatus"`
	Licenses         []models.License `json:"licenses"`
}

// Archiver writes point-in-time copies of every license with its ledgers.
type Archiver struct {
	store ObjectStore
	cfg   *Config
	now   func() time.Time
}

func NewArchiver(store ObjectStore, cfg *Config) *Archiver {
	return &Archiver{store: store, cfg: cfg, now: time.Now}
}

// Snapshot uploads licenses as one JSON document and returns its key.
func (a *Archiver) Snapshot(ctx context.Context, licenses []*models.License) (string, error) {
	snap := BuildSnapshot(licenses, a.now().UTC())
	body, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("failed to marshal ledger snapshot: %w", err)
	}

	key, err := a.freeKey(ctx, snap.GeneratedAt)
	if err != nil {
		return "", err
	}
	if _, err := a.store.UploadBytes(ctx, key, body, snapshotContentType); err != nil {
		return "", err
	}
	log.Infof("[LedgerArchive] Snapshot of %d licenses written to %s", snap.Count, key)
	return key, nil
}

func (a *Archiver) freeKey(ctx context.Context, at time.Time) (string, error) {
	for i := 0; i < maxKeyAttempts; i++ {
		slug, err := shortener.GenerateSecureSlug(snapshotSlugLength)
		if err != nil {
			return "", err
		}
		key := a.cfg.SnapshotKey(at, slug)
		exists, err := a.store.ObjectExists(ctx, key)
		if err != nil {
			return "", err
		}
		if !exists {
			return key, nil
		}
	}
	return "", fmt.Errorf("could not find a free snapshot key after %d attempts", maxKeyAttempts)
}

// BuildSnapshot summarizes licenses. Nil entries are skipped.
func BuildSnapshot(licenses []*models.License, at time.Time) LedgerSnapshot {
	snap := LedgerSnapshot{
		GeneratedAt: at,
		ByStatus:    make(map[string]int),
		Licenses:    make([]models.License, 0, len(licenses)),
	}
	balances := make([]float64, 0, len(licenses))
	for _, l := range licenses {
		if l == nil {
			continue
		}
		snap.Licenses = append(snap.Licenses, *l.Clone())
		snap.ByStatus[l.Status]++
		balances = append(balances, l.OutstandingBalance)
	}
	snap.Count = len(snap.Licenses)
	snap.TotalOutstanding = licensing.AddMoney(balances...)
	return snap
}
