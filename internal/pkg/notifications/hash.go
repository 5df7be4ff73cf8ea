package notifications

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"sort"
	"strings"

	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/licensing"
)

// maxHashedMessage is the number of runes of the message that take part in
// the fingerprint.
const maxHashedMessage = 512

type canonicalJob struct {
	RucOrDni   string   `json:"rucOrDni"`
	LicenseIDs []string `json:"licenseIds"`
	TotalDue   string   `json:"totalDue"`
	Severity   string   `json:"severity"`
	Message    string   `json:"message"`
}

// JobHash fingerprints the semantic content of a reminder. Channel, origin
// and recipient do not take part, so the same reminder raised by two triggers
// hashes identically.
func JobHash(in JobInput) string {
	payload, _ := json.Marshal(canonicalJob{
		RucOrDni:   strings.TrimSpace(in.RucOrDni),
		LicenseIDs: licenseSet(in.LicenseIDs),
		TotalDue:   licensing.FormatMoney(in.TotalDue),
		Severity:   in.Severity,
		Message:    truncateRunes(strings.TrimSpace(in.Message), maxHashedMessage),
	})
	sum := sha1.Sum(payload)
	return hex.EncodeToString(sum[:])
}

// licenseSet returns the ids sorted with blanks and repeats removed.
func licenseSet(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
