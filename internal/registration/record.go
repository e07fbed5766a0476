// Package registration resolves domain ownership data through RDAP, falling
// back to the WHOIS protocol when RDAP has no server or fails.
package registration

import (
	"sort"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// Source tags where a RegistrationRecord came from.
type Source string

const (
	SourceRDAP  Source = "rdap"
	SourceWHOIS Source = "whois"
)

// Epoch is the date reported when a registry omits a date or sends one that
// cannot be parsed.
var Epoch = time.Unix(0, 0).UTC()

// RegistrationRecord is the normalized registration data of a domain.
type RegistrationRecord struct {
	Domain           string    `json:"domain"`
	Registrar        string    `json:"registrar"`
	RegistrationDate time.Time `json:"registration_date"`
	ExpirationDate   time.Time `json:"expiration_date"`
	UpdatedDate      time.Time `json:"updated_date"`
	NameServers      []string  `json:"name_servers"`
	Status           []string  `json:"status"`
	DNSSEC           bool      `json:"dnssec"`
	Source           Source    `json:"source"`
	Server           string    `json:"server,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

func newRecord(domain string, source Source) *RegistrationRecord {
	return &RegistrationRecord{
		Domain:           domain,
		RegistrationDate: Epoch,
		ExpirationDate:   Epoch,
		UpdatedDate:      Epoch,
		NameServers:      []string{},
		Status:           []string{},
		Source:           source,
	}
}

// parseDate accepts the formats registries use, returning Epoch otherwise.
func parseDate(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return Epoch
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC()
	}
	t, err := dateparse.ParseIn(value, time.UTC)
	if err != nil {
		return Epoch
	}
	return t.UTC()
}

// stringSet keeps the first spelling of every value, in insertion order.
type stringSet struct {
	seen  map[string]struct{}
	items []string
}

func (s *stringSet) add(v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	if s.seen == nil {
		s.seen = make(map[string]struct{})
	}
	key := strings.ToLower(v)
	if _, ok := s.seen[key]; ok {
		return
	}
	s.seen[key] = struct{}{}
	s.items = append(s.items, v)
}

func (s *stringSet) values() []string {
	if s.items == nil {
		return []string{}
	}
	return s.items
}

func normalizeNameServer(ns string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(ns)), ".")
}

func sortedCopy(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
