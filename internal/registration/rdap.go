package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openrdap/rdap"

	"github.com/khanhnv2901/netdiag/internal/shared/constants"
	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
)

const rdapContentType = "application/rdap+json"

// RDAPClient queries RDAP servers for domain objects.
type RDAPClient struct {
	HTTPClient *http.Client
	Timeout    time.Duration
	UserAgent  string
}

// Query fetches {server}/domain/{domain} and parses the answer.
func (c *RDAPClient) Query(ctx context.Context, server, domain string) (*RegistrationRecord, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = constants.RDAPQueryTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := strings.TrimSuffix(server, "/") + "/domain/" + domain
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, diagerrors.Wrap(diagerrors.CodeRDAPParseFailed, "invalid RDAP server URL", err)
	}
	req.Header.Set("Accept", rdapContentType)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, diagerrors.Wrap(diagerrors.CodeRDAPTimeout, fmt.Sprintf("RDAP query for %s timed out", domain), err)
		}
		return nil, diagerrors.Wrap(diagerrors.CodeHostUnreachable, "RDAP server is unreachable", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxResponseBodyBytes))
	if err != nil {
		if isTimeout(err) {
			return nil, diagerrors.Wrap(diagerrors.CodeRDAPTimeout, fmt.Sprintf("RDAP query for %s timed out", domain), err)
		}
		return nil, diagerrors.Wrap(diagerrors.CodeRDAPParseFailed, "RDAP response could not be read", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, diagerrors.Newf(diagerrors.CodeDomainNotFound, "%s is not registered according to RDAP", domain)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, diagerrors.Newf(diagerrors.CodeHostUnreachable, "RDAP server answered %d", resp.StatusCode).
			WithDetail("status", resp.StatusCode)
	}

	record, err := parseRDAP(domain, body)
	if err != nil {
		return nil, err
	}
	record.Server = server
	return record, nil
}

// parseRDAP is total over any well-formed domain object: missing fields
// become empty collections or Epoch. A body without objectClassName is read
// as a domain.
func parseRDAP(domain string, body []byte) (*RegistrationRecord, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, diagerrors.Wrap(diagerrors.CodeRDAPParseFailed, "RDAP response is not a domain object", err)
	}
	var class string
	if raw, ok := fields["objectClassName"]; ok {
		_ = json.Unmarshal(raw, &class)
	}
	switch {
	case class == "":
		fields["objectClassName"] = json.RawMessage(`"domain"`)
		var err error
		if body, err = json.Marshal(fields); err != nil {
			return nil, diagerrors.Wrap(diagerrors.CodeRDAPParseFailed, "RDAP response could not be normalized", err)
		}
	case !strings.EqualFold(class, "domain"):
		return nil, diagerrors.Newf(diagerrors.CodeRDAPParseFailed, "RDAP response is a %s object, not a domain", class)
	}

	decoded, err := rdap.NewDecoder(body).Decode()
	if err != nil {
		return nil, diagerrors.Wrap(diagerrors.CodeRDAPParseFailed, "RDAP response is not a domain object", err)
	}
	obj, ok := decoded.(*rdap.Domain)
	if !ok {
		return nil, diagerrors.Newf(diagerrors.CodeRDAPParseFailed, "RDAP response decoded as %T", decoded)
	}

	record := newRecord(domain, SourceRDAP)
	record.Registrar = registrarName(obj.Entities)

	for _, ev := range obj.Events {
		switch strings.ToLower(ev.Action) {
		case "registration":
			record.RegistrationDate = parseDate(ev.Date)
		case "expiration":
			record.ExpirationDate = parseDate(ev.Date)
		case "last changed":
			record.UpdatedDate = parseDate(ev.Date)
		}
	}

	var ns stringSet
	for _, n := range obj.Nameservers {
		ns.add(normalizeNameServer(n.LDHName))
	}
	record.NameServers = sortedCopy(ns.values())

	var status stringSet
	for _, st := range obj.Status {
		status.add(st)
	}
	record.Status = status.values()

	if obj.SecureDNS != nil && obj.SecureDNS.DelegationSigned != nil {
		record.DNSSEC = *obj.SecureDNS.DelegationSigned
	}
	record.Timestamp = time.Now().UTC()
	return record, nil
}

// registrarName looks for the first entity with the registrar role, nested
// entities included, and returns its vCard "fn" or, failing that, its IANA id.
func registrarName(entities []rdap.Entity) string {
	for _, e := range entities {
		if hasRole(e.Roles, "registrar") {
			if e.VCard != nil {
				if name := strings.TrimSpace(e.VCard.Name()); name != "" {
					return name
				}
			}
			for _, id := range e.PublicIDs {
				if id.Identifier != "" {
					return id.Identifier
				}
			}
			return e.Handle
		}
		if name := registrarName(e.Entities); name != "" {
			return name
		}
	}
	return ""
}

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}
