package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/khanhnv2901/netdiag/internal/cache"
	"github.com/khanhnv2901/netdiag/internal/registration"
	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
)

const rdapBody = `{
  "ldhName": "EXAMPLE.COM",
  "entities": [{"roles": ["registrar"], "vcardArray": ["vcard", [["fn", {}, "text", "Example Registrar"]]]}],
  "events": [{"eventAction": "registration", "eventDate": "1995-08-14T04:00:00Z"}]
}`

func newTestContainer(t *testing.T, backend string) (*Container, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(rdapBody))
	}))
	t.Cleanup(server.Close)

	bootstrap := filepath.Join(t.TempDir(), "dns.json")
	content := fmt.Sprintf(`{"services": [[["com"], [%q]]]}`, server.URL+"/")
	if err := os.WriteFile(bootstrap, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := NewContainer(Config{
		Registration: registration.Config{BootstrapPath: bootstrap, RDAPTimeout: time.Second},
		Cache:        CacheConfig{Backend: backend, Dir: t.TempDir(), TTL: time.Minute},
	}, nil)
	if err != nil {
		t.Fatalf("NewContainer() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c, &hits
}

func TestNewContainer_Wiring(t *testing.T) {
	c, _ := newTestContainer(t, cache.BackendMemory)
	if c.DNS == nil || c.Host == nil || c.Registration == nil || c.Batch == nil || c.Cache == nil {
		t.Fatalf("container is missing components: %+v", c)
	}
	if c.Host.HTTPTimeout <= 0 || c.Host.PingTimeout <= 0 {
		t.Error("host checker should keep default timeouts")
	}
	if c.Batch.MaxSize() != 50 {
		t.Errorf("batch MaxSize() = %d", c.Batch.MaxSize())
	}
}

func TestNewContainer_UnknownCache(t *testing.T) {
	if _, err := NewContainer(Config{Cache: CacheConfig{Backend: "redis"}}, nil); err == nil {
		t.Fatal("expected an error for an unknown cache backend")
	}
}

func TestNewContainer_BootstrapLoadFailure(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.json")
	_, err := NewContainer(Config{
		Registration: registration.Config{BootstrapPath: missing},
		Cache:        CacheConfig{Backend: cache.BackendMemory},
	}, nil)
	if !errors.Is(err, diagerrors.ErrBootstrapLoadFailed) {
		t.Fatalf("NewContainer() error = %v, want BOOTSTRAP_LOAD_FAILED", err)
	}
}

func TestContainer_LookupRegistrationCached(t *testing.T) {
	for _, backend := range []string{cache.BackendMemory, cache.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			c, hits := newTestContainer(t, backend)
			ctx := context.Background()

			first, err := c.LookupRegistration(ctx, "Example.com")
			if err != nil {
				t.Fatalf("LookupRegistration() error = %v", err)
			}
			second, err := c.LookupRegistration(ctx, "example.com")
			if err != nil {
				t.Fatalf("LookupRegistration() cached error = %v", err)
			}
			if hits.Load() != 1 {
				t.Errorf("RDAP server hit %d times, want 1", hits.Load())
			}
			if second.Registrar != first.Registrar || second.Source != registration.SourceRDAP {
				t.Errorf("cached record differs: %+v vs %+v", second, first)
			}
			if !second.RegistrationDate.Equal(first.RegistrationDate) {
				t.Errorf("dates differ after round trip")
			}

			if err := c.Cache.Clear(ctx); err != nil {
				t.Fatal(err)
			}
			if _, err := c.LookupRegistration(ctx, "example.com"); err != nil {
				t.Fatal(err)
			}
			if hits.Load() != 2 {
				t.Errorf("RDAP server hit %d times after Clear, want 2", hits.Load())
			}
		})
	}
}

func TestContainer_LookupRegistrationInvalid(t *testing.T) {
	c, hits := newTestContainer(t, cache.BackendNone)
	_, err := c.LookupRegistration(context.Background(), "not a domain")
	if !errors.Is(err, diagerrors.ErrInvalidDomain) {
		t.Fatalf("expected INVALID_DOMAIN, got %v", err)
	}
	if hits.Load() != 0 {
		t.Error("invalid input must not reach RDAP")
	}
}

func TestCacheKey(t *testing.T) {
	if got := CacheKey("registration", "example.com"); got != "registration:example.com" {
		t.Errorf("CacheKey() = %q", got)
	}
}
