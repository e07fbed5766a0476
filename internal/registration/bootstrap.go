package registration

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	diagerrors "github.com/khanhnv2901/netdiag/internal/shared/errors"
)

//go:embed data/rdap-dns.json
var embeddedBootstrap []byte

// BootstrapTable maps TLD labels to their RDAP base URLs. It is immutable
// once built.
type BootstrapTable struct {
	servers map[string][]string
}

type bootstrapFile struct {
	Services [][][]string `json:"services"`
}

// LoadBootstrap reads the table from path. An empty path loads the snapshot
// compiled into the binary.
func LoadBootstrap(path string) (*BootstrapTable, error) {
	if path == "" {
		return ParseBootstrap(embeddedBootstrap)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, diagerrors.Wrap(diagerrors.CodeBootstrapLoadFailed, "RDAP bootstrap file could not be read", err)
	}
	return ParseBootstrap(data)
}

// ParseBootstrap builds a table from the IANA bootstrap JSON layout:
// {"services": [[[tld, ...], [url, ...]], ...]}.
func ParseBootstrap(data []byte) (*BootstrapTable, error) {
	var raw struct {
		Services *json.RawMessage `json:"services"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, diagerrors.Wrap(diagerrors.CodeBootstrapLoadFailed, "RDAP bootstrap file is not valid JSON", err)
	}
	if raw.Services == nil {
		return nil, diagerrors.New(diagerrors.CodeBootstrapLoadFailed, "RDAP bootstrap file has no services")
	}

	var file bootstrapFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, diagerrors.Wrap(diagerrors.CodeBootstrapLoadFailed, "RDAP bootstrap services are malformed", err)
	}

	table := &BootstrapTable{servers: make(map[string][]string)}
	for i, service := range file.Services {
		if len(service) != 2 {
			return nil, diagerrors.New(diagerrors.CodeBootstrapLoadFailed,
				fmt.Sprintf("RDAP bootstrap service %d must hold a TLD list and a server list", i))
		}
		tlds, urls := service[0], service[1]
		if len(urls) == 0 {
			continue
		}
		for _, tld := range tlds {
			key := strings.ToLower(strings.TrimSpace(tld))
			if key == "" {
				continue
			}
			// First entry wins when a TLD is listed twice.
			if _, exists := table.servers[key]; !exists {
				table.servers[key] = append([]string(nil), urls...)
			}
		}
	}
	return table, nil
}

// Has reports whether tld has an entry.
func (t *BootstrapTable) Has(tld string) bool {
	_, ok := t.servers[strings.ToLower(tld)]
	return ok
}

// Servers returns the ordered RDAP base URLs for tld, or nil.
func (t *BootstrapTable) Servers(tld string) []string {
	urls := t.servers[strings.ToLower(tld)]
	if len(urls) == 0 {
		return nil
	}
	return append([]string(nil), urls...)
}

// Len returns the number of TLDs in the table.
func (t *BootstrapTable) Len() int {
	return len(t.servers)
}
