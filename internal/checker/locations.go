package checker

import (
	"net"
	"strings"
)

// Regions used to group probe locations.
const (
	RegionNorthAmerica = "north-america"
	RegionEurope       = "europe"
	RegionAsiaPacific  = "asia-pacific"
	RegionGlobal       = "global"
	RegionCustom       = "custom"
)

// ProbeLocation is one vantage point for a propagation or ping check.
type ProbeLocation struct {
	Name   string `json:"name"`
	Server string `json:"server"`
	Region string `json:"region"`
}

// defaultLocations is the static catalog of public recursive resolvers.
var defaultLocations = []ProbeLocation{
	{Name: "Google Public DNS", Server: "8.8.8.8", Region: RegionNorthAmerica},
	{Name: "Google Public DNS Secondary", Server: "8.8.4.4", Region: RegionNorthAmerica},
	{Name: "Cloudflare", Server: "1.1.1.1", Region: RegionGlobal},
	{Name: "Cloudflare Secondary", Server: "1.0.0.1", Region: RegionGlobal},
	{Name: "Quad9", Server: "9.9.9.9", Region: RegionEurope},
	{Name: "OpenDNS", Server: "208.67.222.222", Region: RegionNorthAmerica},
	{Name: "Level3", Server: "4.2.2.1", Region: RegionNorthAmerica},
	{Name: "Comodo Secure DNS", Server: "8.26.56.26", Region: RegionNorthAmerica},
	{Name: "Control D", Server: "76.76.2.0", Region: RegionNorthAmerica},
	{Name: "DNS.WATCH", Server: "84.200.69.80", Region: RegionEurope},
	{Name: "AdGuard DNS", Server: "94.140.14.14", Region: RegionEurope},
	{Name: "CleanBrowsing", Server: "185.228.168.9", Region: RegionEurope},
	{Name: "Yandex DNS", Server: "77.88.8.8", Region: RegionEurope},
	{Name: "AliDNS", Server: "223.5.5.5", Region: RegionAsiaPacific},
	{Name: "DNSPod", Server: "119.29.29.29", Region: RegionAsiaPacific},
	{Name: "114DNS", Server: "114.114.114.114", Region: RegionAsiaPacific},
	{Name: "Quad101", Server: "101.101.101.101", Region: RegionAsiaPacific},
}

// DefaultLocations returns a copy of the built-in probe catalog.
func DefaultLocations() []ProbeLocation {
	out := make([]ProbeLocation, len(defaultLocations))
	copy(out, defaultLocations)
	return out
}

// Regions lists the distinct regions present in locations, in catalog order.
func Regions(locations []ProbeLocation) []string {
	seen := make(map[string]struct{})
	var regions []string
	for _, loc := range locations {
		if _, ok := seen[loc.Region]; ok {
			continue
		}
		seen[loc.Region] = struct{}{}
		regions = append(regions, loc.Region)
	}
	return regions
}

// FilterByRegion keeps locations whose region matches one of regions, case-insensitively.
func FilterByRegion(locations []ProbeLocation, regions []string) []ProbeLocation {
	wanted := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		wanted[strings.ToLower(strings.TrimSpace(r))] = struct{}{}
	}
	var out []ProbeLocation
	for _, loc := range locations {
		if _, ok := wanted[strings.ToLower(loc.Region)]; ok {
			out = append(out, loc)
		}
	}
	return out
}

// serverAddress adds the DNS port when server carries none.
func serverAddress(server string) string {
	if _, _, err := net.SplitHostPort(server); err == nil {
		return server
	}
	return net.JoinHostPort(strings.Trim(server, "[]"), "53")
}
