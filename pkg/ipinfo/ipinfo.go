// Package ipinfo decodes the exit-address documents returned by IP echo
// services such as ipinfo.io and vendor checkers.
package ipinfo

import (
	"encoding/json"
	"fmt"
	"net"
	"strings"
)

type IPInfoResponse struct {
	IP       string `json:"ip"`
	Hostname string `json:"hostname"`
	City     string `json:"city"`
	Region   string `json:"region"`
	Country  string `json:"country"`
	Org      string `json:"org"`
	Timezone string `json:"timezone"`
}

// soaxResponse is the shape of checker.soax.com/api/ipinfo
type soaxResponse struct {
	Status bool `json:"status"`
	Data   struct {
		City        string `json:"city"`
		CountryCode string `json:"country_code"`
		IP          string `json:"ip"`
		ISP         string `json:"isp"`
		Region      string `json:"region"`
	} `json:"data"`
}

// Parse accepts the ipinfo.io document, the SOAX checker document, or a bare
// address as returned by plain-text echo services.
func Parse(body []byte) (IPInfoResponse, error) {
	trimmed := strings.TrimSpace(string(body))
	if ip := net.ParseIP(trimmed); ip != nil {
		return IPInfoResponse{IP: ip.String()}, nil
	}

	var info IPInfoResponse
	if err := json.Unmarshal(body, &info); err != nil {
		return IPInfoResponse{}, fmt.Errorf("failed to decode ip info: %w", err)
	}
	if info.IP != "" {
		return info, nil
	}

	var soax soaxResponse
	if err := json.Unmarshal(body, &soax); err == nil && soax.Data.IP != "" {
		return IPInfoResponse{
			IP:      soax.Data.IP,
			City:    soax.Data.City,
			Region:  soax.Data.Region,
			Country: strings.ToUpper(soax.Data.CountryCode),
			Org:     soax.Data.ISP,
		}, nil
	}
	return IPInfoResponse{}, fmt.Errorf("no ip in response")
}

// ASN splits the "AS7922 Comcast Cable" org field into number and name.
func (r IPInfoResponse) ASN() (number, org string) {
	orgParts := strings.SplitN(r.Org, " ", 2)
	if len(orgParts) == 2 && strings.HasPrefix(orgParts[0], "AS") {
		return strings.TrimPrefix(orgParts[0], "AS"), orgParts[1]
	}
	return "", r.Org
}
