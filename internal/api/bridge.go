package api

import (
	"net/http"
	"regexp"
	"strconv"
)

// Floors applied to the resource-graph config documents. Clients below
// them assume the bridge cannot stream over DTLS.
const (
	minAPIVersion = "1.24.0"
	minSwVersion  = 1944193080
	localBridgeID = "LOCALHOST"
)

var apiVersionPattern = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)`)

type claimSuccess struct {
	Username  string `json:"username"`
	ClientKey string `json:"clientkey"`
}

// handleClaim hands out the static identity.
//
// POST /api
// Response: [{"success":{"username":U,"clientkey":K}}]
func (s *Server) handleClaim(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, []map[string]claimSuccess{{
		"success": {Username: s.bridge.Username, ClientKey: s.bridge.ClientKey},
	}})
}

// handleSmallConfig returns the unauthenticated config subset.
//
// GET /api/config
func (s *Server) handleSmallConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.SmallConfig())
}

// handleFullConfig returns the bridge config document.
//
// GET /api/{user}/config
func (s *Server) handleFullConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.backend.FullConfig())
}

// bridgeConfig builds config.json from the configured identity.
func (s *Server) bridgeConfig() map[string]any {
	b := s.bridge
	return map[string]any{
		"name":             b.Name,
		"zigbeechannel":    25,
		"bridgeid":         b.BridgeID,
		"mac":              b.MAC,
		"dhcp":             true,
		"ipaddress":        "127.0.0.1",
		"netmask":          "255.255.255.0",
		"gateway":          "127.0.0.1",
		"modelid":          b.ModelID,
		"datastoreversion": "98",
		"swversion":        b.SwVersion,
		"apiversion":       b.APIVersion,
		"linkbutton":       false,
		"portalservices":   false,
		"factorynew":       false,
		"replacesbridgeid": nil,
		"starterkitid":     "",
		"whitelist": map[string]any{
			b.Username: map[string]string{"name": "bridgesim#client"},
		},
	}
}

// smallConfig picks the fields served at /api/config.
func smallConfig(full map[string]any, keys ...string) map[string]any {
	small := make(map[string]any, len(keys))
	for _, k := range keys {
		small[k] = full[k]
	}
	return small
}

// applyClipV2Floors forces the identity the resource-graph certificate is
// issued for and raises apiversion and swversion to their floors.
func applyClipV2Floors(cfg map[string]any) {
	cfg["bridgeid"] = localBridgeID

	if v, _ := cfg["apiversion"].(string); apiVersionBelowFloor(v) {
		cfg["apiversion"] = minAPIVersion
	}
	if v, _ := cfg["swversion"].(string); v != "" {
		if sw, err := strconv.ParseInt(v, 10, 64); err == nil && sw < minSwVersion {
			cfg["swversion"] = strconv.Itoa(minSwVersion)
		}
	}
}

// apiVersionBelowFloor reports whether v is older than 1.24.0. Versions
// that do not parse are treated as too old.
func apiVersionBelowFloor(v string) bool {
	m := apiVersionPattern.FindStringSubmatch(v)
	if m == nil {
		return true
	}
	major, _ := strconv.Atoi(m[1])
	minor, _ := strconv.Atoi(m[2])
	return major < 1 || (major == 1 && minor < 24)
}
