package protocol

import "slices"

// SupportedProtocolVersions lists the MCP revisions this endpoint speaks, newest first.
var SupportedProtocolVersions = []string{"2025-06-18", "2025-03-26", "2024-11-05"}

// LatestProtocolVersion is offered when a client asks for an unknown revision.
var LatestProtocolVersion = SupportedProtocolVersions[0]

// NegotiateVersion echoes requested when supported, otherwise returns the latest revision.
func NegotiateVersion(requested string) string {
	if slices.Contains(SupportedProtocolVersions, requested) {
		return requested
	}
	return LatestProtocolVersion
}

// Discovery is the static document served on GET.
type Discovery struct {
	OK              bool     `json:"ok"`
	Name            string   `json:"name"`
	Endpoint        string   `json:"endpoint"`
	Auth            []string `json:"auth"`
	ProtocolVersion string   `json:"protocolVersion"`
}

// NewDiscovery describes the endpoint at path. apiKeyHeader is the custom credential header.
func NewDiscovery(name, path, apiKeyHeader string) Discovery {
	return Discovery{
		OK:              true,
		Name:            name,
		Endpoint:        path,
		Auth:            []string{"header:" + apiKeyHeader, "bearer"},
		ProtocolVersion: LatestProtocolVersion,
	}
}
