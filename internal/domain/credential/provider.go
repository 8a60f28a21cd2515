// internal/domain/credential/provider.go
package credential

import "slices"

// Connector names the authentication fields a provider requires.
type Connector string

const (
	ConnectorCustomerID  Connector = "customer_id"
	ConnectorRequestorID Connector = "requestor_id"
	ConnectorAPIKey      Connector = "api_key"
	ConnectorExtraArgs   Connector = "extra_args"
	ConnectorPlatform    Connector = "platform"
)

// Provider is a platform registered with the harvester.
type Provider struct {
	ID              int64
	Name            string
	IsActive        bool
	ServiceURL      string
	Releases        []string // Releases the platform registry lists, e.g. {"5", "5.1"}
	Connectors      []Connector
	DayOfMonth      int    // Day the provider's previous month becomes harvestable
	ReleaseOverride string // Manual release pin, empty when unset
}

// Requires reports whether the provider needs connector c.
func (p *Provider) Requires(c Connector) bool {
	return slices.Contains(p.Connectors, c)
}

// Connection grants a set of master reports for a provider, either
// consortium-wide (InstID == 0) or for one institution.
type Connection struct {
	ID        int64
	ProvID    int64
	InstID    int64
	IsActive  bool
	ReportIDs []int64
}

// ConsortiumWide reports whether the connection applies to every institution.
func (c *Connection) ConsortiumWide() bool {
	return c.InstID == 0
}

// Report is a master report definition (PR, DR, TR, IR).
type Report struct {
	ID       int64
	Name     string
	ParentID int64
}

// Institution is a consortium member.
type Institution struct {
	ID       int64
	Name     string
	IsActive bool
}
