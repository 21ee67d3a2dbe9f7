package domain

import dErrors "clearledger/pkg/domain-errors"

// Capability is a privileged role required by a state-changing operation.
// Capabilities are checks against an authorization table, not identities:
// holding one says nothing about compliance status.
type Capability string

// The five privileged roles of the core.
const (
	CapabilityComplianceOfficer Capability = "compliance_officer"
	CapabilityTokenAdmin        Capability = "token_admin"
	CapabilityMinter            Capability = "minter"
	CapabilityTreasury          Capability = "treasury"
	CapabilityRiskOfficer       Capability = "risk_officer"
)

// validCapabilities is the single source of truth for supported capabilities.
var validCapabilities = map[Capability]bool{
	CapabilityComplianceOfficer: true,
	CapabilityTokenAdmin:        true,
	CapabilityMinter:            true,
	CapabilityTreasury:          true,
	CapabilityRiskOfficer:       true,
}

// ParseCapability constructs a Capability from external input.
func ParseCapability(s string) (Capability, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeBadRequest, "capability cannot be empty")
	}
	c := Capability(s)
	if !c.IsValid() {
		return "", dErrors.New(dErrors.CodeBadRequest, "unknown capability")
	}
	return c, nil
}

// IsValid checks if the capability is one of the supported roles.
func (c Capability) IsValid() bool {
	return validCapabilities[c]
}

// String returns the string representation of the capability.
func (c Capability) String() string {
	return string(c)
}
