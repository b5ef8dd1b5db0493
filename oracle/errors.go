package oracle

import (
	"fmt"

	"github.com/itsneelabh/sentinel-swarm/core"
)

// OracleError kinds (spec.md §7).
const (
	KindTimeout              = "timeout"
	KindProviderError        = "provider_error"
	KindProviderUnavailable  = "provider_unavailable"
	KindAuthFailed           = "auth_failed"
	KindRateLimited          = "rate_limited"
	KindInvalidRequest       = "invalid_request"
	KindDeserialize          = "deserialize"
	KindNoProvidersAvailable = "no_providers_available"
)

// OracleError wraps a provider failure in the package's SwarmError shape,
// tagging which provider produced it.
type OracleError struct {
	*core.SwarmError
	Provider string
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle[%s]: %s", e.Provider, e.SwarmError.Error())
}

func newOracleError(provider, kind string, err error) *OracleError {
	return &OracleError{SwarmError: core.NewSwarmError("oracle.Complete", kind, err), Provider: provider}
}
