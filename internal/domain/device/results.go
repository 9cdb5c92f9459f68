package device

// Transition outcomes are a closed, caller-facing vocabulary. Expected
// business outcomes are values, never errors; only infrastructure
// failures surface as errors.

// ClaimOutcome classifies a claim attempt.
type ClaimOutcome string

const (
	ClaimOutcomeClaimed      ClaimOutcome = "claimed"
	ClaimOutcomeAlreadyOwned ClaimOutcome = "already_owned"
	ClaimOutcomeOwnedByOther ClaimOutcome = "owned_by_other"
	ClaimOutcomeNotClaimable ClaimOutcome = "not_claimable"
)

// UnclaimOutcome classifies an unclaim attempt.
type UnclaimOutcome string

const (
	UnclaimOutcomeUnclaimed UnclaimOutcome = "unclaimed"
	UnclaimOutcomeNotFound  UnclaimOutcome = "not_found"
	UnclaimOutcomeNotOwned  UnclaimOutcome = "not_owned"
	UnclaimOutcomeNotActive UnclaimOutcome = "not_active"
)

// RevokeOutcome classifies a revoke attempt.
type RevokeOutcome string

const (
	RevokeOutcomeRevoked        RevokeOutcome = "revoked"
	RevokeOutcomeNotFound       RevokeOutcome = "not_found"
	RevokeOutcomeAlreadyRevoked RevokeOutcome = "already_revoked"
)

// ReactivateOutcome classifies a reactivate attempt.
type ReactivateOutcome string

const (
	ReactivateOutcomeReactivated   ReactivateOutcome = "reactivated"
	ReactivateOutcomeNotFound      ReactivateOutcome = "not_found"
	ReactivateOutcomeAlreadyActive ReactivateOutcome = "already_active"
)
