package domain

// GovEventType identifies one class of governance parameter change.
type GovEventType string

// Governance event types exposed by the indexer.
const (
	GovSetCaps                   GovEventType = "gov-set-caps"
	GovSetConfigFlags            GovEventType = "gov-set-config-flags"
	GovSetFeeReceiver            GovEventType = "gov-set-fee-receiver"
	GovSetGovernorAdmin          GovEventType = "gov-set-governor-admin"
	GovSetHookConfig             GovEventType = "gov-set-hook-config"
	GovSetInterestFee            GovEventType = "gov-set-interest-fee"
	GovSetInterestRateModel      GovEventType = "gov-set-interest-rate-model"
	GovSetLiquidationCoolOffTime GovEventType = "gov-set-liquidation-cool-off-time"
	GovSetLTV                    GovEventType = "gov-set-ltv"
	GovSetMaxLiquidationDiscount GovEventType = "gov-set-max-liquidation-discount"
)

// AllGovEventTypes lists every monitored governance event type.
var AllGovEventTypes = []GovEventType{
	GovSetCaps,
	GovSetConfigFlags,
	GovSetFeeReceiver,
	GovSetGovernorAdmin,
	GovSetHookConfig,
	GovSetInterestFee,
	GovSetInterestRateModel,
	GovSetLiquidationCoolOffTime,
	GovSetLTV,
	GovSetMaxLiquidationDiscount,
}

// GovEvent is one governance parameter update emitted by a vault.
type GovEvent struct {
	EventType      GovEventType
	VaultAddress   string
	ChainID        string
	BlockNumber    int64
	BlockTimestamp int64
	TxnHash        string
	// Params carries the event-type-specific fields verbatim; the
	// monitor forwards them without interpreting contract semantics.
	Params map[string]string
}
