package household

import "github.com/mosaicfin/mosaic/internal/domain"

// Aliases keep the repository and handler signatures short; the canonical
// definitions live in the domain package because the analytics modules share
// them.
type (
	Holding         = domain.Holding
	LiquidAsset     = domain.LiquidAsset
	StableAsset     = domain.StableAsset
	InsurancePolicy = domain.InsurancePolicy
)
