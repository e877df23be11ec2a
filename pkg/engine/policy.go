package engine

import "github.com/kass/go-geofence/pkg/models"

// Policy maps a containment outcome to a risk level and an action.
type Policy func(contained bool) (models.RiskLevel, models.Action)

// DefaultPolicy blocks locations inside a zone and allows the rest.
func DefaultPolicy(contained bool) (models.RiskLevel, models.Action) {
	if contained {
		return models.RiskHigh, models.ActionBlock
	}
	return models.RiskLow, models.ActionAllow
}
