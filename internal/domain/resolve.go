package domain

// ResolveStatus returns the status to report for popCode. It never fails:
// out-of-range override indices resolve through the documented fallbacks.
func ResolveStatus(popCode string, live LiveStatus, overrides OverrideMap) string {
	if index, ok := overrides[WildcardKey]; ok {
		if status, valid := StatusAt(index); valid {
			return status
		}
		// An unusable wildcard skips per-POP overrides entirely.
		return liveOrDefault(popCode, live)
	}

	if index, ok := overrides[popCode]; ok {
		if status, valid := StatusAt(index); valid {
			return status
		}
		return StatusNotAvailable
	}

	return liveOrDefault(popCode, live)
}

func liveOrDefault(popCode string, live LiveStatus) string {
	if status, ok := live[popCode]; ok {
		return status
	}
	return StatusNotAvailable
}

// BuildReport resolves every catalog entry, preserving catalog order.
func BuildReport(currentPOP string, catalog []PopRecord, live LiveStatus, overrides OverrideMap) StatusReport {
	data := make([]ResolvedStatus, 0, len(catalog))
	for _, pop := range catalog {
		shield := ""
		if pop.Shield != nil {
			shield = *pop.Shield
		}
		data = append(data, ResolvedStatus{
			Code:      pop.Code,
			Name:      pop.Name,
			Latitude:  pop.Latitude,
			Longitude: pop.Longitude,
			Group:     pop.Group,
			Shield:    shield,
			Status:    ResolveStatus(pop.Code, live, overrides),
		})
	}
	return StatusReport{CurrentPOP: currentPOP, PopStatusData: data}
}
