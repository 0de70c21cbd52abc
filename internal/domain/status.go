package domain

// Canonical status strings, in override-index order.
const (
	StatusOperational         = "Operational"
	StatusDegradedPerformance = "Degraded Performance"
	StatusPartialOutage       = "Partial Outage"
	StatusMajorOutage         = "Major Outage"
	StatusMaintenance         = "Maintenance"
	StatusNotAvailable        = "Not Available"
)

// WildcardKey is the override key that applies to every POP.
const WildcardKey = "*"

// statusCatalog is indexed by override values. Order is part of the stored format.
var statusCatalog = [...]string{
	StatusOperational,
	StatusDegradedPerformance,
	StatusPartialOutage,
	StatusMajorOutage,
	StatusMaintenance,
	StatusNotAvailable,
}

// StatusCatalog returns a copy of the canonical statuses in index order.
func StatusCatalog() []string {
	out := make([]string, len(statusCatalog))
	copy(out, statusCatalog[:])
	return out
}

// StatusAt returns the catalog entry at index, or false when index is out of range.
func StatusAt(index uint8) (string, bool) {
	if int(index) >= len(statusCatalog) {
		return "", false
	}
	return statusCatalog[index], true
}

// IsCanonicalStatus reports whether s is one of the catalog entries.
func IsCanonicalStatus(s string) bool {
	for _, c := range statusCatalog {
		if c == s {
			return true
		}
	}
	return false
}
