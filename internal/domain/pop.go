package domain

// PopRecord is one known point of presence as listed by the catalog.
type PopRecord struct {
	Code      string
	Name      string
	Group     string
	Latitude  float64
	Longitude float64
	Shield    *string // nil when the POP has no shield assignment
}

// LiveStatus maps POP code to the status string scraped from the monitoring
// feed. A nil map means live scraping was skipped for this request.
type LiveStatus map[string]string

// ResolvedStatus is the per-POP entry in a status report.
type ResolvedStatus struct {
	Code      string  `json:"code"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Group     string  `json:"group"`
	Shield    string  `json:"shield"`
	Status    string  `json:"status"`
}

// StatusReport is the body returned by the report routes.
type StatusReport struct {
	CurrentPOP    string           `json:"current_pop"`
	PopStatusData []ResolvedStatus `json:"pop_status_data"`
}
