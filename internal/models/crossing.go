package models

// CatalogEntry is one crossing of the bundled catalog.
type CatalogEntry struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// RemoteRecord is one crossing as published by the upstream listing.
// Every optional field is a pointer so that a missing value stays
// distinguishable from an empty one.
type RemoteRecord struct {
	ID                          *int
	Name                        string
	PriorityStatus              *string
	Province                    *string
	NeighborCountry             *string
	ScheduleExpressionPrimary   *string
	ScheduleExpressionSecondary *string
}

// MergedStatus is the published unit: catalog identity joined with the
// upstream display fields and the rendered schedule.
type MergedStatus struct {
	ID                          int     `json:"id"`
	Name                        string  `json:"name"`
	Status                      *string `json:"status"`
	Province                    *string `json:"province"`
	NeighborCountry             *string `json:"neighbor_country"`
	ScheduleExpressionPrimary   *string `json:"schedule_primary"`
	ScheduleExpressionSecondary *string `json:"schedule_secondary"`
	ScheduleText                *string `json:"schedule_text"`
	URL                         string  `json:"url,omitempty"`
}
