package storage

// Location is one storage root configured by the user. External locations
// are removable or network-backed and may be offline.
type Location struct {
	Path     string
	External bool
}

// Settings exposes the configured storage locations to the scan pipeline.
// The pipeline treats this view as read-only.
type Settings struct {
	locations []Location
}

// NewSettings creates a Settings view over the given locations.
func NewSettings(locations []Location) *Settings {
	return &Settings{locations: locations}
}

// Locations returns the non-external storage locations.
func (s *Settings) Locations() []Location {
	var out []Location
	for _, loc := range s.locations {
		if !loc.External {
			out = append(out, loc)
		}
	}
	return out
}

// ExternalLocations returns the external storage locations.
func (s *Settings) ExternalLocations() []Location {
	var out []Location
	for _, loc := range s.locations {
		if loc.External {
			out = append(out, loc)
		}
	}
	return out
}

// All returns every configured location.
func (s *Settings) All() []Location {
	return append([]Location(nil), s.locations...)
}
