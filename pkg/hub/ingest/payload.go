// Package ingest resolves a registered source's entrypoint into the canonical
// payload shape the trust data hub stores and publishes. Fetching and parsing
// are pure with respect to hub state: callers pass the entrypoint and parser
// variant, and get a Payload back.
package ingest

// AdminDivision is one administrative division row (province, city, district).
type AdminDivision struct {
	Adcode       string   `json:"adcode"`
	Name         string   `json:"name"`
	Level        string   `json:"level"`
	ParentAdcode string   `json:"parent_adcode,omitempty"`
	NameAliases  []string `json:"name_aliases,omitempty"`
}

// Road is one road/street row.
type Road struct {
	RoadID         string `json:"road_id"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name,omitempty"`
	AdminAdcode    string `json:"admin_adcode,omitempty"`
	GeometryRef    string `json:"geometry_ref,omitempty"`
}

// POI is one point-of-interest row.
type POI struct {
	POIID          string `json:"poi_id"`
	Name           string `json:"name"`
	NormalizedName string `json:"normalized_name,omitempty"`
	Category       string `json:"category,omitempty"`
	AdminAdcode    string `json:"admin_adcode,omitempty"`
	Centroid       string `json:"centroid,omitempty"`
}

// Place is one place-name row.
type Place struct {
	PlaceID        string  `json:"place_id"`
	Name           string  `json:"name"`
	NormalizedName string  `json:"normalized_name,omitempty"`
	Type           string  `json:"type,omitempty"`
	AdminAdcode    string  `json:"admin_adcode,omitempty"`
	Centroid       string  `json:"centroid,omitempty"`
	ConfidenceHint float64 `json:"confidence_hint,omitempty"`
}

// Payload is the canonical parsed form of one source capture: four ordered
// collections. Every parser variant produces this shape.
type Payload struct {
	AdminDivisions []AdminDivision `json:"admin_division"`
	Roads          []Road          `json:"roads"`
	POIs           []POI           `json:"pois"`
	Places         []Place         `json:"places"`
}

// RowCount returns the total number of rows across the four collections.
func (p Payload) RowCount() int {
	return len(p.AdminDivisions) + len(p.Roads) + len(p.POIs) + len(p.Places)
}
