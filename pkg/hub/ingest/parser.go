package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Variant identifies the parser profile applied to raw fetched bytes.
// Like Scheme, the set is closed and dispatch is exhaustive.
type Variant int

const (
	// VariantDefault expects the raw document to already carry the four
	// canonical collections. Covers the "", "file_json", "admin_v1" and
	// "admin_v2" profile names.
	VariantDefault Variant = iota
	// VariantOSMElements parses an OSM Overpass-style elements document:
	// named ways become roads, named nodes become POIs.
	VariantOSMElements
)

// String returns the variant's canonical profile name.
func (v Variant) String() string {
	switch v {
	case VariantOSMElements:
		return "osm_elements_v1"
	}
	return "default"
}

// ResolveVariant maps a parser profile's dataset_variant name to a Variant.
// Unknown names fall back to the default parser.
func ResolveVariant(name string) Variant {
	if name == "osm_elements_v1" {
		return VariantOSMElements
	}
	return VariantDefault
}

// Parse turns raw fetched bytes into the canonical payload shape according to
// the parser variant.
func Parse(raw []byte, variant Variant) (Payload, error) {
	switch variant {
	case VariantDefault:
		return parseDefault(raw)
	case VariantOSMElements:
		return parseOSMElements(raw)
	}
	return Payload{}, fmt.Errorf("unsupported parser variant: %d", variant)
}

func parseDefault(raw []byte) (Payload, error) {
	var p Payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return Payload{}, fmt.Errorf("parse canonical payload: %w", err)
	}
	if p.AdminDivisions == nil {
		p.AdminDivisions = []AdminDivision{}
	}
	if p.Roads == nil {
		p.Roads = []Road{}
	}
	if p.POIs == nil {
		p.POIs = []POI{}
	}
	if p.Places == nil {
		p.Places = []Place{}
	}
	return p, nil
}

// osmDocument is the subset of an Overpass response we read.
type osmDocument struct {
	Elements []osmElement `json:"elements"`
}

type osmElement struct {
	Type string            `json:"type"`
	ID   int64             `json:"id"`
	Lat  *float64          `json:"lat"`
	Lon  *float64          `json:"lon"`
	Tags map[string]string `json:"tags"`
}

func parseOSMElements(raw []byte) (Payload, error) {
	var doc osmDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return Payload{}, fmt.Errorf("parse osm elements: %w", err)
	}

	p := Payload{
		AdminDivisions: []AdminDivision{},
		Roads:          []Road{},
		POIs:           []POI{},
		Places:         []Place{},
	}
	for _, el := range doc.Elements {
		name := el.Tags["name"]
		if name == "" {
			continue
		}
		adcode := el.Tags["addr:adcode"]
		switch el.Type {
		case "way":
			p.Roads = append(p.Roads, Road{
				RoadID:         "osm-way-" + strconv.FormatInt(el.ID, 10),
				Name:           name,
				NormalizedName: name,
				AdminAdcode:    adcode,
			})
		case "node":
			category := el.Tags["amenity"]
			if category == "" {
				category = "unknown"
			}
			var centroid string
			if el.Lat != nil && el.Lon != nil {
				centroid = strconv.FormatFloat(*el.Lon, 'f', -1, 64) + "," + strconv.FormatFloat(*el.Lat, 'f', -1, 64)
			}
			p.POIs = append(p.POIs, POI{
				POIID:          "osm-node-" + strconv.FormatInt(el.ID, 10),
				Name:           name,
				NormalizedName: name,
				Category:       category,
				AdminAdcode:    adcode,
				Centroid:       centroid,
			})
		}
	}
	return p, nil
}
