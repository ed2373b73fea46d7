package model

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Bounds is a bounding box.
type Bounds struct {
	South float64 `json:"south"`
	West  float64 `json:"west"`
	North float64 `json:"north"`
	East  float64 `json:"east"`
}

// Country is a country name plus ISO 3166-1 alpha-2 code.
type Country struct {
	Name string `json:"name,omitempty"`
	Code string `json:"code,omitempty"`
}

// Place is a storable geocoding result: an address-like record plus optional
// polygon boundaries. A Place has no intrinsic primary key; identity for
// storage purposes is the compiled key, or ObjectHash for the relational
// backend.
type Place struct {
	Coordinates  *Coordinates `json:"coordinates,omitempty"`
	Bounds       *Bounds      `json:"bounds,omitempty"`
	StreetNumber string       `json:"street_number,omitempty"`
	StreetName   string       `json:"street_name,omitempty"`
	PostalCode   string       `json:"postal_code,omitempty"`
	Locality     string       `json:"locality,omitempty"`
	SubLocality  string       `json:"sub_locality,omitempty"`
	Country      Country      `json:"country,omitempty"`
	Timezone     string       `json:"timezone,omitempty"`
	Locale       string       `json:"locale,omitempty"`
	ProvidedBy   string       `json:"provided_by,omitempty"`
	AdminLevels  AdminLevels  `json:"admin_levels,omitempty"`
	Polygons     []Polygon    `json:"polygons,omitempty"`
}

// ObjectHash returns the sha256 hex of the canonical JSON form. It is the
// place's identity in the relational schema.
func (p Place) ObjectHash() string {
	data, err := json.Marshal(p)
	if err != nil {
		// Place marshals from plain fields; this cannot fail at runtime.
		panic(eris.Wrap(err, "model: marshal place for hash"))
	}
	return fmt.Sprintf("%x", sha256.Sum256(data))
}

// MarshalJSON serializes the collection as a plain array, never null.
func (c AdminLevels) MarshalJSON() ([]byte, error) {
	if c.levels == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(c.levels)
}

// UnmarshalJSON restores the collection, re-validating uniqueness and range.
func (c *AdminLevels) UnmarshalJSON(data []byte) error {
	var levels []AdminLevel
	if err := json.Unmarshal(data, &levels); err != nil {
		return eris.Wrap(err, "model: unmarshal admin levels")
	}
	parsed, err := NewAdminLevels(levels...)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
