package weather

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Region is a forecast target: one of the fixed named regions or a one-off
// geolocated coordinate. The set of implementations is closed.
type Region interface {
	// Key identifies the region in the in-memory forecast mapping.
	Key() string
	// CacheKey returns the persistent cache identifier. ok is false for
	// regions that must never be cached.
	CacheKey() (key string, ok bool)
	// LabelKey references the display label for the region.
	LabelKey() string

	isRegion()
}

// NamedRegion is a city-identified forecast target.
type NamedRegion struct {
	City        string `json:"city"`
	Label       string `json:"labelKey"`
	DisplayName string `json:"displayName"`
}

func (r NamedRegion) Key() string { return r.City }
func (r NamedRegion) CacheKey() (string, bool) { return r.City, true }
func (r NamedRegion) LabelKey() string { return r.Label }
func (r NamedRegion) String() string { return r.City }
func (NamedRegion) isRegion() {}

var (
	Tokyo    = NamedRegion{City: "Tokyo", Label: "region_tokyo", DisplayName: "東京"}
	Hyogo    = NamedRegion{City: "Hyogo", Label: "region_hyogo", DisplayName: "兵庫"}
	Oita     = NamedRegion{City: "Oita", Label: "region_oita", DisplayName: "大分"}
	Hokkaido = NamedRegion{City: "Hokkaido", Label: "region_hokkaido", DisplayName: "北海道"}
)

var namedRegions = []NamedRegion{Tokyo, Hyogo, Oita, Hokkaido}

// NamedRegions returns the fixed named regions in display order.
func NamedRegions() []NamedRegion {
	out := make([]NamedRegion, len(namedRegions))
	copy(out, namedRegions)
	return out
}

// LookupNamedRegion finds a named region by its city identifier.
func LookupNamedRegion(city string) (NamedRegion, bool) {
	for _, r := range namedRegions {
		if r.City == city {
			return r, true
		}
	}
	return NamedRegion{}, false
}

// GeoRegion is a coordinate produced at runtime. Every value built with
// NewGeoRegion has its own identity, so two geolocated regions never share
// a forecast slot even when their coordinates match.
type GeoRegion struct {
	ID        uuid.UUID `json:"id"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// NewGeoRegion builds a geolocated region with a fresh identity.
func NewGeoRegion(lat, lon float64) GeoRegion {
	return GeoRegion{
		ID:        uuid.New(),
		Latitude:  lat,
		Longitude: lon,
	}
}

const geoKeyPrefix = "geo:"

func isGeoKey(key string) bool { return strings.HasPrefix(key, geoKeyPrefix) }

func (r GeoRegion) Key() string { return geoKeyPrefix + r.ID.String() }
func (GeoRegion) CacheKey() (string, bool) { return "", false }
func (GeoRegion) LabelKey() string { return "region_location" }
func (GeoRegion) isRegion() {}

func (r GeoRegion) String() string {
	return fmt.Sprintf("%.4f,%.4f", r.Latitude, r.Longitude)
}
