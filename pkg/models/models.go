package models

import (
	"math"
	"time"
)

// Location represents a geographic location with latitude and longitude
type Location struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the location is finite and inside the WGS84 range
func (l Location) Valid() bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) || math.IsInf(l.Lat, 0) || math.IsInf(l.Lon, 0) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

// BoundingBox represents a rectangular area defined by two corners
type BoundingBox struct {
	BottomLeft Location `json:"bottom_left"`
	TopRight   Location `json:"top_right"`
}

// Contains reports whether loc lies inside the box, edges included
func (b BoundingBox) Contains(loc Location) bool {
	return loc.Lat >= b.BottomLeft.Lat && loc.Lat <= b.TopRight.Lat &&
		loc.Lon >= b.BottomLeft.Lon && loc.Lon <= b.TopRight.Lon
}

// Union returns the smallest box covering both b and o
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	return BoundingBox{
		BottomLeft: Location{Lat: math.Min(b.BottomLeft.Lat, o.BottomLeft.Lat), Lon: math.Min(b.BottomLeft.Lon, o.BottomLeft.Lon)},
		TopRight:   Location{Lat: math.Max(b.TopRight.Lat, o.TopRight.Lat), Lon: math.Max(b.TopRight.Lon, o.TopRight.Lon)},
	}
}

// ZoneRecord is a zone as delivered by a source, before validation.
// Boundary[0] is the outer ring; any further rings are holes.
type ZoneRecord struct {
	ID       string       `json:"id"`
	Name     string       `json:"name,omitempty"`
	Operator string       `json:"operator,omitempty"`
	Region   string       `json:"region,omitempty"`
	Boundary [][]Location `json:"boundary"`
}

// ZoneRef identifies a zone in query results
type ZoneRef struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Operator string `json:"operator,omitempty"`
	Region   string `json:"region,omitempty"`
}

// RiskLevel of a checked location
type RiskLevel string

const (
	RiskHigh RiskLevel = "HIGH"
	RiskLow  RiskLevel = "LOW"
)

// Action recommended for a checked location
type Action string

const (
	ActionBlock Action = "BLOCK"
	ActionAllow Action = "ALLOW"
)

// ContainmentResult is the outcome of a single containment check.
// Zone is set only when Contained is true.
type ContainmentResult struct {
	Contained       bool      `json:"contained"`
	Zone            *ZoneRef  `json:"zone,omitempty"`
	RiskLevel       RiskLevel `json:"risk_level"`
	Action          Action    `json:"action"`
	Location        Location  `json:"location"`
	SnapshotVersion string    `json:"snapshot_version"`
}

// NearestResult is the closest zone to a query location
type NearestResult struct {
	Zone           ZoneRef `json:"zone"`
	DistanceMeters float64 `json:"distance_meters"`
}

// DistanceKm returns the distance in kilometers
func (r NearestResult) DistanceKm() float64 {
	return r.DistanceMeters / 1000
}

// Stats summarises the active snapshot
type Stats struct {
	TotalZones      int            `json:"total_zones"`
	BufferMeters    float64        `json:"buffer_meters"`
	RejectedRecords int            `json:"rejected_records"`
	WithName        int            `json:"with_name"`
	WithOperator    int            `json:"with_operator"`
	ByRegion        map[string]int `json:"by_region"`
	Version         string         `json:"version"`
	BuiltAt         time.Time      `json:"built_at"`
	Degraded        bool           `json:"degraded"`
}
