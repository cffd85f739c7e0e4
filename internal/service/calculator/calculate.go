package ridecalc

import (
	"math"

	"github.com/Temutjin2k/ride-dispatch/internal/domain/models"
)

const (
	averageSpeedKmh = 50 // средняя скорость
	earthRadiusM    = 6371000.0
)

// Tariff is a flat base fare plus distance and time rates.
type Tariff struct {
	Base      float64
	PerKm     float64
	PerMinute float64
}

// DefaultTariff is the economy tariff.
var DefaultTariff = Tariff{Base: 500, PerKm: 100, PerMinute: 50}

type Estimate struct {
	Distance float64 `json:"distance"` // meters
	Duration float64 `json:"duration"` // seconds
	Price    float64 `json:"price"`
}

type Calculator struct {
	tariff Tariff
}

func New(tariff Tariff) *Calculator {
	return &Calculator{tariff: tariff}
}

// DistanceMeters returns the great-circle distance between two points (формула гаверсинусов).
func DistanceMeters(p1, p2 models.Location) float64 {
	lat1Rad := p1.Latitude * math.Pi / 180
	lat2Rad := p2.Latitude * math.Pi / 180
	diffLat := (p2.Latitude - p1.Latitude) * math.Pi / 180
	diffLon := (p2.Longitude - p1.Longitude) * math.Pi / 180

	a := math.Pow(math.Sin(diffLat/2), 2) + math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Pow(math.Sin(diffLon/2), 2)
	angle := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusM * angle
}

// Duration estimates the trip time in whole seconds at the average city speed.
func (c *Calculator) Duration(distanceMeters float64) float64 {
	if distanceMeters <= 0 {
		return 0
	}
	hours := distanceMeters / 1000 / averageSpeedKmh
	return math.Ceil(hours * 3600)
}

// Quote prices a trip. The result is rounded to currency precision.
func (c *Calculator) Quote(distanceMeters, durationSeconds float64) float64 {
	fare := c.tariff.Base +
		distanceMeters/1000*c.tariff.PerKm +
		durationSeconds/60*c.tariff.PerMinute
	return models.RoundPrice(fare)
}

func (c *Calculator) Estimate(origin, destination models.Location) Estimate {
	distance := math.Round(DistanceMeters(origin, destination))
	duration := c.Duration(distance)
	return Estimate{
		Distance: distance,
		Duration: duration,
		Price:    c.Quote(distance, duration),
	}
}
