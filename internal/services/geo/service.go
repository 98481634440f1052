package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ivankudzin/pairbot/internal/config"
	"github.com/ivankudzin/pairbot/internal/domain/enums"
	"github.com/ivankudzin/pairbot/internal/domain/model"
)

const defaultBucketDegrees = 0.5

var (
	ErrValidation = errors.New("validation error")
	ErrNoCities   = errors.New("no cities configured")
)

type City struct {
	ID   string
	Name string
	Lat  float64
	Lon  float64
}

// Service derives the match key used to filter candidates and labels shared
// coordinates with the nearest configured city.
type Service struct {
	cities    []City
	bucketDeg float64
}

func NewService(cities []config.CityConfig, bucketDegrees float64) *Service {
	mapped := make([]City, 0, len(cities))
	for _, city := range cities {
		if strings.TrimSpace(city.ID) == "" || strings.TrimSpace(city.Name) == "" {
			continue
		}
		mapped = append(mapped, City{ID: city.ID, Name: city.Name, Lat: city.Lat, Lon: city.Lon})
	}

	if bucketDegrees <= 0 {
		bucketDegrees = defaultBucketDegrees
	}

	return &Service{
		cities:    mapped,
		bucketDeg: bucketDegrees,
	}
}

// MatchKey maps a location to the bucket candidates are filtered by. An empty
// key means the user imposes no location constraint. Bucket granularity is a
// tunable, not a correctness requirement.
func (s *Service) MatchKey(loc model.Location) string {
	switch loc.Kind {
	case enums.LocationKindCity:
		return cityKey(loc.City)
	case enums.LocationKindGeo:
		return s.bucketKey(loc.Lat, loc.Lon)
	default:
		return ""
	}
}

func (s *Service) ResolveNearestCity(lat, lon float64) (City, error) {
	if err := validateCoordinates(lat, lon); err != nil {
		return City{}, err
	}
	if len(s.cities) == 0 {
		return City{}, ErrNoCities
	}

	nearest := s.cities[0]
	bestDistance := haversineKM(lat, lon, nearest.Lat, nearest.Lon)
	for _, city := range s.cities[1:] {
		distance := haversineKM(lat, lon, city.Lat, city.Lon)
		if distance < bestDistance {
			bestDistance = distance
			nearest = city
		}
	}

	return nearest, nil
}

func (s *Service) ValidateCoordinates(lat, lon float64) error {
	return validateCoordinates(lat, lon)
}

func cityKey(name string) string {
	folded := strings.ToLower(strings.TrimSpace(name))
	if folded == "" {
		return ""
	}
	return "city:" + folded
}

func (s *Service) bucketKey(lat, lon float64) string {
	latBucket := int64(math.Round(lat / s.bucketDeg))
	lonBucket := int64(math.Round(lon / s.bucketDeg))
	return "geo:" + strconv.FormatInt(latBucket, 10) + ":" + strconv.FormatInt(lonBucket, 10)
}

func validateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return fmt.Errorf("invalid coordinates: %w", ErrValidation)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return fmt.Errorf("coordinates out of range: %w", ErrValidation)
	}
	return nil
}

func haversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371.0

	toRad := func(v float64) float64 { return v * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}
