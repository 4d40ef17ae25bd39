package location

import "context"

// StaticProvider always reports the same configured coordinate.
type StaticProvider struct {
	coord Coordinate
}

func NewStaticProvider(lat, lon float64) *StaticProvider {
	return &StaticProvider{coord: Coordinate{Latitude: lat, Longitude: lon}}
}

func (p *StaticProvider) LastKnownLocation(ctx context.Context) (Coordinate, bool, error) {
	if err := ctx.Err(); err != nil {
		return Coordinate{}, false, err
	}
	return p.coord, true, nil
}
