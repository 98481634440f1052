package model

import "github.com/ivankudzin/pairbot/internal/domain/enums"

// Location carries at most one active representation: a manually entered city
// or a shared coordinate pair. Kind none means no location constraint.
type Location struct {
	Kind enums.LocationKind `json:"kind"`
	City string             `json:"city"`
	Lat  float64            `json:"lat"`
	Lon  float64            `json:"lon"`
}
