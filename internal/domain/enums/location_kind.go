package enums

type LocationKind string

const (
	LocationKindNone LocationKind = ""
	LocationKindCity LocationKind = "city"
	LocationKindGeo  LocationKind = "geo"
)
