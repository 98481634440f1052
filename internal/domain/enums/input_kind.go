package enums

type InputKind string

const (
	InputKindText     InputKind = "text"
	InputKindLocation InputKind = "location"
	InputKindPhoto    InputKind = "photo"
)
