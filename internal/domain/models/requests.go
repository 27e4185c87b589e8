package models

// SignalsRequest filters the asset signals of the latest snapshot.
type SignalsRequest struct {
	Asset string `query:"asset" validate:"omitempty,max=32"`
	Light string `query:"light" validate:"omitempty,oneof=green yellow red"`
	Limit int    `query:"limit" default:"50" validate:"gte=1,lte=100"`
}
