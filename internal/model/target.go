package model

import "time"

// Target is a reference location listings are compared against.
type Target struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"-"`
	Name        string    `json:"name"`
	Address     *string   `json:"address"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TargetInput is a target upsert request. Exactly one of Address or the
// Lat/Lng pair must be set.
type TargetInput struct {
	ID      *string
	Name    *string
	Address *string
	Lat     *float64
	Lng     *float64
}

// InterestingTarget is a saved point of interest. Unlike Target, saving one
// never merges into an existing record unless its id is given.
type InterestingTarget struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"-"`
	Name        string    `json:"name"`
	Address     *string   `json:"address"`
	Lat         float64   `json:"lat"`
	Lng         float64   `json:"lng"`
	UpdatedAt   time.Time `json:"updated_at"`
}
