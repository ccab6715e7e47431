package models

import "time"

type UserToken struct {
	ID              int64     `json:"id"`
	UserID          int64     `json:"user_id"`
	AccessToken     string    `json:"-"`
	ItemID          string    `json:"item_id"`
	InstitutionID   string    `json:"institution_id"`
	InstitutionName string    `json:"institution_name"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// SaveTokenParams carries everything persisted for a newly linked item.
type SaveTokenParams struct {
	AccessToken     string
	ItemID          string
	PublicToken     string
	InstitutionID   string
	InstitutionName string
}

type ExchangeResult struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
}
