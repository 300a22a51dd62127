package models

import "time"

type Case struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	Cost      int64       `json:"cost"`
	Prizes    []CasePrize `json:"prizes"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// Prize is shared between cases and deduplicated by cost.
type Prize struct {
	ID   int64 `json:"id"`
	Cost int64 `json:"cost"`
}

// CasePrize is one row of a case's prize table, in stored order.
type CasePrize struct {
	PrizeID     int64   `json:"prize_id"`
	Cost        int64   `json:"cost"`
	Probability float64 `json:"probability"`
}

// PrizeSpec is the input shape for creating or replacing a case's prize table.
type PrizeSpec struct {
	Cost        int64   `json:"cost"`
	Probability float64 `json:"probability"`
}
