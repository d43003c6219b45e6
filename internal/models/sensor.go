package models

import "time"

// SensorReading is a water-quality sample for a village.
type SensorReading struct {
	ID        string    `json:"id"`
	Village   string    `json:"village"`
	PH        float64   `json:"ph"`
	Turbidity float64   `json:"turbidity"`
	CreatedAt time.Time `json:"created_at"`
}
