package extractors

import "github.com/jalrakshak/outbreak-engine/internal/models"

// Water-quality parameters reported on automatic alerts.
const (
	ParameterPH        = "pH"
	ParameterTurbidity = "turbidity"
)

// SensorBreach describes the threshold a reading crossed.
type SensorBreach struct {
	Reading   models.SensorReading
	Parameter string
	Value     float64
}

// SensorExtractor classifies water-quality readings against safe limits.
type SensorExtractor struct {
	phMin        float64
	turbidityMax float64
}

// NewSensorExtractor creates a classifier flagging ph below phMin or turbidity above turbidityMax.
func NewSensorExtractor(phMin, turbidityMax float64) *SensorExtractor {
	return &SensorExtractor{phMin: phMin, turbidityMax: turbidityMax}
}

// Thresholds returns the configured limits.
func (e *SensorExtractor) Thresholds() (phMin, turbidityMax float64) {
	return e.phMin, e.turbidityMax
}

// Classify reports the breached parameter for a reading. Acidity takes priority: a
// reading breaching both limits is reported as a pH breach only.
func (e *SensorExtractor) Classify(reading models.SensorReading) (SensorBreach, bool) {
	switch {
	case reading.PH < e.phMin:
		return SensorBreach{Reading: reading, Parameter: ParameterPH, Value: reading.PH}, true
	case reading.Turbidity > e.turbidityMax:
		return SensorBreach{Reading: reading, Parameter: ParameterTurbidity, Value: reading.Turbidity}, true
	default:
		return SensorBreach{}, false
	}
}

// Detect classifies every reading, preserving input order and skipping safe readings.
func (e *SensorExtractor) Detect(readings []models.SensorReading) []SensorBreach {
	breaches := make([]SensorBreach, 0, len(readings))
	for _, reading := range readings {
		if breach, ok := e.Classify(reading); ok {
			breaches = append(breaches, breach)
		}
	}
	return breaches
}
