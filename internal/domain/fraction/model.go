package fraction

import "time"

// Field names as exchanged with the prediction backend, in domain order
// from the coarsest sieve to the fines.
const (
	Taux2mm   = "taux_2mm"
	Taux1mm   = "taux_1mm"
	Taux500um = "taux_500um"
	Taux250um = "taux_250um"
	Taux0     = "taux_0"
)

// Names lists the five fractions in the fixed domain order.
var Names = []string{Taux2mm, Taux1mm, Taux500um, Taux250um, Taux0}

var labels = map[string]string{
	Taux2mm:   "> 2 mm",
	Taux1mm:   "1 – 2 mm",
	Taux500um: "500 µm – 1 mm",
	Taux250um: "250 – 500 µm",
	Taux0:     "< 250 µm",
}

// Label returns the display label of a fraction name.
func Label(name string) string {
	if l, ok := labels[name]; ok {
		return l
	}
	return name
}

// Set holds the five granulometric percentages.
type Set struct {
	Taux2mm   float64 `json:"taux_2mm"`
	Taux1mm   float64 `json:"taux_1mm"`
	Taux500um float64 `json:"taux_500um"`
	Taux250um float64 `json:"taux_250um"`
	Taux0     float64 `json:"taux_0"`
}

// Submission is a validated fraction set with its batch metadata.
type Submission struct {
	Fractions   Set       `json:"fractions"`
	BatchNumber string    `json:"batchNumber,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
}

// Running is the live total shown under the form.
type Running struct {
	Total   float64 `json:"total"`
	Display string  `json:"display"`
	Warn    bool    `json:"warn"`
}
