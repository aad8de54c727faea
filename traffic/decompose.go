// Package traffic implements the traffic-metrics aggregation core: the
// decomposition of raw detection samples and the live and daily windowed
// reductions built on top of it.
package traffic

import "github.com/datapolisx/trafficserver/models"

// Passenger-car-equivalent weights. A heavy vehicle occupies roughly ten
// times the road footprint of a motorbike.
const (
	pcuMotorbike = 0.25
	pcuCar       = 1.0
	pcuHeavy     = 2.5
)

// Dominant vehicle classifications.
const (
	CompositionMotorbike = "motorbike"
	CompositionCar       = "car"
	CompositionBigCar    = "bigcar"
)

// Load is the decomposition of one detection sample into the numbers the
// two aggregators consume.
type Load struct {
	// Raw is the unweighted vehicle count of the sample.
	Raw float64
	// PCU is the passenger-car-equivalent weighted load.
	PCU float64
	// Moto, Car and Heavy are the per-class counts, with truck, bus and
	// container folded into Heavy.
	Moto  int
	Car   int
	Heavy int
}

// Decompose converts one counts sample into its raw total, PCU load and
// composition contributions. Absent classes are zero; there are no
// failure modes.
func Decompose(v models.VehicleCounts) Load {
	heavy := v.Truck + v.Bus + v.Container
	return Load{
		Raw:   float64(v.Motorbike + v.Car + heavy),
		PCU:   float64(v.Motorbike)*pcuMotorbike + float64(v.Car)*pcuCar + float64(heavy)*pcuHeavy,
		Moto:  v.Motorbike,
		Car:   v.Car,
		Heavy: heavy,
	}
}
