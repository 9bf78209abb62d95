package scoring

import (
	"fmt"
	"math"
)

// Weights defines the relative importance of each match dimension.
// All weights must sum to 1.0 (±0.001 tolerance).
type Weights struct {
	Sector  float64 `mapstructure:"sector" yaml:"sector" json:"sector"`
	Country float64 `mapstructure:"country" yaml:"country" json:"country"`
	Service float64 `mapstructure:"service" yaml:"service" json:"service"`
	Size    float64 `mapstructure:"size" yaml:"size" json:"size"`
	Keyword float64 `mapstructure:"keyword" yaml:"keyword" json:"keyword"`
}

func DefaultWeights() Weights {
	return Weights{
		Sector:  0.40,
		Country: 0.25,
		Service: 0.20,
		Size:    0.10,
		Keyword: 0.05,
	}
}

func (w Weights) Sum() float64 {
	return w.Sector + w.Country + w.Service + w.Size + w.Keyword
}

// Validate checks that weights are finite, none are negative, and they sum
// to 1.0.
func (w Weights) Validate() error {
	for name, v := range map[string]float64{
		"sector":  w.Sector,
		"country": w.Country,
		"service": w.Service,
		"size":    w.Size,
		"keyword": w.Keyword,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%s weight is not a finite number", name)
		}
		if v < 0 {
			return fmt.Errorf("negative %s weight: %f", name, v)
		}
	}
	if math.Abs(w.Sum()-1.0) > 0.001 {
		return fmt.Errorf("weights sum to %.4f, must sum to 1.0", w.Sum())
	}
	return nil
}

// IsZero reports whether no weight was configured at all.
func (w Weights) IsZero() bool {
	return w == Weights{}
}
