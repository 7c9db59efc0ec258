// Package options provides analytic Black-Scholes prices and greeks for
// European options. The convertible lattice engine is checked against these
// closed forms in its zero-credit boundary cases.
package options

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ErrInvalidInputs reports non-positive prices, volatility or expiry.
var ErrInvalidInputs = errors.New("invalid inputs")

// OptionType distinguishes calls from puts.
type OptionType int

const (
	Call OptionType = iota
	Put
)

var stdNormal = distuv.Normal{Mu: 0, Sigma: 1}

// Greeks holds the analytic sensitivities of a European option.
type Greeks struct {
	Delta float64
	Gamma float64
	Vega  float64
	Theta float64
}

// Price returns the Black-Scholes value of a European option on a stock with
// continuous dividend yield q. Rates are continuously compounded decimals and
// t is the time to expiry in years.
func Price(optType OptionType, s, k, r, q, sigma, t float64) (float64, error) {
	if err := validate(s, k, sigma, t); err != nil {
		return 0, err
	}
	if t == 0 {
		if optType == Call {
			return math.Max(s-k, 0), nil
		}
		return math.Max(k-s, 0), nil
	}

	d1, d2 := dValues(s, k, r, q, sigma, t)
	switch optType {
	case Call:
		return s*math.Exp(-q*t)*stdNormal.CDF(d1) - k*math.Exp(-r*t)*stdNormal.CDF(d2), nil
	case Put:
		return k*math.Exp(-r*t)*stdNormal.CDF(-d2) - s*math.Exp(-q*t)*stdNormal.CDF(-d1), nil
	default:
		return 0, fmt.Errorf("options.Price: unknown option type %d: %w", optType, ErrInvalidInputs)
	}
}

// PriceGreeks returns the option value together with its analytic greeks.
// Theta is reported per year of calendar time.
func PriceGreeks(optType OptionType, s, k, r, q, sigma, t float64) (float64, Greeks, error) {
	price, err := Price(optType, s, k, r, q, sigma, t)
	if err != nil {
		return 0, Greeks{}, err
	}
	if t == 0 {
		return price, Greeks{}, nil
	}

	d1, d2 := dValues(s, k, r, q, sigma, t)
	pdf := stdNormal.Prob(d1)
	discQ := math.Exp(-q * t)
	discR := math.Exp(-r * t)

	g := Greeks{
		Gamma: discQ * pdf / (s * sigma * math.Sqrt(t)),
		Vega:  s * discQ * pdf * math.Sqrt(t),
	}
	if optType == Call {
		g.Delta = discQ * stdNormal.CDF(d1)
		g.Theta = -s*discQ*pdf*sigma/(2*math.Sqrt(t)) -
			r*k*discR*stdNormal.CDF(d2) + q*s*discQ*stdNormal.CDF(d1)
	} else {
		g.Delta = -discQ * stdNormal.CDF(-d1)
		g.Theta = -s*discQ*pdf*sigma/(2*math.Sqrt(t)) +
			r*k*discR*stdNormal.CDF(-d2) - q*s*discQ*stdNormal.CDF(-d1)
	}
	return price, g, nil
}

func dValues(s, k, r, q, sigma, t float64) (float64, float64) {
	d1 := (math.Log(s/k) + (r-q+0.5*sigma*sigma)*t) / (sigma * math.Sqrt(t))
	return d1, d1 - sigma*math.Sqrt(t)
}

func validate(s, k, sigma, t float64) error {
	if s <= 0 {
		return fmt.Errorf("options: spot %.6f must be positive: %w", s, ErrInvalidInputs)
	}
	if k <= 0 {
		return fmt.Errorf("options: strike %.6f must be positive: %w", k, ErrInvalidInputs)
	}
	if sigma <= 0 {
		return fmt.Errorf("options: volatility %.6f must be positive: %w", sigma, ErrInvalidInputs)
	}
	if t < 0 {
		return fmt.Errorf("options: expiry %.6f must be non-negative: %w", t, ErrInvalidInputs)
	}
	return nil
}
