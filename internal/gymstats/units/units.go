package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// Unit is the weight unit used for display and input.
// Storage is always kilograms.
type Unit string

const (
	Kilograms Unit = "kg"
	Pounds    Unit = "lb"
)

const kgPerPound = 0.45359237

func (u Unit) String() string {
	return string(u)
}

func (u Unit) IsValid() bool {
	switch u {
	case Kilograms, Pounds:
		return true
	default:
		return false
	}
}

// ParseUnit parses a unit string, defaulting to kilograms for an empty value.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "kg", "kgs", "kilos", "kilograms":
		return Kilograms, nil
	case "lb", "lbs", "pounds":
		return Pounds, nil
	default:
		return "", fmt.Errorf("unknown weight unit: %s", s)
	}
}

// ToStorage converts a value entered in the given unit to kilograms.
func ToStorage(value float64, unit Unit) float64 {
	if unit == Pounds {
		return value * kgPerPound
	}
	return value
}

// FromStorage converts a stored kilogram value to the given display unit.
func FromStorage(kg float64, unit Unit) float64 {
	if unit == Pounds {
		return kg / kgPerPound
	}
	return kg
}

// Round rounds to one decimal place, which is what the client displays.
func Round(v float64) float64 {
	return math.Round(v*10) / 10
}

// FormatWeight renders a stored kilogram value, e.g. "80 kg" or "176.4 lb".
func FormatWeight(kg float64, unit Unit) string {
	v := Round(FromStorage(kg, unit))
	return strconv.FormatFloat(v, 'f', -1, 64) + " " + unit.String()
}

// FormatCountdown renders a rest countdown as m:ss.
func FormatCountdown(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(math.Ceil(d.Seconds()))
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// FormatElapsed renders elapsed workout time as mm:ss, or h:mm:ss past the hour.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Seconds())
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
