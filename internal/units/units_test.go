package units

import (
	"math"
	"testing"
)

func TestIsValidSpeedUnit(t *testing.T) {
	for _, u := range ValidSpeedUnits {
		if !IsValidSpeedUnit(u) {
			t.Fatalf("unit %q should be valid", u)
		}
	}
	if IsValidSpeedUnit("furlongs") {
		t.Fatal("furlongs should not be valid")
	}
}

func TestConvertSpeed(t *testing.T) {
	cases := []struct {
		unit string
		want float64
	}{
		{MPS, 1.0},
		{MPH, 2.2369362920544},
		{KMPH, 3.6},
		{KPH, 3.6},
		{"unknown", 1.0},
	}
	for _, tc := range cases {
		if got := ConvertSpeed(1.0, tc.unit); math.Abs(got-tc.want) > 1e-9 {
			t.Errorf("ConvertSpeed(1, %q) = %f, want %f", tc.unit, got, tc.want)
		}
	}
}

func TestDistanceConversions(t *testing.T) {
	if got := MMToMeters(1300); got != 1.3 {
		t.Fatalf("MMToMeters(1300) = %f", got)
	}
	if got := MMToCM(650); got != 65.0 {
		t.Fatalf("MMToCM(650) = %f", got)
	}
}

func TestCadenceHelpers(t *testing.T) {
	if got := StepsPerSecToCadence(2.0); got != 120.0 {
		t.Fatalf("StepsPerSecToCadence(2) = %f", got)
	}
	if got := CadenceFromStepTime(0.5); got != 120.0 {
		t.Fatalf("CadenceFromStepTime(0.5) = %f", got)
	}
	if got := CadenceFromStepTime(0); got != 0 {
		t.Fatalf("CadenceFromStepTime(0) = %f, want 0", got)
	}
}
