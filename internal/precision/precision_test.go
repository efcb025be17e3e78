package precision

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func TestFormatToStep(t *testing.T) {
	cases := []struct {
		value, step, want string
	}{
		{"1.2345", "0.01", "1.23"},
		{"1.235", "0.01", "1.24"},
		{"3", "0.001", "3.000"},
		{"0.1", "0.1", "0.1"},
		{"123.456", "0.5", "123.5"},
		{"123.74", "0.5", "123.5"},
		{"123.76", "0.5", "124.0"},
		{"7", "5", "5"},
		{"8", "5", "10"},
	}
	for _, c := range cases {
		got, err := FormatToStep(dec(t, c.value), dec(t, c.step))
		if err != nil {
			t.Fatalf("format(%s, %s): %v", c.value, c.step, err)
		}
		if got != c.want {
			t.Fatalf("format(%s, %s) = %q, want %q", c.value, c.step, got, c.want)
		}
	}
}

// The classic 0.1+0.2 sum must survive rounding without binary float
// artifacts.
func TestNoFloatArtifacts(t *testing.T) {
	sum := dec(t, "0.1").Add(dec(t, "0.2"))
	got, err := FormatToStep(sum, dec(t, "0.1"))
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if got != "0.3" {
		t.Fatalf("got %q, want \"0.3\"", got)
	}
}

// Rounded output parsed back must sit within one step of the input.
func TestRoundTripWithinOneStep(t *testing.T) {
	values := []string{"0.123456789", "42.000001", "99999.5555", "0.00000001"}
	steps := []string{"0.1", "0.01", "0.0001", "0.00000001"}
	for _, v := range values {
		for _, s := range steps {
			value, step := dec(t, v), dec(t, s)
			out, err := FormatToStep(value, step)
			if err != nil {
				t.Fatalf("format(%s, %s): %v", v, s, err)
			}
			back := dec(t, out)
			if back.Sub(value).Abs().GreaterThan(step) {
				t.Fatalf("format(%s, %s) = %s drifts more than one step", v, s, out)
			}
		}
	}
}

func TestRejectsNonPositiveStep(t *testing.T) {
	if _, err := RoundToStep(dec(t, "1"), decimal.Zero); err == nil {
		t.Fatalf("expected error for zero step")
	}
}

func TestStepFromDigits(t *testing.T) {
	if got := StepFromDigits(2); got.String() != "0.01" {
		t.Fatalf("got %s", got)
	}
	if got := StepFromDigits(0); got.String() != "1" {
		t.Fatalf("got %s", got)
	}
}
