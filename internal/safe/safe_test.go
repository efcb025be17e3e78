package safe

import (
	"testing"
	"time"
)

const fixture = `{
	"price": "0.1",
	"qty": 2.5,
	"count": 7,
	"active": true,
	"quoted": "false",
	"ts": 1700000000000,
	"created_at": "2024-01-02T03:04:05.000Z",
	"nested": {"fee": "0.001"},
	"rows": [{"a": 1}],
	"empty": "",
	"nil": null
}`

func mustParse(t *testing.T) map[string]any {
	t.Helper()
	m, err := ParseObject([]byte(fixture))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return m
}

func TestStringCandidateKeys(t *testing.T) {
	m := mustParse(t)
	if got := String(m, "missing", "price"); got != "0.1" {
		t.Fatalf("got %q", got)
	}
	// json numbers render as their literal text
	if got := String(m, "qty"); got != "2.5" {
		t.Fatalf("got %q", got)
	}
	if got := String(m, "nil", "empty"); got != "" {
		t.Fatalf("expected empty sentinel, got %q", got)
	}
}

func TestDecimalExactness(t *testing.T) {
	m := mustParse(t)
	d := Decimal(m, "qty")
	if !d.Valid || d.Decimal.String() != "2.5" {
		t.Fatalf("got %+v", d)
	}
	// "0.1" must round-trip exactly, no binary float artifacts
	p := Decimal(m, "price")
	if !p.Valid || p.Decimal.String() != "0.1" {
		t.Fatalf("got %+v", p)
	}
	if Decimal(m, "missing").Valid {
		t.Fatalf("absent key must be the invalid sentinel")
	}
}

func TestIntAndBool(t *testing.T) {
	m := mustParse(t)
	if v, ok := Int(m, "count"); !ok || v != 7 {
		t.Fatalf("got %d %v", v, ok)
	}
	if _, ok := Int(m, "qty"); ok {
		t.Fatalf("2.5 is not an integer")
	}
	if v := IntOr(m, 42, "missing"); v != 42 {
		t.Fatalf("got %d", v)
	}
	if v, ok := Bool(m, "active"); !ok || !v {
		t.Fatalf("got %v %v", v, ok)
	}
	if v, ok := Bool(m, "quoted"); !ok || v {
		t.Fatalf("quoted false not parsed: %v %v", v, ok)
	}
}

func TestTimes(t *testing.T) {
	m := mustParse(t)
	ts := MillisTime(m, "ts")
	if ts.Unix() != 1700000000 {
		t.Fatalf("got %v", ts)
	}
	iso := ISOTime(m, "created_at")
	if iso != time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) {
		t.Fatalf("got %v", iso)
	}
	if !MillisTime(m, "missing").IsZero() {
		t.Fatalf("absent timestamp must be zero time")
	}
}

func TestNested(t *testing.T) {
	m := mustParse(t)
	nested := Map(m, "nested")
	if nested == nil || String(nested, "fee") != "0.001" {
		t.Fatalf("got %v", nested)
	}
	rows := Slice(m, "rows")
	if len(rows) != 1 || Object(rows[0]) == nil {
		t.Fatalf("got %v", rows)
	}
}

func TestIdempotentExtraction(t *testing.T) {
	m := mustParse(t)
	first := Decimal(m, "price")
	second := Decimal(m, "price")
	if first.Decimal.String() != second.Decimal.String() {
		t.Fatalf("extraction mutated state: %v vs %v", first, second)
	}
}
