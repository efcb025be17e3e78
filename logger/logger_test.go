package logger

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

func TestWithComponent(t *testing.T) {
	log := Logger()
	entry := log.WithComponent("test")
	if v, ok := entry.Entry.Data["component"]; !ok || v != "test" {
		t.Fatalf("component field missing: %v", entry.Entry.Data)
	}
}

func TestConfigureInvalidLevel(t *testing.T) {
	// Ensure environment variables do not override the provided level
	t.Setenv("LOG_LEVEL", "")

	log := Logger()
	if err := log.Configure("invalid", "json", "stdout", 0); err == nil {
		t.Fatalf("expected error for invalid level")
	}
}

func TestWithEnv(t *testing.T) {
	os.Setenv("FOO", "bar")
	log := Logger()
	entry := log.WithEnv("FOO")
	if v, ok := entry.Entry.Data["FOO"]; !ok || v != "bar" {
		t.Fatalf("env field not set: %v", entry.Entry.Data)
	}
}

func TestLogRequestEntryEmitsFieldsAndCounters(t *testing.T) {
	log := Logger()
	log.SetLevel(logrus.DebugLevel)
	var buf bytes.Buffer
	log.SetOutput(&buf)

	before := atomic.LoadInt64(&requestsTotal)
	entry := log.WithComponent("toobit")
	LogRequestEntry(entry, "GET", "/api/v1/time", 200, 42, 15*time.Millisecond)

	if got := atomic.LoadInt64(&requestsTotal); got != before+1 {
		t.Fatalf("request counter not incremented: %d -> %d", before, got)
	}

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if line["method"] != "GET" || line["path"] != "/api/v1/time" {
		t.Fatalf("request fields missing: %v", line)
	}
	if line["status"] != float64(200) || line["size"] != float64(42) {
		t.Fatalf("status/size fields missing: %v", line)
	}
	if line["component"] != "toobit" {
		t.Fatalf("component field missing: %v", line)
	}
}

func TestLogRequestEntryCountsExchangeFailures(t *testing.T) {
	log := Logger()
	log.SetOutput(io.Discard)

	LogRequestEntry(log.WithComponent("bingx"), "GET", "/openApi/swap/v2/quote/ticker", 503, 0, time.Millisecond)

	v, ok := exchanges.Load("bingx")
	if !ok {
		t.Fatal("exchange counters not created")
	}
	if n := atomic.LoadInt64(&v.(*exchangeStat).failures); n < 1 {
		t.Fatalf("failure not recorded: %d", n)
	}
}
