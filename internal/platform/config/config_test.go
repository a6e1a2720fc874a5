package config

import (
	"testing"
	"time"

	kit "churnlearn/internal/platform/testkit"
)

func TestPrefixNests(t *testing.T) {
	c := New().Prefix("CORE_").Prefix("TRAIN_")
	if got := c.key("WINDOW"); got != "CORE_TRAIN_WINDOW" {
		t.Fatalf("key = %q", got)
	}
}

func TestStrings(t *testing.T) {
	c := New().Prefix("CORE_")
	t.Setenv("CORE_MODELS_DIR", "  /var/lib/churn ")
	if got := c.MustString("MODELS_DIR"); got != "/var/lib/churn" {
		t.Fatalf("MustString = %q", got)
	}
	kit.MustPanic(t, func() { _ = c.MustString("MISSING") })

	t.Setenv("CORE_BLANK", "   ")
	if got := c.MayString("BLANK", "weekly"); got != "weekly" {
		t.Fatalf("MayString blank = %q", got)
	}
}

func TestTypedValues(t *testing.T) {
	c := New().Prefix("T_")
	t.Setenv("T_WINDOW", " 4 ")
	t.Setenv("T_THRESHOLD", "0.35")
	t.Setenv("T_SHUFFLE", "true")
	t.Setenv("T_TTL", "90s")

	if got := c.MayInt("WINDOW", 1); got != 4 {
		t.Fatalf("MayInt = %d", got)
	}
	if got := c.MayFloat64("THRESHOLD", 0.5); got != 0.35 {
		t.Fatalf("MayFloat64 = %v", got)
	}
	if got := c.MayBool("SHUFFLE", false); !got {
		t.Fatalf("MayBool = %v", got)
	}
	if got := c.MayDuration("TTL", time.Minute); got != 90*time.Second {
		t.Fatalf("MayDuration = %v", got)
	}
}

func TestTypedValues_InvalidOrMissingUseDefault(t *testing.T) {
	c := New().Prefix("T_")
	t.Setenv("T_WINDOW", "four")
	t.Setenv("T_THRESHOLD", "high")
	t.Setenv("T_SHUFFLE", "maybe")
	t.Setenv("T_TTL", "soon")

	if got := c.MayInt("WINDOW", 2); got != 2 {
		t.Fatalf("MayInt = %d", got)
	}
	if got := c.MayFloat64("THRESHOLD", 0.5); got != 0.5 {
		t.Fatalf("MayFloat64 = %v", got)
	}
	if got := c.MayBool("SHUFFLE", true); !got {
		t.Fatalf("MayBool = %v", got)
	}
	if got := c.MayDuration("TTL", time.Minute); got != time.Minute {
		t.Fatalf("MayDuration = %v", got)
	}
	if got := c.MayInt("ABSENT", 7); got != 7 {
		t.Fatalf("MayInt absent = %d", got)
	}
}

func TestMayCSV(t *testing.T) {
	c := New().Prefix("CSV_")
	t.Setenv("CSV_TOKENS", " crm:a , ,billing:b,")
	got := c.MayCSV("TOKENS", nil)
	if len(got) != 2 || got[0] != "crm:a" || got[1] != "billing:b" {
		t.Fatalf("MayCSV = %#v", got)
	}

	t.Setenv("CSV_EMPTY", " , ,")
	if got := c.MayCSV("EMPTY", []string{"fallback"}); len(got) != 1 || got[0] != "fallback" {
		t.Fatalf("MayCSV blanks = %#v", got)
	}
	if got := c.MayCSV("ABSENT", nil); got != nil {
		t.Fatalf("MayCSV absent = %#v", got)
	}
}

func TestMayEnum(t *testing.T) {
	c := New().Prefix("E_")
	if got := c.MayEnum("MISSING", "roc_auc", "roc_auc", "log_loss"); got != "roc_auc" {
		t.Fatalf("default = %q", got)
	}
	if got := c.MayEnum("MISSING", "", "roc_auc"); got != "" {
		t.Fatalf("empty default = %q", got)
	}

	t.Setenv("E_SCORER", "LOG_LOSS")
	if got := c.MayEnum("SCORER", "roc_auc", "roc_auc", "log_loss"); got != "log_loss" {
		t.Fatalf("canonical value = %q", got)
	}

	t.Setenv("E_BAD", "accuracy")
	kit.MustPanic(t, func() { _ = c.MayEnum("BAD", "roc_auc", "roc_auc", "log_loss") })
}
