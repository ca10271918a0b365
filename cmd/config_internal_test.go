package cmd

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func TestApplyIntDefault(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("rate-limit", 0, "")

	var applied int
	applyIntDefault(flags, "rate-limit", 15, func(v int) {
		applied = v
	})
	if applied != 15 {
		t.Fatalf("expected setter to receive 15, got %d", applied)
	}

	// When flag already set, setter should not run.
	if err := flags.Set("rate-limit", "7"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	applied = 0
	applyIntDefault(flags, "rate-limit", 20, func(v int) {
		applied = v
	})
	if applied != 0 {
		t.Fatalf("setter should not run when flag overridden, got %d", applied)
	}
}

func TestApplyInt64Default(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int64("body-cap", 0, "")

	var applied int64
	applyInt64Default(flags, "body-cap", 4096, func(v int64) {
		applied = v
	})
	if applied != 4096 {
		t.Fatalf("expected setter to receive 4096, got %d", applied)
	}

	if err := flags.Set("body-cap", "512"); err != nil {
		t.Fatalf("failed to set flag: %v", err)
	}
	applied = 0
	applyInt64Default(flags, "body-cap", 8192, func(v int64) {
		applied = v
	})
	if applied != 0 {
		t.Fatalf("setter should not run when flag overridden, got %d", applied)
	}
}

func TestSetStringFlagIfUnset(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("listen", "", "")

	setStringFlagIfUnset(flags, "listen", ":9090")
	if got := flags.Lookup("listen").Value.String(); got != ":9090" {
		t.Fatalf("expected listen to be default, got %s", got)
	}

	if err := flags.Set("listen", ":7070"); err != nil {
		t.Fatalf("failed to set listen: %v", err)
	}
	setStringFlagIfUnset(flags, "listen", ":9191")
	if got := flags.Lookup("listen").Value.String(); got != ":7070" {
		t.Fatalf("expected listen to remain user-provided, got %s", got)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("scan_cap", 2048)
	viper.Set("listen", ":9999")

	overrides := loadConfigOverrides()
	if overrides.ScanCap == nil || *overrides.ScanCap != 2048 {
		t.Fatalf("expected scan_cap override of 2048, got %v", overrides.ScanCap)
	}
	if overrides.Listen != ":9999" {
		t.Fatalf("expected listen override :9999, got %q", overrides.Listen)
	}
	if overrides.BodyCap != nil {
		t.Fatalf("expected no body_cap override, got %d", *overrides.BodyCap)
	}
}
