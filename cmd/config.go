package cmd

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configOverrides holds config-file values that act as flag defaults. A value
// from the file only applies when the user did not set the flag explicitly.
type configOverrides struct {
	Listen       string
	APIListen    string
	BodyCap      *int64
	ScanCap      *int
	ContextBytes *int
	RateLimit    *int
	RateBurst    *int
}

func loadConfigOverrides() configOverrides {
	overrides := configOverrides{}

	if viper.IsSet("listen") {
		overrides.Listen = viper.GetString("listen")
	}
	if viper.IsSet("api_listen") {
		overrides.APIListen = viper.GetString("api_listen")
	}
	if viper.IsSet("body_cap") {
		val := viper.GetInt64("body_cap")
		overrides.BodyCap = &val
	}
	if viper.IsSet("scan_cap") {
		val := viper.GetInt("scan_cap")
		overrides.ScanCap = &val
	}
	if viper.IsSet("context_bytes") {
		val := viper.GetInt("context_bytes")
		overrides.ContextBytes = &val
	}
	if viper.IsSet("rate_limit") {
		val := viper.GetInt("rate_limit")
		overrides.RateLimit = &val
	}
	if viper.IsSet("rate_burst") {
		val := viper.GetInt("rate_burst")
		overrides.RateBurst = &val
	}

	return overrides
}

// applyConfigDefaults merges config file values into the runtime flags when
// the user did not explicitly override the corresponding flag.
func applyConfigDefaults() {
	overrides := loadConfigOverrides()

	if overrides.Listen != "" {
		setStringFlagIfUnset(observeCmd.Flags(), "listen", overrides.Listen)
	}
	if overrides.APIListen != "" {
		setStringFlagIfUnset(observeCmd.Flags(), "api-listen", overrides.APIListen)
	}
	if overrides.BodyCap != nil {
		applyInt64Default(observeCmd.Flags(), "body-cap", *overrides.BodyCap, func(v int64) {
			observeBodyCap = v
		})
	}
	if overrides.ScanCap != nil {
		applyIntDefault(observeCmd.Flags(), "scan-cap", *overrides.ScanCap, func(v int) {
			observeScanCap = v
		})
	}
	if overrides.ContextBytes != nil {
		applyIntDefault(observeCmd.Flags(), "context-bytes", *overrides.ContextBytes, func(v int) {
			observeCtxBytes = v
		})
	}
	if overrides.RateLimit != nil {
		applyIntDefault(serveCmd.Flags(), "rate-limit", *overrides.RateLimit, func(v int) {
			serveRateLimit = v
		})
	}
	if overrides.RateBurst != nil {
		applyIntDefault(serveCmd.Flags(), "rate-burst", *overrides.RateBurst, func(v int) {
			serveRateBurst = v
		})
	}
}

func applyIntDefault(flags *pflag.FlagSet, name string, value int, setter func(int)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func applyInt64Default(flags *pflag.FlagSet, name string, value int64, setter func(int64)) {
	if flags == nil || setter == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag != nil && flag.Changed {
		return
	}
	setter(value)
}

func setStringFlagIfUnset(flags *pflag.FlagSet, name, value string) {
	if flags == nil {
		return
	}
	flag := flags.Lookup(name)
	if flag == nil || flag.Changed {
		return
	}
	_ = flag.Value.Set(value)
}
