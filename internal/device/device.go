// Package device reads host device facts: model identifier, battery level and locale.
package device

import (
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"

	"appstatus/internal/telemetry/domain"
)

// fallbackLocale is reported when the environment carries no usable locale.
const fallbackLocale = "en-US"

// Host reads device facts from sysfs and the process environment.
type Host struct {
	modelOverride string
	// root prefixes sysfs paths; empty means "/".
	root   string
	getenv func(string) string
}

// NewHost returns a Host. A non-empty modelOverride is returned by Model as is.
func NewHost(modelOverride string) *Host {
	return &Host{modelOverride: strings.TrimSpace(modelOverride), getenv: os.Getenv}
}

func (h *Host) path(p string) string {
	if h.root == "" {
		return p
	}
	return filepath.Join(h.root, p)
}

// Model returns the device model identifier: the override, the DMI product name, or GOOS-GOARCH.
func (h *Host) Model() string {
	if h.modelOverride != "" {
		return h.modelOverride
	}
	if b, err := os.ReadFile(h.path("/sys/class/dmi/id/product_name")); err == nil {
		if s := strings.TrimSpace(string(b)); s != "" {
			return s
		}
	}
	return runtime.GOOS + "-" + runtime.GOARCH
}

// BatteryLevel returns the first battery's charge in [0,1], or -1 when there is no reading.
func (h *Host) BatteryLevel() float64 {
	matches, err := filepath.Glob(h.path("/sys/class/power_supply/*/capacity"))
	if err != nil {
		return domain.UnknownBattery
	}
	sort.Strings(matches)
	for _, m := range matches {
		b, err := os.ReadFile(m)
		if err != nil {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(string(b)))
		if err != nil || n < 0 || n > 100 {
			continue
		}
		return float64(n) / 100
	}
	return domain.UnknownBattery
}

// Locale returns "{language}-{country}" from LC_ALL, LC_MESSAGES or LANG, in that order.
func (h *Host) Locale() string {
	for _, key := range []string{"LC_ALL", "LC_MESSAGES", "LANG"} {
		if v := h.getenv(key); v != "" {
			if loc, ok := FormatLocale(v); ok {
				return loc
			}
		}
	}
	return fallbackLocale
}

// FormatLocale converts a POSIX locale such as "de_AT.UTF-8" to "de-AT".
// A missing country is filled with the most likely one for the language.
func FormatLocale(posix string) (string, bool) {
	s := posix
	if i := strings.IndexAny(s, ".@"); i >= 0 {
		s = s[:i]
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "-")
	if s == "" || s == "C" || s == "POSIX" {
		return "", false
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", false
	}
	base, conf := tag.Base()
	if conf == language.No {
		return "", false
	}
	region, _ := tag.Region()
	return base.String() + "-" + region.String(), true
}
