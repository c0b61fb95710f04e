package station

import "strings"

// NoZero strips a trailing "-0" SSID suffix from a callsign. Some radios
// report the zero SSID explicitly ("N0CALL-0"), others omit it; both forms
// refer to the same station on the air.
func NoZero(callsign string) string {
	return strings.TrimSuffix(callsign, "-0")
}
