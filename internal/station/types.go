package station

// Type classifies a configured remote station.
type Type string

const (
	Generic  Type = "generic"
	APRS     Type = "aprs"
	Terminal Type = "terminal"
)

// Protocol is the terminal protocol spoken with a station.
type Protocol string

const (
	ProtocolRawAX25 Protocol = "rax25"
	ProtocolAPRS    Protocol = "aprs"
)

// Station is a configured remote station. Identity is (Callsign, Type);
// the directory holds at most one station per identity.
type Station struct {
	Callsign        string   `toml:"callsign"`
	Name            string   `toml:"name"`
	Description     string   `toml:"description"`
	Type            Type     `toml:"type"`
	APRSRoute       string   `toml:"aprs_route"`
	Protocol        Protocol `toml:"protocol"`
	Channel         int      `toml:"channel"`
	AX25Destination string   `toml:"ax25_destination"`
}

// CallsignNoZero returns the callsign with a trailing "-0" SSID suffix
// stripped. Used for display and matching, never for identity.
func (s Station) CallsignNoZero() string {
	return NoZero(s.Callsign)
}
