package normalize

import "strings"

// DefaultTimezone is used when a state can't be resolved to a zone.
const DefaultTimezone = "America/New_York"

// stateTimezones maps US state abbreviations to a representative IANA zone.
// States spanning multiple zones use the zone covering most of the
// population; outbound-call scheduling only needs a reasonable local time.
var stateTimezones = map[string]string{
	"AL": "America/Chicago",
	"AK": "America/Anchorage",
	"AZ": "America/Phoenix",
	"AR": "America/Chicago",
	"CA": "America/Los_Angeles",
	"CO": "America/Denver",
	"CT": "America/New_York",
	"DE": "America/New_York",
	"DC": "America/New_York",
	"FL": "America/New_York",
	"GA": "America/New_York",
	"HI": "Pacific/Honolulu",
	"ID": "America/Boise",
	"IL": "America/Chicago",
	"IN": "America/Indiana/Indianapolis",
	"IA": "America/Chicago",
	"KS": "America/Chicago",
	"KY": "America/New_York",
	"LA": "America/Chicago",
	"ME": "America/New_York",
	"MD": "America/New_York",
	"MA": "America/New_York",
	"MI": "America/Detroit",
	"MN": "America/Chicago",
	"MS": "America/Chicago",
	"MO": "America/Chicago",
	"MT": "America/Denver",
	"NE": "America/Chicago",
	"NV": "America/Los_Angeles",
	"NH": "America/New_York",
	"NJ": "America/New_York",
	"NM": "America/Denver",
	"NY": "America/New_York",
	"NC": "America/New_York",
	"ND": "America/Chicago",
	"OH": "America/New_York",
	"OK": "America/Chicago",
	"OR": "America/Los_Angeles",
	"PA": "America/New_York",
	"RI": "America/New_York",
	"SC": "America/New_York",
	"SD": "America/Chicago",
	"TN": "America/Chicago",
	"TX": "America/Chicago",
	"UT": "America/Denver",
	"VT": "America/New_York",
	"VA": "America/New_York",
	"WA": "America/Los_Angeles",
	"WV": "America/New_York",
	"WI": "America/Chicago",
	"WY": "America/Denver",
}

// TimezoneForState returns the IANA zone for a two-letter state
// abbreviation, or DefaultTimezone when the state is unknown or empty.
func TimezoneForState(state string) string {
	if tz, ok := stateTimezones[strings.ToUpper(strings.TrimSpace(state))]; ok {
		return tz
	}
	return DefaultTimezone
}
