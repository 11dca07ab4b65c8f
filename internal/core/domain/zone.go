package domain

import "strings"

// ZoneCode is the carrier's coarse delivery-distance classification.
type ZoneCode int

const (
	ZoneMetro      ZoneCode = 1 // core metro
	ZoneSuburb     ZoneCode = 2 // greater-metro suburb
	ZoneOutstation ZoneCode = 3 // outstation / regional
	ZoneRestricted ZoneCode = 4
	ZoneRemote     ZoneCode = 5 // special / remote
)

// zoneTable maps exact location strings (case-sensitive) to zone codes.
var zoneTable = map[string]ZoneCode{
	"Colombo":       ZoneMetro,
	"Kollupitiya":   ZoneMetro,
	"Bambalapitiya": ZoneMetro,
	"Wellawatte":    ZoneMetro,
	"Maradana":      ZoneMetro,

	"Dehiwala":      ZoneSuburb,
	"Mount Lavinia": ZoneSuburb,
	"Moratuwa":      ZoneSuburb,
	"Nugegoda":      ZoneSuburb,
	"Maharagama":    ZoneSuburb,
	"Battaramulla":  ZoneSuburb,
	"Malabe":        ZoneSuburb,
	"Kaduwela":      ZoneSuburb,
	"Wattala":       ZoneSuburb,
	"Kelaniya":      ZoneSuburb,

	"Kandy":        ZoneOutstation,
	"Galle":        ZoneOutstation,
	"Matara":       ZoneOutstation,
	"Jaffna":       ZoneOutstation,
	"Vavuniya":     ZoneOutstation,
	"Anuradhapura": ZoneOutstation,
	"Kurunegala":   ZoneOutstation,
	"Badulla":      ZoneOutstation,
	"Ratnapura":    ZoneOutstation,
	"Trincomalee":  ZoneOutstation,
	"Batticaloa":   ZoneOutstation,

	"Mullaitivu":  ZoneRestricted,
	"Kilinochchi": ZoneRestricted,

	"Delft":      ZoneRemote,
	"Kataragama": ZoneRemote,
}

// Representative city-name fragments per zone, checked case-insensitively
// in order metro -> suburb -> outstation when no exact match exists.
var zoneFragments = []struct {
	zone      ZoneCode
	fragments []string
}{
	{ZoneMetro, []string{"colombo"}},
	{ZoneSuburb, []string{"dehiwala", "lavinia", "nugegoda", "moratuwa", "kotte"}},
	{ZoneOutstation, []string{"kandy", "galle", "jaffna", "kurunegala", "matara"}},
}

// ResolveZone maps a free-text delivery location to a carrier zone code.
// Unknown locations default to outstation: carrier pricing depends only on
// coarse zone and the sandbox needs a deterministic default rather than
// rejecting input.
func ResolveZone(location string) ZoneCode {
	loc := strings.TrimSpace(location)
	if zone, ok := zoneTable[loc]; ok {
		return zone
	}

	lower := strings.ToLower(loc)
	for _, group := range zoneFragments {
		for _, frag := range group.fragments {
			if strings.Contains(lower, frag) {
				return group.zone
			}
		}
	}

	return ZoneOutstation
}
