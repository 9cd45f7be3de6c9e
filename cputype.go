package s7

import (
	"fmt"
	"strings"

	"github.com/s7gopher/s7/pkg/frame"
)

// cpuProfile names the TSAP profile sequence and the optimal requested PDU
// length (§4.5) for one CPU family.
type cpuProfile struct {
	profiles []frame.Profile
	pduHint  uint16
}

var cpuProfiles = map[string]cpuProfile{
	"s7-200":  {profiles: []frame.Profile{frame.ProfileS7_200}, pduHint: 480},
	"logo":    {profiles: []frame.Profile{frame.ProfileLogo}, pduHint: 240},
	"s7-300":  {profiles: []frame.Profile{frame.ProfilePG, frame.ProfileOP, frame.ProfilePGAlt}, pduHint: 480},
	"s7-400":  {profiles: []frame.Profile{frame.ProfilePG, frame.ProfileOP, frame.ProfilePGAlt}, pduHint: 960},
	"s7-1200": {profiles: []frame.Profile{frame.ProfilePG, frame.ProfileOP, frame.ProfilePGAlt}, pduHint: 960},
	"s7-1500": {profiles: []frame.Profile{frame.ProfilePG, frame.ProfileOP, frame.ProfilePGAlt}, pduHint: 1440},
}

// resolveCPUProfile looks up the profile sequence and optimal PDU length for
// a cpu_type string (case-insensitive).
func resolveCPUProfile(cpuType string) (cpuProfile, error) {
	p, ok := cpuProfiles[strings.ToLower(strings.TrimSpace(cpuType))]
	if !ok {
		return cpuProfile{}, fmt.Errorf("s7: unknown cpu_type %q", cpuType)
	}
	return p, nil
}
