package domain

import (
	"fmt"
	"strings"
)

// AdminLevel is one of the three navigable administrative granularities.
// Levels are totally ordered: Region < Province < Municipality.
type AdminLevel int

const (
	LevelRegion AdminLevel = iota + 1
	LevelProvince
	LevelMunicipality
)

// AllLevels lists levels from coarsest to finest.
var AllLevels = []AdminLevel{LevelRegion, LevelProvince, LevelMunicipality}

func (l AdminLevel) String() string {
	switch l {
	case LevelRegion:
		return "region"
	case LevelProvince:
		return "province"
	case LevelMunicipality:
		return "municipality"
	default:
		return fmt.Sprintf("AdminLevel(%d)", int(l))
	}
}

// Plural returns the collection name used in geodata URLs and object keys.
func (l AdminLevel) Plural() string {
	switch l {
	case LevelRegion:
		return "regions"
	case LevelProvince:
		return "provinces"
	case LevelMunicipality:
		return "municipalities"
	default:
		return ""
	}
}

func (l AdminLevel) Valid() bool {
	return l >= LevelRegion && l <= LevelMunicipality
}

// Finer returns the next level down. ok is false for Municipality.
func (l AdminLevel) Finer() (AdminLevel, bool) {
	switch l {
	case LevelRegion:
		return LevelProvince, true
	case LevelProvince:
		return LevelMunicipality, true
	default:
		return 0, false
	}
}

// Coarser returns the next level up. ok is false for Region.
func (l AdminLevel) Coarser() (AdminLevel, bool) {
	switch l {
	case LevelProvince:
		return LevelRegion, true
	case LevelMunicipality:
		return LevelProvince, true
	default:
		return 0, false
	}
}

// ParseAdminLevel accepts singular and plural names, case-insensitively.
func ParseAdminLevel(s string) (AdminLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "region", "regions":
		return LevelRegion, nil
	case "province", "provinces":
		return LevelProvince, nil
	case "municipality", "municipalities", "city", "cities":
		return LevelMunicipality, nil
	default:
		return 0, fmt.Errorf("unknown admin level %q", s)
	}
}

func (l AdminLevel) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, fmt.Errorf("invalid admin level %d", int(l))
	}
	return []byte(l.String()), nil
}

func (l *AdminLevel) UnmarshalText(text []byte) error {
	parsed, err := ParseAdminLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}
