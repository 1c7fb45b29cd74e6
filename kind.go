package kilgo

import (
	"fmt"
	"strings"
	"sync"

	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
	"github.com/google/uuid"
)

// Coarse classification of a HAP service
type ServiceKind int

const (
	KindUnknown ServiceKind = iota
	KindLightBulb
	KindGarageDoor
)

var kindNames = map[ServiceKind]string{
	KindUnknown:    "unknown",
	KindLightBulb:  "light_bulb",
	KindGarageDoor: "garage_door",
}

func (k ServiceKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return kindNames[KindUnknown]
}

// Parses the name returned by ServiceKind.String()
func ParseServiceKind(s string) (ServiceKind, bool) {
	for k, n := range kindNames {
		if n == s {
			return k, true
		}
	}
	return KindUnknown, false
}

// Type of the custom "fade rate" characteristic on Kilgo lights
const FADE_RATE_TYPE = "7E536242-341C-4862-BE90-272CE15BD633"

// all HAP-defined UUIDs share this suffix, and use a short form otherwise
const HAP_BASE_UUID_SUFFIX = "-0000-1000-8000-0026BB765291"

var (
	serviceKinds = map[string]ServiceKind{
		service.TypeLightbulb:        KindLightBulb,
		service.TypeGarageDoorOpener: KindGarageDoor,
	}

	controlTypes = map[ServiceKind]string{
		KindLightBulb:  characteristic.TypeOn,
		KindGarageDoor: characteristic.TypeTargetDoorState,
	}

	// the garage door displays the observed state, not the commanded one
	displayTypes = map[ServiceKind]string{
		KindLightBulb:  characteristic.TypeOn,
		KindGarageDoor: characteristic.TypeCurrentDoorState,
	}
)

// Characteristic types shown in a details view, with their display names.
// RegisterDetailType may add to it at runtime, guarded by detailTypesMu.
var detailTypesMu sync.RWMutex

var detailTypes = map[string]string{
	characteristic.TypeOn:                  "power_state",
	characteristic.TypeBrightness:          "brightness",
	characteristic.TypeHue:                 "hue",
	characteristic.TypeSaturation:          "saturation",
	characteristic.TypeTargetDoorState:     "target_door_state",
	characteristic.TypeCurrentDoorState:    "current_door_state",
	characteristic.TypeObstructionDetected: "obstruction_detected",
	characteristic.TypeLockTargetState:     "target_lock_state",
	characteristic.TypeLockCurrentState:    "current_lock_state",
	FADE_RATE_TYPE:                         "fade_rate",
}

// Converts a service or characteristic type into the form used by hap.
// Full HAP UUIDs are shortened ("00000043-0000-1000-8000-0026BB765291" -> "43"),
// custom UUIDs are upper-cased. Anything that is not a UUID is returned as-is.
func CanonicalType(typ string) string {
	u, err := uuid.Parse(typ)
	if err != nil {
		return typ
	}

	s := strings.ToUpper(u.String())
	if short, ok := strings.CutSuffix(s, HAP_BASE_UUID_SUFFIX); ok {
		short = strings.TrimLeft(short, "0")
		if short == "" {
			short = "0"
		}
		return short
	}
	return s
}

// Returns the display name of an allow-listed detail characteristic type.
func CharacteristicName(typ string) (string, bool) {
	detailTypesMu.RLock()
	defer detailTypesMu.RUnlock()

	n, ok := detailTypes[CanonicalType(typ)]
	return n, ok
}

// Adds a custom characteristic type to the details allow-list.
// Only UUIDs are accepted, since short types are reserved by HAP.
func RegisterDetailType(typ, name string) error {
	u, err := uuid.Parse(typ)
	if err != nil {
		return fmt.Errorf("invalid custom characteristic type %q: %w", typ, err)
	}
	if name == "" {
		return fmt.Errorf("custom characteristic type %s needs a name", typ)
	}

	detailTypesMu.Lock()
	defer detailTypesMu.Unlock()

	detailTypes[CanonicalType(u.String())] = name
	return nil
}

func isDetailType(typ string) bool {
	detailTypesMu.RLock()
	defer detailTypesMu.RUnlock()

	_, ok := detailTypes[typ]
	return ok
}
