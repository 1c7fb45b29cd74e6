package kilgo

import (
	"encoding/json"
	"fmt"
	"regexp"
	"slices"

	"reflect"
	"runtime"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

const DEVICE_DEBUG = false

var (
	ErrMalformedDevice = fmt.Errorf("device is malformed")
	ErrUnknownFeature  = fmt.Errorf("unknown device feature")
)

// A Kilgo controller, as listed in the config file.
// Features select which HAP services are created for it.
type Device struct {
	Name         string
	Id           uint64
	Manufacturer string
	Model        string
	SerialNumber string
	Firmware     string

	Features []string
}

func (d *Device) HasFeature(f string) bool { return slices.Contains(d.Features, f) }

// Creates a HAP Accessory from a Device
// It returns ErrMalformedDevice if the name or ID is missing, and
// ErrUnknownFeature if no handler understands one of the features.
func createAccessory(dev *Device) (*accessory.A, []*PropertyMapping, error) {
	if dev.Name == "" || dev.Id == 0 {
		return nil, nil, ErrMalformedDevice
	}

	for _, f := range dev.Features {
		if !knownFeatures[f] {
			return nil, nil, fmt.Errorf("%w %q", ErrUnknownFeature, f)
		}
	}

	manufacturer := dev.Manufacturer
	if manufacturer == "" {
		manufacturer = "Kilgo"
	}

	// create accessory first, then let each handler add its services
	acc := accessory.New(accessory.Info{
		Name:         dev.Name,
		SerialNumber: dev.SerialNumber,
		Manufacturer: manufacturer,
		Model:        dev.Model,
		Firmware:     dev.Firmware,
	}, accessory.TypeUnknown)

	// config IDs are stable across restarts, which HomeKit relies on
	acc.Id = dev.Id

	var guessedAccTypes []byte
	var allSvcs []*service.S
	var allMappings []*PropertyMapping

	for _, createFunc := range createServiceHandlers {
		accType, svcs, mappings, err := createFunc(dev)
		if err != nil {
			return nil, nil, err
		}

		if DEVICE_DEBUG {
			f := runtime.FuncForPC(reflect.ValueOf(createFunc).Pointer())
			fmt.Printf("----- %s -----\n", f.Name())
			fmt.Printf("typ: %#v svc: %d props: %v\n", accType, len(svcs), mappings)
		}

		if accType != accessory.TypeUnknown && len(svcs) > 0 {
			guessedAccTypes = append(guessedAccTypes, accType)
		}

		allSvcs = append(allSvcs, svcs...)
		allMappings = append(allMappings, mappings...)
	}

	// guess main accessory type
	// the garage door wins over its light, so HomeKit shows a door tile
	uniqAccTypes := uniq(guessedAccTypes)
	switch {
	case len(uniqAccTypes) == 1:
		acc.Type = uniqAccTypes[0]
	case slices.Contains(uniqAccTypes, accessory.TypeGarageDoorOpener):
		acc.Type = accessory.TypeGarageDoorOpener
	}

	for _, s := range allSvcs {
		acc.AddS(s)
	}

	return acc, allMappings, nil
}

var (
	accPermsFormattingRE = regexp.MustCompile(`(?isU)"perms":\s*\[.*\]`)
	accPermsWhitespaceRE = regexp.MustCompile(`( \[|,)?\s*(\S)(\])?`)
)

// Dumps the Accessory structure
func dumpAccessory(acc *accessory.A) error {
	s, err := json.MarshalIndent(acc, "", "  ")
	if err != nil {
		return err
	}

	// performs some formatting to keep "perms" on a single-line to reduce space
	s = accPermsFormattingRE.ReplaceAllFunc(s, func(s []byte) []byte {
		return accPermsWhitespaceRE.ReplaceAll(s, []byte("$1$2$3"))
	})

	fmt.Println(string(s))
	return nil
}

// Returns unique items from the slice, in order of first appearance
func uniq[T comparable](items []T) []T {
	seen := make(map[T]bool)
	var u []T
	for _, e := range items {
		if !seen[e] {
			seen[e] = true
			u = append(u, e)
		}
	}
	return u
}

//////////////////////////////

// Maps a device payload property into a HAP characteristic.
// Contains convenience methods to translate values between the two systems.
// A MappingTranslator is required if the values are not pass-through, e.g. the
// controller reports the door as "open"/"closed" but HAP uses integers.
type PropertyMapping struct {
	Property       string
	Settable       bool
	Characteristic *characteristic.C

	Translator MappingTranslator
}

// Maps a read-only property to a characteristic
func NewPropertyMapping(prop string, c *characteristic.C, t MappingTranslator) *PropertyMapping {
	return &PropertyMapping{prop, false, c, t}
}

// Maps a property that HomeKit may also change
func NewSettablePropertyMapping(prop string, c *characteristic.C, t MappingTranslator) *PropertyMapping {
	return &PropertyMapping{prop, true, c, t}
}

func (m *PropertyMapping) String() string {
	return fmt.Sprintf("{%q -> ctyp %s}", m.Property, m.Characteristic.Type)
}

func (m *PropertyMapping) translator() MappingTranslator {
	if m.Translator == nil {
		return defaultTranslator
	}
	return m.Translator
}

// Converts a Characteristic value to its corresponding payload value
func (m *PropertyMapping) ToPayloadValue(v any) (any, error) {
	return m.translator().ToPayloadValue(v)
}

// Calls c.SetValueRequest() with the translated payload value
// if the error code is -1, there was a translation error.
// Otherwise it's a HAP error code
func (m *PropertyMapping) SetCharacteristicValue(v any) (any, int) {
	cv, err := m.translator().ToCharacteristicValue(v)
	if err != nil {
		return v, -1
	}

	return m.Characteristic.SetValueRequest(cv, nil)
}

//////////////////////////////

// Function that creates services for a Device, invoked by createAccessory()
// These functions are registered using RegisterCreateServiceHandler()
type CreateServiceFunc func(dev *Device) (byte, []*service.S, []*PropertyMapping, error)

// Registers a CreateServiceFunc for use by createAccessory(),
// along with the device features it handles.
func RegisterCreateServiceHandler(f CreateServiceFunc, features ...string) {
	createServiceHandlers = append(createServiceHandlers, f)
	for _, feat := range features {
		knownFeatures[feat] = true
	}
}

var (
	// registered createService handlers
	createServiceHandlers []CreateServiceFunc

	knownFeatures = map[string]bool{}
)
