package kilgo

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

// a reed switch on the door, independent of the opener's own door state
func createContactServices(dev *Device) (byte, []*service.S, []*PropertyMapping, error) {
	if !dev.HasFeature("contact") {
		return accessory.TypeUnknown, nil, nil, nil
	}

	s := service.NewContactSensor()

	// the controller reports contact = true when the door is shut
	props := []*PropertyMapping{
		NewPropertyMapping("contact", s.ContactSensorState.C,
			&BoolTranslator{
				characteristic.ContactSensorStateContactDetected,
				characteristic.ContactSensorStateContactNotDetected}),
	}

	return accessory.TypeUnknown, []*service.S{s.S}, props, nil
}

func init() {
	RegisterCreateServiceHandler(createContactServices, "contact")
}
