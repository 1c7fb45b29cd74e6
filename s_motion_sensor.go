package kilgo

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/service"
)

// PIR sensor on the opener head, used to switch the light on in automations

func createMotionServices(dev *Device) (byte, []*service.S, []*PropertyMapping, error) {
	if !dev.HasFeature("motion") {
		return accessory.TypeUnknown, nil, nil, nil
	}

	s := service.NewMotionSensor()

	props := []*PropertyMapping{NewPropertyMapping("motion", s.MotionDetected.C, nil)}

	return accessory.TypeUnknown, []*service.S{s.S}, props, nil
}

func init() {
	RegisterCreateServiceHandler(createMotionServices, "motion")
}
