package kilgo

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/service"
)

func createClimateServices(dev *Device) (byte, []*service.S, []*PropertyMapping, error) {
	var svcs []*service.S
	var props []*PropertyMapping

	if dev.HasFeature("temperature") {
		s := service.NewTemperatureSensor()

		// doesn't do anything, since the Home app seem to round values to 0.25 increments regardless
		// https://developer.apple.com/forums/thread/674461
		s.CurrentTemperature.SetStepValue(0.01)

		svcs = append(svcs, s.S)
		props = append(props, NewPropertyMapping("temperature", s.CurrentTemperature.C, nil))
	}

	if dev.HasFeature("humidity") {
		s := service.NewHumiditySensor()
		s.CurrentRelativeHumidity.SetStepValue(0.01) // ditto, but 1% increments
		svcs = append(svcs, s.S)
		props = append(props, NewPropertyMapping("humidity", s.CurrentRelativeHumidity.C, nil))
	}

	return accessory.TypeSensor, svcs, props, nil
}

func init() {
	RegisterCreateServiceHandler(createClimateServices, "temperature", "humidity")
}
