package kilgo

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

// controllers with a backup battery report its level and charging state
func createBatteryServices(dev *Device) (byte, []*service.S, []*PropertyMapping, error) {
	if !dev.HasFeature("battery") {
		return accessory.TypeUnknown, nil, nil, nil
	}

	batt := service.NewBatteryService()
	batt.ChargingState.SetValue(characteristic.ChargingStateNotCharging)

	charging := &BoolTranslator{
		characteristic.ChargingStateCharging,
		characteristic.ChargingStateNotCharging}

	props := []*PropertyMapping{
		NewPropertyMapping("battery", batt.BatteryLevel.C, &RoundTranslator{}),
		NewPropertyMapping("charging", batt.ChargingState.C, charging),
	}

	return accessory.TypeUnknown, []*service.S{batt.S}, props, nil
}

func init() {
	RegisterCreateServiceHandler(createBatteryServices, "battery")
}
