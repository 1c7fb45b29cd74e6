package kilgo

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

// the wall button next to the garage door, exposed for HomeKit automations
func createButtonServices(dev *Device) (byte, []*service.S, []*PropertyMapping, error) {
	if !dev.HasFeature("button") {
		return accessory.TypeUnknown, nil, nil, nil
	}

	sw := service.NewStatelessProgrammableSwitch()

	t := &EnumTranslator{map[string]any{
		"single": characteristic.ProgrammableSwitchEventSinglePress,
		"double": characteristic.ProgrammableSwitchEventDoublePress,
		"hold":   characteristic.ProgrammableSwitchEventLongPress,
	}}
	props := []*PropertyMapping{NewPropertyMapping("action", sw.ProgrammableSwitchEvent.C, t)}

	return accessory.TypeUnknown, []*service.S{sw.S}, props, nil
}

func init() {
	RegisterCreateServiceHandler(createButtonServices, "button")
}
