package kilgo

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

var (
	currentDoorTranslator = &EnumTranslator{map[string]any{
		"open":    characteristic.CurrentDoorStateOpen,
		"closed":  characteristic.CurrentDoorStateClosed,
		"opening": characteristic.CurrentDoorStateOpening,
		"closing": characteristic.CurrentDoorStateClosing,
		"stopped": characteristic.CurrentDoorStateStopped,
	}}

	targetDoorTranslator = &EnumTranslator{map[string]any{
		"open":   characteristic.TargetDoorStateOpen,
		"closed": characteristic.TargetDoorStateClosed,
	}}
)

func createGarageDoorServices(dev *Device) (byte, []*service.S, []*PropertyMapping, error) {
	if !dev.HasFeature("garage_door") {
		return accessory.TypeUnknown, nil, nil, nil
	}

	door := service.NewGarageDoorOpener()

	// the controller reports the door closed until told otherwise
	door.CurrentDoorState.SetValue(characteristic.CurrentDoorStateClosed)
	door.TargetDoorState.SetValue(characteristic.TargetDoorStateClosed)

	props := []*PropertyMapping{
		NewPropertyMapping("door", door.CurrentDoorState.C, currentDoorTranslator),
		NewSettablePropertyMapping("target_door", door.TargetDoorState.C, targetDoorTranslator),
		NewPropertyMapping("obstruction", door.ObstructionDetected.C, nil),
	}

	return accessory.TypeGarageDoorOpener, []*service.S{door.S}, props, nil
}

func init() {
	RegisterCreateServiceHandler(createGarageDoorServices, "garage_door")
}
