package kilgo

import (
	"fmt"

	"github.com/brutella/hap/characteristic"
)

var ErrNotControllable = fmt.Errorf("service has no control characteristic")

type doorState struct {
	label string
	icon  Icon
}

// labels for values of the CurrentDoorState characteristic
var doorStates = map[int64]doorState{
	int64(characteristic.CurrentDoorStateOpen):    {"Open", IconDoorOpen},
	int64(characteristic.CurrentDoorStateClosed):  {"Closed", IconDoorClosed},
	int64(characteristic.CurrentDoorStateOpening): {"Opening", IconDoorOpening},
	int64(characteristic.CurrentDoorStateClosing): {"Closing", IconDoorClosing},
	int64(characteristic.CurrentDoorStateStopped): {"Stopped", IconDoorClosed},
}

// Works out what tapping the service should do.
// Returns the control characteristic together with the value to write to it.
// Lights are inverted (a light in an unknown state is turned on), garage doors
// are closed if their target is open and opened otherwise.
func ToggleValue(svc Service) (Characteristic, any, error) {
	c := ControlCharacteristic(svc)
	if c == nil {
		return nil, nil, ErrNotControllable
	}

	v := c.Value()
	switch Classify(svc) {
	case KindLightBulb:
		on, _ := v.Bool()
		return c, !on, nil

	case KindGarageDoor:
		if target, ok := v.Int(); ok && target == int64(characteristic.TargetDoorStateOpen) {
			return c, characteristic.TargetDoorStateClosed, nil
		}
		return c, characteristic.TargetDoorStateOpen, nil
	}

	return nil, nil, ErrNotControllable
}
