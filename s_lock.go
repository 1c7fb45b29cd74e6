package kilgo

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

func createLockServices(dev *Device) (byte, []*service.S, []*PropertyMapping, error) {
	if !dev.HasFeature("lock") {
		return accessory.TypeUnknown, nil, nil, nil
	}

	lock := service.NewLockMechanism()

	current := &EnumTranslator{map[string]any{
		"UNSECURED": characteristic.LockCurrentStateUnsecured,
		"SECURED":   characteristic.LockCurrentStateSecured,
		"JAMMED":    characteristic.LockCurrentStateJammed,
		"UNKNOWN":   characteristic.LockCurrentStateUnknown,
	}}
	target := &EnumTranslator{map[string]any{
		"UNSECURED": characteristic.LockTargetStateUnsecured,
		"SECURED":   characteristic.LockTargetStateSecured,
	}}

	props := []*PropertyMapping{
		NewPropertyMapping("lock", lock.LockCurrentState.C, current),
		NewSettablePropertyMapping("lock_target", lock.LockTargetState.C, target),
	}

	// a lock on a garage door is an add-on, it doesn't decide the accessory type
	return accessory.TypeUnknown, []*service.S{lock.S}, props, nil
}

func init() {
	RegisterCreateServiceHandler(createLockServices, "lock")
}
