package kilgo

import (
	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

// auxiliary relay output on the controller, e.g. for a fan or a gate
func createSwitchServices(dev *Device) (byte, []*service.S, []*PropertyMapping, error) {
	if !dev.HasFeature("aux_switch") {
		return accessory.TypeUnknown, nil, nil, nil
	}

	sw := service.NewSwitch()

	// add a name/label for this switch
	n := characteristic.NewName()
	n.SetValue(dev.Name + " Aux")
	sw.AddC(n.C)

	props := []*PropertyMapping{NewSettablePropertyMapping("aux_switch", sw.On.C, onOffTranslator)}

	return accessory.TypeUnknown, []*service.S{sw.S}, props, nil
}

func init() {
	RegisterCreateServiceHandler(createSwitchServices, "aux_switch")
}
