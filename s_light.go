package kilgo

import (
	"fmt"

	"github.com/brutella/hap/accessory"
	"github.com/brutella/hap/characteristic"
	"github.com/brutella/hap/service"
)

var (
	// controller uses "ON"/"OFF" strings for the light state
	onOffTranslator = &FlippedTranslator{&BoolTranslator{"ON", "OFF"}}

	// controller brightness is 0-254, rounded in both directions
	brightnessTranslator = &ChainedTranslator{
		PayloadSide: &RoundTranslator{},
		CharacteristicSide: &ChainedTranslator{
			PayloadSide:        &PercentageTranslator{0, 254},
			CharacteristicSide: &RoundTranslator{},
		},
	}
)

func createLightServices(dev *Device) (byte, []*service.S, []*PropertyMapping, error) {
	if !dev.HasFeature("light") {
		for _, f := range []string{"color", "fade_rate"} {
			if dev.HasFeature(f) {
				return accessory.TypeUnknown, nil, nil,
					fmt.Errorf("%w: feature %q requires \"light\"", ErrMalformedDevice, f)
			}
		}
		return accessory.TypeUnknown, nil, nil, nil
	}

	light := service.NewLightbulb()

	brightness := characteristic.NewBrightness()
	light.AddC(brightness.C)

	props := []*PropertyMapping{
		NewSettablePropertyMapping("light", light.On.C, onOffTranslator),
		NewSettablePropertyMapping("brightness", brightness.C, brightnessTranslator),
	}

	if dev.HasFeature("color") {
		hue := characteristic.NewHue()
		light.AddC(hue.C)

		sat := characteristic.NewSaturation()
		light.AddC(sat.C)

		props = append(props,
			NewSettablePropertyMapping("hue", hue.C, nil),
			NewSettablePropertyMapping("saturation", sat.C, nil))
	}

	if dev.HasFeature("fade_rate") {
		fade := NewFadeRate()
		light.AddC(fade.C)
		props = append(props, NewSettablePropertyMapping("fade_rate", fade.C, nil))
	}

	return accessory.TypeLightbulb, []*service.S{light.S}, props, nil
}

func init() {
	RegisterCreateServiceHandler(createLightServices, "light", "color", "fade_rate")
}
