package kilgo

import (
	"github.com/brutella/hap/characteristic"
)

// Seconds a Kilgo light takes to fade between brightness levels.
type FadeRate struct {
	*characteristic.Float
}

func NewFadeRate() *FadeRate {
	c := characteristic.NewFloat(FADE_RATE_TYPE)
	c.Format = characteristic.FormatFloat
	c.Permissions = []string{characteristic.PermissionRead, characteristic.PermissionWrite, characteristic.PermissionEvents}
	c.Unit = characteristic.UnitSeconds
	c.Description = "Fade Rate"

	c.SetMinValue(0)
	c.SetMaxValue(10)
	c.SetStepValue(0.1)
	c.SetValue(1)

	return &FadeRate{c}
}
