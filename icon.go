package kilgo

// Symbolic icon for a service state.
// The UI layer resolves these to image assets.
type Icon int

const (
	IconNone Icon = iota
	IconBulbOn
	IconBulbOff
	IconDoorOpen
	IconDoorClosed
	IconDoorOpening
	IconDoorClosing
)

var iconNames = map[Icon]string{
	IconNone:        "",
	IconBulbOn:      "bulb-on",
	IconBulbOff:     "bulb-off",
	IconDoorOpen:    "door-open",
	IconDoorClosed:  "door-closed",
	IconDoorOpening: "door-opening",
	IconDoorClosing: "door-closing",
}

// Returns the resource name of the icon, or "" for IconNone
func (i Icon) String() string { return iconNames[i] }

func ParseIcon(s string) (Icon, bool) {
	if s == "" {
		return IconNone, false
	}
	for i, n := range iconNames {
		if n == s {
			return i, true
		}
	}
	return IconNone, false
}

// Returns the image file name for the icon, in the given asset format.
// The second return value is false for IconNone.
func (i Icon) AssetName(ext string) (string, bool) {
	n := i.String()
	if n == "" {
		return "", false
	}
	return n + "." + ext, true
}

func (i Icon) MarshalText() ([]byte, error) { return []byte(i.String()), nil }

func (i *Icon) UnmarshalText(b []byte) error {
	*i, _ = ParseIcon(string(b))
	return nil
}
