package kilgo

// Read-only view of a HAP characteristic
type Characteristic interface {
	Type() string
	Value() Value
}

// Read-only view of a HAP service.
// Characteristics must be returned in the service's own order.
type Service interface {
	Type() string
	Characteristics() []Characteristic
}

// Everything the UI needs to render a service
type Classification struct {
	Kind    ServiceKind
	Control Characteristic
	Display Characteristic
	Details []Characteristic
	Label   string
	Icon    Icon
}

const LABEL_UNKNOWN = "Unknown"

// Returns the kind of service, KindUnknown if the type isn't recognized.
func Classify(svc Service) ServiceKind {
	return serviceKinds[CanonicalType(svc.Type())]
}

// Returns the type of the characteristic that is written to control a service of this kind.
func ControlCharacteristicType(kind ServiceKind) (string, bool) {
	t, ok := controlTypes[kind]
	return t, ok
}

// Returns the type of the characteristic that reflects the observed state of a service of this kind.
func DisplayCharacteristicType(kind ServiceKind) (string, bool) {
	t, ok := displayTypes[kind]
	return t, ok
}

// Primary characteristic to toggle when the service is tapped, or nil
func ControlCharacteristic(svc Service) Characteristic {
	typ, ok := ControlCharacteristicType(Classify(svc))
	if !ok {
		return nil
	}
	return firstOfType(svc, typ)
}

// Primary characteristic to show for the service, or nil
func DisplayCharacteristic(svc Service) Characteristic {
	typ, ok := DisplayCharacteristicType(Classify(svc))
	if !ok {
		return nil
	}
	return firstOfType(svc, typ)
}

func firstOfType(svc Service, typ string) Characteristic {
	for _, c := range svc.Characteristics() {
		if CanonicalType(c.Type()) == typ {
			return c
		}
	}
	return nil
}

// Characteristics to list in a details view, in service order.
func DetailCharacteristics(svc Service) []Characteristic {
	var details []Characteristic
	for _, c := range svc.Characteristics() {
		if isDetailType(CanonicalType(c.Type())) {
			details = append(details, c)
		}
	}
	return details
}

// Returns a label and icon for the current state of the service.
// Unexpected or missing values degrade to LABEL_UNKNOWN.
func DescribeState(svc Service) (string, Icon) {
	kind := Classify(svc)

	var v Value
	if c := DisplayCharacteristic(svc); c != nil {
		v = c.Value()
	}
	return describe(kind, v)
}

func describe(kind ServiceKind, v Value) (string, Icon) {
	switch kind {
	case KindLightBulb:
		on, ok := v.Bool()
		switch {
		case !ok:
			return LABEL_UNKNOWN, IconBulbOff
		case on:
			return "On", IconBulbOn
		default:
			return "Off", IconBulbOff
		}

	case KindGarageDoor:
		// an unrecognized state has no icon, but a missing one shows the door closed
		state, ok := v.Int()
		if !ok {
			return LABEL_UNKNOWN, IconDoorClosed
		}
		if ds, known := doorStates[state]; known {
			return ds.label, ds.icon
		}
		return LABEL_UNKNOWN, IconNone
	}

	return LABEL_UNKNOWN, IconNone
}

// Classifies the service and derives all of its display attributes.
func Describe(svc Service) Classification {
	label, icon := DescribeState(svc)
	return Classification{
		Kind:    Classify(svc),
		Control: ControlCharacteristic(svc),
		Display: DisplayCharacteristic(svc),
		Details: DetailCharacteristics(svc),
		Label:   label,
		Icon:    icon,
	}
}
