package kilgo

// image format of the icon assets shipped with the mobile app
const ICON_ASSET_FORMAT = "png"

// State of one service, as published for dashboards and the mobile app
type ServiceStatus struct {
	Kind    string         `json:"kind"`
	State   string         `json:"state"`
	Icon    Icon           `json:"icon,omitempty"`
	Asset   string         `json:"asset,omitempty"`
	Details []DetailStatus `json:"details,omitempty"`
}

type DetailStatus struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Builds the status report for a list of services.
// Services that are neither classified nor have any detail characteristics
// (e.g. accessory information) are left out.
func StatusOf(svcs []Service) []ServiceStatus {
	var report []ServiceStatus
	for _, svc := range svcs {
		c := Describe(svc)
		if c.Kind == KindUnknown && len(c.Details) == 0 {
			continue
		}

		st := ServiceStatus{
			Kind:  c.Kind.String(),
			State: c.Label,
			Icon:  c.Icon,
		}
		st.Asset, _ = c.Icon.AssetName(ICON_ASSET_FORMAT)
		for _, d := range c.Details {
			name, _ := CharacteristicName(d.Type())
			st.Details = append(st.Details, DetailStatus{
				Type:  CanonicalType(d.Type()),
				Name:  name,
				Value: d.Value().Raw(),
			})
		}
		report = append(report, st)
	}
	return report
}
