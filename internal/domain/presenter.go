package domain

// Presentation is how a dashboard renders a risk level.
type Presentation struct {
	Label   string `json:"label"`
	Color   string `json:"color"`
	Emoji   string `json:"emoji"`
	Message string `json:"message"`
}

var presentations = map[RiskLevel]Presentation{
	RiskSafe:    {Label: "SAFE", Color: "#22c55e", Emoji: "🟢", Message: "Safe Conditions"},
	RiskWarning: {Label: "WARNING", Color: "#eab308", Emoji: "🟡", Message: "Warning - Monitor Closely"},
	RiskDanger:  {Label: "DANGER", Color: "#dc2626", Emoji: "🔴", Message: "GLOF Alert - High Risk"},
}

var unknownPresentation = Presentation{Label: "UNKNOWN", Color: "#6b7280", Emoji: "⚪", Message: "Status Unknown"}

// Present returns the display attributes for a risk level.
func Present(level RiskLevel) Presentation {
	if p, ok := presentations[level]; ok {
		return p
	}
	return unknownPresentation
}
