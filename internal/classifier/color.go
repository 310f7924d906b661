package classifier

// Color is an indicator light colour.
type Color string

const (
	Red    Color = "red"
	Green  Color = "green"
	Yellow Color = "yellow"
	Blue   Color = "blue"
	White  Color = "white"
	Off    Color = "off"
)

// LightColor collapses a status onto the two-colour indicator: red when the
// chute is full or needs attention, green for everything else including
// unknown.
func LightColor(s Status) Color {
	switch s {
	case Full, NeedsAttention:
		return Red
	default:
		return Green
	}
}
