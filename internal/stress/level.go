package stress

// Level is a presentation band for a stress score.
type Level string

// Levels, lowest first.
const (
	LevelLow      Level = "low"
	LevelModerate Level = "moderate"
	LevelElevated Level = "elevated"
	LevelHigh     Level = "high"
)

// Levels lists every level in ascending order.
var Levels = []Level{LevelLow, LevelModerate, LevelElevated, LevelHigh}

// Guidance is the text shown alongside a level.
type Guidance struct {
	Level           Level    `json:"level"`
	Title           string   `json:"title"`
	Label           string   `json:"label"`
	Message         string   `json:"message"`
	Recommendations []string `json:"recommendations,omitempty"`
}

var recommendations = []string{
	"Try the breathing exercise to calm your nervous system",
	"Take a 5-minute break and stretch your hands",
	"Talk through what might be causing the stress",
}

// LevelFor returns the band a score falls in.
func LevelFor(score int) Level {
	switch {
	case score <= 30:
		return LevelLow
	case score <= 50:
		return LevelModerate
	case score <= 70:
		return LevelElevated
	default:
		return LevelHigh
	}
}

// Label returns the short display name of l.
func (l Level) Label() string {
	switch l {
	case LevelLow:
		return "Low Stress"
	case LevelModerate:
		return "Moderate"
	case LevelElevated:
		return "Elevated"
	default:
		return "High Stress"
	}
}

// GuidanceFor returns the title, message and recommendations for a score.
func GuidanceFor(score int) Guidance {
	level := LevelFor(score)
	g := Guidance{Level: level, Label: level.Label()}
	switch g.Level {
	case LevelLow:
		g.Title = "Low Stress Detected"
		g.Message = "Your typing patterns suggest you're feeling calm and relaxed."
	case LevelModerate:
		g.Title = "Moderate Stress Detected"
		g.Message = "Your typing shows some signs of stress. Consider a short break or a breathing exercise."
	case LevelElevated:
		g.Title = "Elevated Stress Detected"
		g.Message = "Your typing patterns indicate elevated stress. Some relaxation techniques may help."
	default:
		g.Title = "High Stress Detected"
		g.Message = "Your typing suggests high stress. Please take care of yourself."
	}
	if score > recommendAboveMax {
		g.Recommendations = append([]string(nil), recommendations...)
	}
	return g
}
