package layout

// GroupShape classifies a Group component into the configurations the engine
// knows how to resolve.
type GroupShape int

const (
	// ShapeNone is returned for components that are not groups.
	ShapeNone GroupShape = iota
	ShapeRepeating
	ShapeRepeatingLikert
	ShapePanelReference
	ShapePanel
	ShapePlain
	// ShapeInvalid marks a group that matches none of the known shapes.
	ShapeInvalid
)

func (s GroupShape) String() string {
	switch s {
	case ShapeRepeating:
		return "repeating"
	case ShapeRepeatingLikert:
		return "repeating-likert"
	case ShapePanelReference:
		return "panel-reference"
	case ShapePanel:
		return "panel"
	case ShapePlain:
		return "plain"
	case ShapeInvalid:
		return "invalid"
	default:
		return "none"
	}
}

// IsRepeating reports whether a group repeats (maxCount > 1) and is not a
// likert group.
func IsRepeating(c Component) bool {
	return c.Type == TypeGroup && c.MaxCount > 1 && !isLikertMode(c)
}

// IsRepeatingLikert reports whether a group repeats and renders its rows as
// likert questions.
func IsRepeatingLikert(c Component) bool {
	return c.Type == TypeGroup && c.MaxCount > 1 && isLikertMode(c)
}

// IsRepeatingAny covers both repeating shapes.
func IsRepeatingAny(c Component) bool {
	return IsRepeating(c) || IsRepeatingLikert(c)
}

// IsNonRepeating reports whether a group renders its children once.
func IsNonRepeating(c Component) bool {
	return c.Type == TypeGroup && c.MaxCount <= 1
}

// IsNonRepeatingPanel reports whether a non-repeating group renders as a
// panel.
func IsNonRepeatingPanel(c Component) bool {
	return IsNonRepeating(c) && c.Panel != nil
}

// ShapeOf resolves the configuration shape of a group. lookup is used to
// verify panel group references; it may be nil.
func ShapeOf(c Component, lookup map[string]*Component) GroupShape {
	if c.Type != TypeGroup {
		return ShapeNone
	}
	if c.MaxCount < 0 {
		return ShapeInvalid
	}
	if isLikertMode(c) && c.MaxCount <= 1 {
		return ShapeInvalid
	}
	if IsRepeatingLikert(c) {
		return ShapeRepeatingLikert
	}
	if IsRepeating(c) {
		if c.Panel != nil && c.Panel.GroupReference != nil {
			return ShapeInvalid
		}
		return ShapeRepeating
	}
	if IsNonRepeatingPanel(c) {
		if ref := c.Panel.GroupReference; ref != nil {
			if lookup != nil {
				target, ok := lookup[ref.Group]
				if !ok || !IsRepeating(*target) {
					return ShapeInvalid
				}
			}
			return ShapePanelReference
		}
		return ShapePanel
	}
	if IsNonRepeating(c) {
		return ShapePlain
	}
	return ShapeInvalid
}

func isLikertMode(c Component) bool {
	return c.Edit != nil && c.Edit.Mode == EditModeLikert
}
