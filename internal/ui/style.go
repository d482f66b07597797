package ui

// Theme maps node roles to draw styles.
type Theme struct {
	Base      Style
	Selected  Style
	Group     Style
	Running   Style
	Suspended Style
	Created   Style
	Completed Style
	Creation  Style
	Error     Style
	Empty     Style
	Status    Style
	Stack     Style
}

// DefaultTheme uses the standard 16-color palette.
func DefaultTheme() Theme {
	plain := Style{Fg: ColorDefault, Bg: ColorDefault}
	return Theme{
		Base:      plain,
		Selected:  Style{Fg: ColorDefault, Bg: ColorDefault, Reverse: true},
		Group:     Style{Fg: ColorDefault, Bg: ColorDefault, Bold: true},
		Running:   Style{Fg: 2, Bg: ColorDefault}, // green
		Suspended: Style{Fg: 3, Bg: ColorDefault}, // yellow
		Created:   Style{Fg: 6, Bg: ColorDefault}, // cyan
		Completed: Style{Fg: 8, Bg: ColorDefault}, // gray
		Creation:  Style{Fg: ColorDefault, Bg: ColorDefault, Dim: true},
		Error:     Style{Fg: 1, Bg: ColorDefault, Bold: true}, // red
		Empty:     Style{Fg: ColorDefault, Bg: ColorDefault, Dim: true},
		Status:    Style{Fg: ColorDefault, Bg: ColorDefault, Reverse: true},
		Stack:     Style{Fg: ColorDefault, Bg: ColorDefault, Bold: true},
	}
}

// MonochromeTheme renders without color for limited terminals.
func MonochromeTheme() Theme {
	plain := Style{Fg: ColorDefault, Bg: ColorDefault}
	return Theme{
		Base:      plain,
		Selected:  Style{Fg: ColorDefault, Bg: ColorDefault, Reverse: true},
		Group:     Style{Fg: ColorDefault, Bg: ColorDefault, Bold: true},
		Running:   plain,
		Suspended: plain,
		Created:   plain,
		Completed: Style{Fg: ColorDefault, Bg: ColorDefault, Dim: true},
		Creation:  Style{Fg: ColorDefault, Bg: ColorDefault, Dim: true},
		Error:     Style{Fg: ColorDefault, Bg: ColorDefault, Bold: true},
		Empty:     Style{Fg: ColorDefault, Bg: ColorDefault, Dim: true},
		Status:    Style{Fg: ColorDefault, Bg: ColorDefault, Reverse: true},
		Stack:     Style{Fg: ColorDefault, Bg: ColorDefault, Bold: true},
	}
}
