package zmachine

import "fmt"

// TextStyle is the set_text_style opcode's style bitmask.
type TextStyle int

const (
	Roman        TextStyle = 0b0000_0001
	Bold         TextStyle = 0b0000_0010
	Italic       TextStyle = 0b0000_0100
	ReverseVideo TextStyle = 0b0000_1000
	FixedPitch   TextStyle = 0b0001_0000
)

// Color is an RGB screen colour, resolved from the Z-machine's 2-12
// standard colour numbers.
type Color struct {
	R, G, B int
}

func (c Color) ToHex() string { return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B) }

// Font is one of the Z-machine's four standard font numbers.
type Font uint16

const (
	FontNormal     Font = 1
	FontPicture    Font = 2
	FontCharGraphs Font = 3
	FontFixedPitch Font = 4
)

// ScreenModel is a snapshot of split-window/style/colour/cursor state,
// pushed to Display after any opcode that changes it. Deliberately not a
// v6 model — this engine targets v3-5.
type ScreenModel struct {
	LowerWindowActive bool
	CurrentFont       Font
	BufferMode        bool

	UpperWindowHeight            int
	UpperWindowForeground        Color
	UpperWindowBackground        Color
	DefaultUpperWindowForeground Color
	DefaultUpperWindowBackground Color
	UpperWindowCursorX           int
	UpperWindowCursorY           int
	UpperWindowTextStyle         TextStyle

	DefaultLowerWindowForeground Color
	DefaultLowerWindowBackground Color
	LowerWindowForeground        Color
	LowerWindowBackground        Color
	LowerWindowTextStyle         TextStyle
}

func newScreenModel() ScreenModel {
	black := Color{0, 0, 0}
	white := Color{255, 255, 255}
	return ScreenModel{
		LowerWindowActive:            true,
		CurrentFont:                  FontNormal,
		BufferMode:                   true,
		DefaultUpperWindowForeground: black,
		DefaultUpperWindowBackground: white,
		UpperWindowForeground:        black,
		UpperWindowBackground:        white,
		UpperWindowCursorX:           1,
		UpperWindowCursorY:           1,
		UpperWindowTextStyle:         Roman,
		DefaultLowerWindowForeground: white,
		DefaultLowerWindowBackground: black,
		LowerWindowForeground:        white,
		LowerWindowBackground:        black,
		LowerWindowTextStyle:         Roman,
	}
}

// resolveColor maps a set_colour operand (0=current, 1=default, 2-12=
// standard palette) to a concrete Color.
func (s *ScreenModel) resolveColor(i uint16, isForeground bool) Color {
	switch i {
	case 0:
		if isForeground {
			return s.LowerWindowForeground
		}
		return s.LowerWindowBackground
	case 1:
		if isForeground {
			if s.LowerWindowActive {
				return s.DefaultLowerWindowForeground
			}
			return s.DefaultUpperWindowForeground
		}
		if s.LowerWindowActive {
			return s.DefaultLowerWindowBackground
		}
		return s.DefaultUpperWindowBackground
	case 2:
		return Color{0, 0, 0}
	case 3:
		return Color{255, 0, 0}
	case 4:
		return Color{0, 255, 0}
	case 5:
		return Color{255, 255, 0}
	case 6:
		return Color{0, 0, 255}
	case 7:
		return Color{255, 0, 255}
	case 8:
		return Color{0, 255, 255}
	case 9:
		return Color{255, 255, 255}
	case 10:
		return Color{192, 192, 192}
	case 11:
		return Color{128, 128, 128}
	case 12:
		return Color{64, 64, 64}
	default:
		return Color{0, 0, 0}
	}
}
