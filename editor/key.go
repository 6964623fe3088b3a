package editor

// Key is a single decoded input event from the terminal.
type Key int

const (
	KeyNone Key = iota
	KeyChar     // a decoded rune, returned alongside it by keyReader.Read
	KeyEnter
	KeyBackspace
	KeyDelete
	KeyLeft
	KeyRight
	KeyHome
	KeyEnd
	KeyUp
	KeyDown
	KeyCtrlA
	KeyCtrlC
	KeyCtrlD
	KeyCtrlE
	KeyCtrlK
	KeyCtrlL
	KeyCtrlR
	KeyCtrlU
	KeyCtrlW
	KeyTab
	KeyEscape
)
