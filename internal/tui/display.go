package tui

// Display hands status text from sampler goroutines to the bubbletea loop.
// Only the newest texts are kept when the UI falls behind; SetText never blocks.
type Display struct {
	ch chan string
}

// NewDisplay creates a Display buffering up to size pending texts.
func NewDisplay(size int) *Display {
	if size < 1 {
		size = 1
	}
	return &Display{ch: make(chan string, size)}
}

func (d *Display) SetText(text string) {
	for {
		select {
		case d.ch <- text:
			return
		default:
			// drop the oldest pending text
			select {
			case <-d.ch:
			default:
			}
		}
	}
}

// Updates is read by the UI loop.
func (d *Display) Updates() <-chan string {
	return d.ch
}
