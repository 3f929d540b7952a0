package task

// Abstract is anything that can arrive on the input channel: a *Task or one
// of the control commands below. The set is closed.
type Abstract interface {
	abstract()
}

// Pause stops input for the given number of time units.
type Pause struct {
	Duration int64 `json:"duration"`
}

// Reset clears the memory.
type Reset struct{}

// Echo re-emits a message on the echo channel without touching memory.
type Echo struct {
	Channel string `json:"channel"`
	Message string `json:"message"`
}

// SetVolume changes the output noise level, 0 (silent) to 100 (everything).
type SetVolume struct {
	Volume int `json:"volume"`
}

func (Pause) abstract()     {}
func (Reset) abstract()     {}
func (Echo) abstract()      {}
func (SetVolume) abstract() {}
