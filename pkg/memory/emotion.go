package memory

// Emotion tracks two running averages: how busy the memory is with new work
// and how satisfied it is with what it achieves. Both stay in [0,1].
type Emotion struct {
	busy  float64
	happy float64
}

func (e *Emotion) Busy() float64  { return e.busy }
func (e *Emotion) Happy() float64 { return e.happy }

// Set overwrites both levels.
func (e *Emotion) Set(happy, busy float64) {
	e.happy = happy
	e.busy = busy
}

// AdjustBusy folds value into the busy level with the given weight.
func (e *Emotion) AdjustBusy(value, weight float64) {
	e.busy = (e.busy + value*weight) / (1 + weight)
}

// AdjustHappy folds value into the happy level with the given weight.
func (e *Emotion) AdjustHappy(value, weight float64) {
	e.happy = (e.happy + value*weight) / (1 + weight)
}
