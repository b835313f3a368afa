package gas

// Record is one history entry: the state after an update together with
// the process and rate that produced it. Step 0 is the initial state.
type Record struct {
	Step    int
	Process Process
	Rate    float64
	Thermo
}

// Recorder receives one Record per successful update.
type Recorder interface {
	Record(r Record)
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(Record)

func (f RecorderFunc) Record(r Record) { f(r) }

// Recorders fans a record out to several sinks in order.
type Recorders []Recorder

func (rs Recorders) Record(r Record) {
	for _, rec := range rs {
		rec.Record(r)
	}
}

type discard struct{}

func (discard) Record(Record) {}

// History keeps the four append-only scalar sequences used for plotting.
type History struct {
	Temperature []float64
	Pressure    []float64
	Energy      []float64
	Volume      []float64
}

func NewHistory() *History {
	return &History{}
}

func (h *History) Record(r Record) {
	h.Temperature = append(h.Temperature, r.Temperature)
	h.Pressure = append(h.Pressure, r.Pressure)
	h.Energy = append(h.Energy, r.Energy)
	h.Volume = append(h.Volume, r.Volume)
}

// Len returns the number of entries in each sequence.
func (h *History) Len() int { return len(h.Temperature) }
