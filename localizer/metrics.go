package localizer

import "time"

// MetricsObserver receives search events.
type MetricsObserver interface {
	// OnStep is called after every processed query.
	OnStep(relocalized, lost bool, duration time.Duration)
	// OnPrune is called for every frontier node discarded as not worth expanding.
	OnPrune()
	// OnRelaxation is called when a cheaper path to a visited node is found.
	OnRelaxation()
}

// NoopMetricsObserver discards all events.
type NoopMetricsObserver struct{}

func (NoopMetricsObserver) OnStep(bool, bool, time.Duration) {}
func (NoopMetricsObserver) OnPrune()                         {}
func (NoopMetricsObserver) OnRelaxation()                    {}

// Stats holds search counters.
type Stats struct {
	Nodes           int
	Frontier        int
	Expansions      int64
	Relocalizations int64
	LostDetections  int64
	Pruned          int64
	Relaxations     int64
	StaleEntries    int64
}
