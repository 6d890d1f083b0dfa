package eta

import (
	"time"

	da "github.com/lintang-b-s/bridgeroute/pkg/datastructure"
)

// ETA is the predicted arrival at a bridge crossing. NodeID is the node at which the bridge edge ends.
type ETA struct {
	NodeID              string
	BridgeID            string
	ArrivalTime         time.Time
	TravelTimeFromStart time.Duration
}

// ETAWindow is an expected arrival with optional uncertainty bounds.
type ETAWindow struct {
	ExpectedETA ETA
	MinETA      *ETA
	MaxETA      *ETA
}

func NewETAWindow(expected ETA) ETAWindow {
	return ETAWindow{ExpectedETA: expected}
}

func (w ETAWindow) WithBounds(minETA, maxETA ETA) ETAWindow {
	w.MinETA = &minETA
	w.MaxETA = &maxETA
	return w
}

func (w ETAWindow) HasBounds() bool {
	return w.MinETA != nil && w.MaxETA != nil
}

// Estimator computes arrival times at the bridges of a route. it is stateless.
type Estimator struct{}

func NewEstimator() *Estimator {
	return &Estimator{}
}

// EstimateBridgeETAs returns one ETA per bridge edge of path, in crossing order. arrival at bridge k is departure
// plus the travel time of every edge up to and including k.
func (est *Estimator) EstimateBridgeETAs(path da.RoutePath, departure time.Time) ([]ETA, error) {
	if err := path.Validate(); err != nil {
		return nil, err
	}

	etas := make([]ETA, 0, path.BridgeCount())
	elapsed := time.Duration(0)
	for _, e := range path.GetEdges() {
		elapsed += time.Duration(e.GetTravelTime()) * time.Second
		if !e.IsBridge() {
			continue
		}
		etas = append(etas, ETA{
			NodeID:              e.GetTo(),
			BridgeID:            e.GetBridgeID(),
			ArrivalTime:         departure.Add(elapsed),
			TravelTimeFromStart: elapsed,
		})
	}
	return etas, nil
}

// EstimateBridgeWindows widens every bridge ETA by ±spread x TravelTimeFromStart. spread <= 0 leaves the
// bounds unset.
func (est *Estimator) EstimateBridgeWindows(path da.RoutePath, departure time.Time, spread float64) ([]ETAWindow, error) {
	etas, err := est.EstimateBridgeETAs(path, departure)
	if err != nil {
		return nil, err
	}

	windows := make([]ETAWindow, len(etas))
	for i, e := range etas {
		windows[i] = NewETAWindow(e)
		if spread <= 0 {
			continue
		}
		delta := time.Duration(float64(e.TravelTimeFromStart) * spread)
		lo, hi := e, e
		lo.ArrivalTime = e.ArrivalTime.Add(-delta)
		lo.TravelTimeFromStart = max(e.TravelTimeFromStart-delta, 0)
		hi.ArrivalTime = e.ArrivalTime.Add(delta)
		hi.TravelTimeFromStart = e.TravelTimeFromStart + delta
		windows[i] = windows[i].WithBounds(lo, hi)
	}
	return windows, nil
}
