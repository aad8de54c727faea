package traffic

import (
	"context"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/datapolisx/trafficserver/models"
)

// Aggregator computes camera congestion metrics from the event store. It
// holds no mutable state; every call recomputes from scratch, so
// concurrent calls are independent.
type Aggregator struct {
	store Store
	cfg   Config
}

// NewAggregator builds an aggregator over the given store. Zero fields in
// cfg fall back to the canonical defaults.
func NewAggregator(store Store, cfg Config) *Aggregator {
	return &Aggregator{store: store, cfg: cfg.withDefaults()}
}

// cameraStats accumulates one camera's samples over the live window.
type cameraStats struct {
	count  int
	sumPCU float64
	sumRaw float64

	// Weighted contributions deciding the composition.
	wHeavy float64
	wCar   float64

	// Raw per-class sums reported in vehicle_count.
	rawMoto  int
	rawCar   int
	rawHeavy int
}

// Snapshots computes the live congestion view of every camera with recent
// activity or a known capacity. cameraID of "" means all cameras. The
// result is unordered; no matching data yields an empty slice, not an
// error.
func (a *Aggregator) Snapshots(ctx context.Context, cameraID string) ([]models.CameraSnapshot, error) {
	// Anchor the window on the data, not the wall clock, so ingest latency
	// does not empty the window.
	anchor, found, err := a.store.LatestDetectionTime(ctx, cameraID)
	if err != nil {
		return nil, err
	}
	if !found {
		anchor = a.cfg.Now()
	}
	windowStart := anchor.Add(-a.cfg.Window)

	// The three reads are independent; issue them together and reduce
	// only once all have completed.
	var (
		events []models.DetectionEvent
		caps   map[string]int
		preds  map[string]float64

		errEvents, errCaps, errPreds error
	)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		events, errEvents = a.store.DetectionsInRange(ctx, cameraID, windowStart, anchor)
	}()
	go func() {
		defer wg.Done()
		caps, errCaps = a.store.Capacities(ctx, cameraID)
	}()
	go func() {
		defer wg.Done()
		preds, errPreds = a.store.NearestPredictions(ctx, cameraID, anchor)
	}()
	wg.Wait()
	for _, err := range []error{errEvents, errCaps, errPreds} {
		if err != nil {
			return nil, err
		}
	}

	stats := reduceWindow(events)

	// A camera with capacity history but no recent samples still appears,
	// with a zero score.
	cameraIDs := make(map[string]struct{}, len(stats)+len(caps))
	for id := range stats {
		cameraIDs[id] = struct{}{}
	}
	for id := range caps {
		cameraIDs[id] = struct{}{}
	}

	snapshots := make([]models.CameraSnapshot, 0, len(cameraIDs))
	for id := range cameraIDs {
		snapshots = append(snapshots, a.derive(id, stats[id], caps, preds))
	}
	log.Debug().
		Str("cameraId", cameraID).
		Time("anchor", anchor).
		Int("windowEvents", len(events)).
		Int("cameras", len(snapshots)).
		Msg("Live snapshots computed")
	return snapshots, nil
}

// reduceWindow groups the windowed events by camera and accumulates their
// decomposed loads. Events without a payload are skipped, they do not
// count as samples.
func reduceWindow(events []models.DetectionEvent) map[string]*cameraStats {
	stats := make(map[string]*cameraStats)
	for _, ev := range events {
		if ev.Detections == nil {
			continue
		}
		ld := Decompose(*ev.Detections)

		st, ok := stats[ev.CameraID]
		if !ok {
			st = &cameraStats{}
			stats[ev.CameraID] = st
		}
		st.count++
		st.sumPCU += ld.PCU
		st.sumRaw += ld.Raw
		st.wHeavy += float64(ld.Heavy) * pcuHeavy
		st.wCar += float64(ld.Car) * pcuCar
		st.rawMoto += ld.Moto
		st.rawCar += ld.Car
		st.rawHeavy += ld.Heavy
	}
	return stats
}

// derive turns one camera's accumulated window stats into its snapshot.
// st may be nil for cameras seen only in the capacity table.
func (a *Aggregator) derive(id string, st *cameraStats, caps map[string]int, preds map[string]float64) models.CameraSnapshot {
	capacity, ok := caps[id]
	if !ok || capacity < 1 {
		capacity = 1
	}

	var avgPCU, avgRaw float64
	primary := CompositionMotorbike
	if st != nil && st.count > 0 {
		avgPCU = st.sumPCU / float64(st.count)
		avgRaw = st.sumRaw / float64(st.count)

		// The weighted shares decide the classification, not the raw
		// counts: a few containers outweigh a crowd of motorbikes.
		if st.sumPCU > 0 {
			switch {
			case st.wHeavy/st.sumPCU > a.cfg.HeavyShare:
				primary = CompositionBigCar
			case st.wCar/st.sumPCU > a.cfg.CarShare:
				primary = CompositionCar
			}
		}
	}

	siScore := roundInt(avgPCU / (float64(capacity) * a.cfg.CapacityFactor) * 100)

	changePercent := 0
	if predicted, ok := preds[id]; ok && avgRaw > a.cfg.TrendMinRaw {
		changePercent = roundInt((predicted - avgRaw) / avgRaw * 100)
	}

	snap := models.CameraSnapshot{
		ID:            id,
		SiScore:       siScore,
		Composition:   models.Composition{Primary: primary},
		ChangePercent: changePercent,
	}
	if st != nil {
		snap.VehicleCount = models.VehicleCount{
			BigCar:    st.rawHeavy,
			Car:       st.rawCar,
			Motorbike: st.rawMoto,
		}
	}
	return snap
}

// roundInt rounds half-values toward +Inf, so -22.5 rounds to -22, not
// -23. change_percent relies on this for negative trends.
func roundInt(f float64) int {
	return int(math.Floor(f + 0.5))
}
