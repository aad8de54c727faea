package traffic

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/datapolisx/trafficserver/models"
)

const dateLayout = "2006-01-02"

// InvalidDateError reports a malformed calendar date argument.
type InvalidDateError struct {
	Date string
}

func (e InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date %q, want YYYY-MM-DD", e.Date)
}

// hourAccum accumulates one hour bucket before averaging.
type hourAccum struct {
	count    int
	sumSI    float64
	sumTotal float64
	sumMoto  float64
	sumCar   float64
	sumHeavy float64
}

// DailyStats buckets one camera's detection events for one calendar day
// into 24 hourly buckets plus a same-day-to-date summary. The day runs
// from local midnight to local midnight in the configured fixed offset.
// An unseen camera yields all-zero buckets under the fallback capacity,
// not an error.
func (a *Aggregator) DailyStats(ctx context.Context, cameraID, date string) (models.DailyStats, error) {
	dayStart, err := time.ParseInLocation(dateLayout, date, a.cfg.Location)
	if err != nil {
		return models.DailyStats{}, InvalidDateError{Date: date}
	}
	dayEnd := dayStart.Add(24*time.Hour - time.Millisecond)

	var (
		events []models.DetectionEvent
		caps   map[string]int

		errEvents, errCaps error
		done               = make(chan struct{})
	)
	go func() {
		defer close(done)
		caps, errCaps = a.store.Capacities(ctx, cameraID)
	}()
	events, errEvents = a.store.DetectionsInRange(ctx, cameraID, dayStart, dayEnd)
	<-done
	if errEvents != nil {
		return models.DailyStats{}, errEvents
	}
	if errCaps != nil {
		return models.DailyStats{}, errCaps
	}

	capacity, ok := caps[cameraID]
	if !ok || capacity < 1 {
		capacity = a.cfg.DailyCapacityFallback
	}
	saturation := float64(capacity) * a.cfg.DailyCapacityFactor

	var buckets [24]hourAccum
	var untilNow hourAccum
	now := a.cfg.Now()

	for _, ev := range events {
		if ev.Detections == nil {
			continue
		}
		ld := Decompose(*ev.Detections)
		instantSI := ld.Raw / saturation * 100

		hour := ev.CreatedAt.In(a.cfg.Location).Hour()
		b := &buckets[hour]
		b.count++
		b.sumSI += instantSI
		b.sumTotal += ld.Raw
		b.sumMoto += float64(ld.Moto)
		b.sumCar += float64(ld.Car)
		b.sumHeavy += float64(ld.Heavy)

		if !ev.CreatedAt.After(now) {
			untilNow.count++
			untilNow.sumSI += instantSI
			untilNow.sumTotal += ld.Raw
			untilNow.sumMoto += float64(ld.Moto)
			untilNow.sumCar += float64(ld.Car)
			untilNow.sumHeavy += float64(ld.Heavy)
		}
	}

	chart := make([]models.HourBucket, 24)
	for hour := range buckets {
		chart[hour] = buckets[hour].toBucket(hour)
	}

	stats := models.DailyStats{
		CameraID:  cameraID,
		Date:      date,
		Summary:   summarize(untilNow, len(events), capacity),
		ChartData: chart,
	}
	log.Debug().
		Str("cameraId", cameraID).
		Str("date", date).
		Int("records", len(events)).
		Int("capacity", capacity).
		Msg("Daily stats computed")
	return stats, nil
}

// toBucket averages an hour's accumulation into its chart entry. Hours
// without samples report zeros so the chart always has a full x-axis.
func (h hourAccum) toBucket(hour int) models.HourBucket {
	b := models.HourBucket{
		TimeDisplay: fmt.Sprintf("%02d:00", hour),
		HourIndex:   hour,
	}
	if h.count == 0 {
		return b
	}
	n := float64(h.count)
	b.SiScore = roundInt(h.sumSI / n)
	b.TotalCount = roundInt(h.sumTotal / n)
	b.Motorbike = roundInt(h.sumMoto / n)
	b.Car = roundInt(h.sumCar / n)
	b.BigCar = roundInt(h.sumHeavy / n)
	return b
}

func summarize(u hourAccum, totalRecords, capacity int) models.DailySummary {
	summary := models.DailySummary{
		TotalRecords:      totalRecords,
		EstimatedCapacity: capacity,
	}
	if u.count == 0 {
		return summary
	}
	n := float64(u.count)
	summary.AvgSiUntilNow = roundInt(u.sumSI / n)
	summary.AvgVehiclesUntilNow = roundInt(u.sumTotal / n)

	avgMoto := u.sumMoto / n
	avgCar := u.sumCar / n
	avgHeavy := u.sumHeavy / n
	totalAvg := avgMoto + avgCar + avgHeavy

	summary.VehicleBreakdown = models.VehicleBreakdown{
		Motorbike: breakdownEntry(avgMoto, totalAvg),
		Car:       breakdownEntry(avgCar, totalAvg),
		BigCar:    breakdownEntry(avgHeavy, totalAvg),
	}
	return summary
}

func breakdownEntry(avg, totalAvg float64) models.ClassBreakdown {
	e := models.ClassBreakdown{AvgCount: roundInt(avg)}
	if totalAvg > 0 {
		e.Percentage = roundInt(avg / totalAvg * 100)
	}
	return e
}
