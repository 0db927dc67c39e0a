package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/worklog/core/metrics"
	"github.com/kilianp07/worklog/infra/logger"
)

// InfluxConfig locates the bucket ledger points are written to.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// InfluxSink writes ledger events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.MetricsSink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordAccumulation writes one ledger write attempt.
func (s *InfluxSink) RecordAccumulation(ev coremetrics.AccumulationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("worklog_write").
		AddTag("vehicle_id", strconv.FormatInt(ev.VehicleID, 10)).
		AddTag("operation", ev.Operation).
		AddTag("outcome", string(ev.Outcome)).
		AddField("active_hours", round2(ev.Active)).
		AddField("maintenance_hours", round2(ev.Maintenance)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	if !ev.Day.IsZero() {
		p = p.AddTag("work_date", ev.Day.Format("2006-01-02"))
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordUtilization writes one point per vehicle for the reported week.
func (s *InfluxSink) RecordUtilization(samples []coremetrics.UtilizationSample) error {
	if len(samples) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(samples))
	for _, u := range samples {
		points = append(points, write.NewPointWithMeasurement("vehicle_utilization").
			AddTag("vehicle_id", strconv.FormatInt(u.VehicleID, 10)).
			AddTag("vehicle_name", u.VehicleName).
			AddField("active_hours", round2(u.ActiveHours)).
			AddField("maintenance_hours", round2(u.Maintenance)).
			AddField("idle_hours", round2(u.IdleHours)).
			AddField("active_pct", round2(u.ActivePct)).
			AddField("maintenance_pct", round2(u.MaintenancePct)).
			AddField("idle_pct", round2(u.IdlePct)).
			SetTime(u.WeekStart))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordAuditFact writes an audit fact marker.
func (s *InfluxSink) RecordAuditFact(ev coremetrics.AuditFactEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("audit_fact").
		AddTag("action", ev.Action).
		AddField("count", 1).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close flushes and releases the client.
func (s *InfluxSink) Close() error {
	s.client.Close()
	return nil
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
