// Package metrics writes committed zaps to InfluxDB as time series points.
package metrics

import (
	"context"
	"errors"

	"github.com/dustin/go-humanize"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"

	"github.com/aman-zulfiqar/solana-zap-engine/internal/amm"
	"github.com/aman-zulfiqar/solana-zap-engine/internal/models"
)

const measurement = "zaps"

type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
	Logger *logrus.Logger
}

// Writer batches zap points through the non-blocking Influx write API.
type Writer struct {
	client   influxdb2.Client
	outbound api.WriteAPI
	logger   *logrus.Logger
	done     chan struct{}
}

func NewWriter(cfg Config) (*Writer, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("influx url, org and bucket are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	w := &Writer{
		client:   client,
		outbound: client.WriteAPI(cfg.Org, cfg.Bucket),
		logger:   logger,
		done:     make(chan struct{}),
	}

	go func() {
		defer close(w.done)
		for err := range w.outbound.Errors() {
			w.logger.WithError(err).Warn("influx write failed")
		}
	}()

	return w, nil
}

// ZapPoint converts a zap into a point. Amounts are scaled by their asset
// decimals; the size tag buckets the input amount, e.g. "1.5k".
func ZapPoint(zap *models.ZapEvent) *write.Point {
	input := amm.ToFloat(zap.InputAmount, zap.InputDecimals)
	number, suffix := humanize.ComputeSI(input)
	size := humanize.Ftoa(number) + suffix

	tags := map[string]string{
		"pool":     zap.PoolName,
		"input":    zap.InputSymbol,
		"strategy": zap.Strategy,
		"size":     size,
	}
	if tags["pool"] == "" {
		tags["pool"] = zap.Pool
	}

	fields := map[string]interface{}{
		"input_amount":   input,
		"amount_swapped": amm.ToFloat(zap.AmountSwapped, zap.InputDecimals),
		"amount_out":     amm.ToFloat(zap.AmountOut, zap.OutputDecimals),
		"residual_in":    amm.ToFloat(zap.ResidualIn, zap.InputDecimals),
		"residual_out":   amm.ToFloat(zap.ResidualOut, zap.OutputDecimals),
		"lp_shares":      amm.ToFloat(zap.LPSharesMinted, 0),
		"reserve_in":     amm.ToFloat(zap.ReserveIn, zap.InputDecimals),
		"reserve_out":    amm.ToFloat(zap.ReserveOut, zap.OutputDecimals),
		"fee_bps":        int64(zap.FeeBps),
	}

	return write.NewPoint(measurement, tags, fields, zap.Timestamp)
}

// WriteZap queues the zap's point. Delivery errors surface in the log.
func (w *Writer) WriteZap(zap *models.ZapEvent) {
	w.outbound.WritePoint(ZapPoint(zap))
}

// PublishZap lets the writer sit alongside the Redis feed as an engine
// publisher. It never blocks.
func (w *Writer) PublishZap(_ context.Context, zap *models.ZapEvent) error {
	w.WriteZap(zap)
	return nil
}

// Close flushes pending points and shuts down the client.
func (w *Writer) Close() {
	w.outbound.Flush()
	w.client.Close()
	<-w.done
}
