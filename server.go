package anomaly

import (
	"context"
	"encoding/json"
	"github.com/adamdorogi/anomaly-detection/messages"
	"github.com/adamdorogi/anomaly-detection/schema"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"math"
	"net/http"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
	"time"
)

func (d *Detector) setupServer() {
	r := d.server

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"series":      d.cfg.Series,
			"subscribers": d.broker.SubCount(),
			"dropped":     d.broker.DropCount(),
		})
	})

	r.GET("/ws", func(c *gin.Context) {
		ctx := c.Request.Context()

		conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			_ = c.AbortWithError(http.StatusInternalServerError, err)
			return
		}

		defer func() {
			_ = conn.Close(websocket.StatusInternalError, "closed unexpectedly")
		}()

		_, reqBytes, err := conn.Read(ctx)
		if err != nil {
			d.logger.Warn("ws read", zap.Error(err))
			return
		}
		conn.CloseRead(ctx)

		type reqT struct {
			Series       string `json:"series"`
			ViewWindowMs uint64 `json:"viewWindowMs"`
		}

		var req reqT
		if err := json.Unmarshal(reqBytes, &req); err != nil {
			d.logger.Warn("ws request", zap.Error(err))
			return
		}
		if req.Series == "" {
			req.Series = d.cfg.Series
		}

		now := time.Now()
		if err := wsjson.Write(ctx, conn, map[string]any{
			"now": now.UnixMilli(),
		}); err != nil {
			d.logger.Warn("ws write timestamp", zap.Error(err))
			return
		}

		viewWindow := time.Duration(req.ViewWindowMs) * time.Millisecond
		d.streamRows(ctx, conn, req.Series, now.Add(-viewWindow), now)
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// streamRows sends the stored samples of the view window, then follows
// with one row per live decision (or raw sample, for series the
// detector does not watch) until the client goes away.
func (d *Detector) streamRows(
	ctx context.Context,
	conn *websocket.Conn,
	series string,
	start time.Time,
	now time.Time,
) {
	// subscribe first so rows published during the snapshot read are
	// buffered rather than lost
	msgCh := d.broker.Subscribe()
	defer d.broker.Unsubscribe(msgCh)

	samples, err := d.db.LoadSamplesBetween(series, start, now)
	if err != nil {
		_ = wsjson.Write(ctx, conn, &messages.Data{Error: "load history failed"})
		d.logger.Warn("ws load history", zap.Error(err))
		return
	}

	lastSeenMs := int64(math.MinInt64)
	initial := &messages.Data{
		Series: series,
		Rows:   make([]messages.Row, len(samples)),
	}
	for i, s := range samples {
		initial.Rows[i] = messages.Row{
			TimestampMs: s.Timestamp.UnixMilli(),
			Value:       s.Value,
		}
		lastSeenMs = initial.Rows[i].TimestampMs
	}
	if err := wsjson.Write(ctx, conn, initial); err != nil {
		d.logger.Warn("ws write initial data", zap.Error(err))
		return
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.ctx.Done():
			return
		case msg := <-msgCh:
			var row messages.Row
			switch m := msg.(type) {
			case schema.Decision:
				if m.Series != series {
					continue
				}
				if m.Timestamp.UnixMilli() <= lastSeenMs {
					continue
				}
				row = messages.Row{
					TimestampMs: m.Timestamp.UnixMilli(),
					Value:       m.Value,
					ZScore:      &m.ZScore,
					Outlier:     &m.Outlier,
				}
			case schema.Sample:
				// rows for the watched series arrive as decisions
				if series == d.cfg.Series || m.Series != series {
					continue
				}
				if m.Timestamp.UnixMilli() <= lastSeenMs {
					continue
				}
				row = messages.Row{
					TimestampMs: m.Timestamp.UnixMilli(),
					Value:       m.Value,
				}
			default:
				continue
			}

			data := &messages.Data{Series: series, Rows: []messages.Row{row}}
			if err := wsjson.Write(ctx, conn, data); err != nil {
				d.logger.Warn("ws write row", zap.Error(err))
				return
			}
		}
	}
}

func (d *Detector) RunServer(address string) error {
	if err := d.server.Run(address); err != nil {
		return errors.Wrap(err, "run")
	}
	return nil
}
