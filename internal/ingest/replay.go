package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"time"
)

// replayBatch bounds how many records an unpaced replay stores before
// mirroring them to the sinks.
const replayBatch = 100

// ReplayLog re-ingests telemetry records from a JSONL stream. A speed > 0
// reproduces the recorded spacing divided by speed; otherwise records are
// ingested back to back in batches. The "key" field written by FileSink is
// dropped, since the record is stored under a fresh key. It returns the
// number of records ingested.
func ReplayLog(ctx context.Context, r io.Reader, svc *Service, speed float64) (int, error) {
	dec := json.NewDecoder(r)
	var (
		prev    time.Time
		n       int
		pending []Record
	)
	flush := func() error {
		if len(pending) == 0 {
			return nil
		}
		keys, err := svc.IngestTelemetryBatch(ctx, pending)
		n += len(keys)
		pending = pending[:0]
		return err
	}
	for {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			if ferr := flush(); ferr != nil {
				return n, ferr
			}
			if errors.Is(err, io.EOF) {
				return n, nil
			}
			return n, err
		}
		delete(rec, "key")
		if speed <= 0 {
			pending = append(pending, rec)
			if len(pending) >= replayBatch {
				if err := flush(); err != nil {
					return n, err
				}
			}
			continue
		}

		ts, err := time.Parse(time.RFC3339Nano, rec.String("timestamp"))
		if err != nil {
			svc.log.Warn("replay record has no usable timestamp, not pacing it", "unitId", rec.String("unitId"), "err", err)
		}
		if err == nil && !prev.IsZero() {
			if diff := time.Duration(float64(ts.Sub(prev)) / speed); diff > 0 {
				select {
				case <-time.After(diff):
				case <-ctx.Done():
					return n, ctx.Err()
				}
			}
		}
		if _, err := svc.IngestTelemetry(ctx, rec); err != nil {
			return n, err
		}
		n++
		if err == nil {
			prev = ts
		}
	}
}

// ReplayLogFile opens path and replays it.
func ReplayLogFile(ctx context.Context, path string, svc *Service, speed float64) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return ReplayLog(ctx, f, svc, speed)
}
