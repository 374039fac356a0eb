package ingest

import (
	"context"
	"fmt"
	"net"
	"strconv"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

// DefaultGreptimePort is the gRPC port used when the endpoint has none.
const DefaultGreptimePort = 4001

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeSink writes telemetry rows to a GreptimeDB table.
type GreptimeSink struct {
	client greptimeClient
	table  string
}

// NewGreptimeSink connects to endpoint (host or host:port).
func NewGreptimeSink(endpoint, database, tableName string) (*GreptimeSink, error) {
	host, port := endpoint, DefaultGreptimePort
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("greptime port %q: %w", p, err)
		}
		host, port = h, n
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	if tableName == "" {
		tableName = "unit_telemetry"
	}
	return &GreptimeSink{client: client, table: tableName}, nil
}

func (g *GreptimeSink) WriteTelemetry(ctx context.Context, row TelemetryRow) error {
	return g.WriteTelemetryBatch(ctx, []TelemetryRow{row})
}

func (g *GreptimeSink) WriteTelemetryBatch(ctx context.Context, rows []TelemetryRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(g.table)
	if err != nil {
		return err
	}
	for _, c := range []struct {
		name string
		tag  bool
		typ  types.ColumnType
	}{
		{"unit_id", true, types.STRING},
		{"unit_type", true, types.STRING},
		{"lat", false, types.FLOAT64},
		{"lng", false, types.FLOAT64},
		{"status", false, types.STRING},
		{"battery", false, types.FLOAT64},
		{"record_key", false, types.STRING},
	} {
		if c.tag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return fmt.Errorf("column %s: %w", c.name, err)
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tbl.AddRow(r.UnitID, r.UnitType, r.Lat, r.Lng, r.Status, r.Battery, r.Key, r.Timestamp); err != nil {
			return fmt.Errorf("row %s: %w", r.Key, err)
		}
	}
	if _, err := g.client.Write(ctx, tbl); err != nil {
		return fmt.Errorf("greptime write %d rows: %w", len(rows), err)
	}
	return nil
}
