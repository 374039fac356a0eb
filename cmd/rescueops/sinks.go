package main

import (
	"rescueops/internal/config"
	"rescueops/internal/ingest"
)

// newSinks builds the telemetry sinks from storage settings: GreptimeDB
// when an endpoint is configured and printOnly is off, STDOUT when asked
// for, and a JSONL log when logFile is set. The cleanup func closes files.
func newSinks(st config.Storage, printOnly bool, logFile string) ([]ingest.TelemetrySink, func(), error) {
	cleanup := func() {}
	var sinks []ingest.TelemetrySink

	if st.GreptimeEndpoint != "" && !printOnly {
		g, err := ingest.NewGreptimeSink(st.GreptimeEndpoint, st.GreptimeDatabase, st.GreptimeTable)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, g)
	} else if printOnly || st.Stdout {
		sinks = append(sinks, ingest.NewStdoutSink(nil))
	}

	if logFile == "" {
		logFile = st.TelemetryLog
	}
	if logFile != "" {
		fs, err := ingest.NewFileSink(logFile)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, fs)
		cleanup = func() { _ = fs.Close() }
	}
	return sinks, cleanup, nil
}
