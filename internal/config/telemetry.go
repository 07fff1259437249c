package config

// TelemetryFlags enable OpenTelemetry export. They are embedded with an env
// prefix naming the process, e.g. SERVER_TELEMETRY.
type TelemetryFlags struct {
	Enabled     bool    `name:"telemetry" help:"enable OpenTelemetry traces and metrics" default:"false" env:"TELEMETRY"`
	SampleRatio float64 `name:"telemetry-sample-ratio" help:"fraction of traces to keep" default:"1" env:"TELEMETRY_SAMPLE_RATIO"`
}
