package output

// Kind says which protocol produced a record.
type Kind string

const (
	KindCompare   Kind = "compare"
	KindBenchmark Kind = "benchmark"
)

// Record is one specification's structured outcome as it flows to sinks.
// Result is the stable JSON shape produced by the pyre package (ToJSON);
// sinks never reach into it beyond serialization.
type Record struct {
	Name       string         `json:"name"`
	Kind       Kind           `json:"kind"`
	Discrepant bool           `json:"discrepant"`
	Result     map[string]any `json:"result"`
}

// Sink consumes records. Write may be called from concurrent runs;
// implementations serialize internally. Close flushes aggregate formats.
type Sink interface {
	Write(Record) error
	Close() error
}
