package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Sumatoshi-tech/fixedkit/pkg/observability"
)

const (
	testSmallCapacity = 32
	testDumpKeys      = 5
)

const passingScript = `name: tiny
container: set
capacity: 2
steps:
  - {op: insert, key: 2}
  - {op: insert, key: 1}
  - {op: expect-keys, keys: [1, 2]}
  - {op: expect-error, key: 3, error: tree-full}
`

const failingScript = `name: wrong
container: map
capacity: 4
steps:
  - {op: insert, key: 1, value: 10}
  - {op: expect-size, size: 2}
`

// stubInit returns providers that record spans into exporter and discard logs.
func stubInit(exporter *tracetest.InMemoryExporter) (initFunc, *sdktrace.TracerProvider) {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return func(_ observability.Config, _ io.Writer) (observability.Providers, error) {
		return observability.Providers{
			Tracer:   tp.Tracer("fixedkit"),
			Logger:   slog.New(slog.DiscardHandler),
			Shutdown: func(_ context.Context) error { return nil },
		}, nil
	}, tp
}

func execute(t *testing.T, args ...string) (string, *tracetest.InMemoryExporter, error) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	initFn, tp := stubInit(exporter)

	t.Cleanup(func() { require.NoError(t, tp.Shutdown(context.Background())) })

	var out bytes.Buffer

	root := newRootCommandWithDeps(initFn)
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(append([]string{"--no-color"}, args...))

	err := root.ExecuteContext(context.Background())

	return out.String(), exporter, err
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func spanNames(exporter *tracetest.InMemoryExporter) []string {
	var names []string

	for _, s := range exporter.GetSpans() {
		names = append(names, s.Name)
	}

	return names
}

func TestVerify_PassesAndEmitsSpans(t *testing.T) {
	t.Parallel()

	out, exporter, err := execute(t, "verify", "--capacity", "32", "-n", "2000", "--key-space", "64", "--seed", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "PASS")

	names := spanNames(exporter)
	assert.Contains(t, names, "fixedkit.verify")
	assert.Contains(t, names, "workload.verify")
}

func TestVerify_ConfigFileAndJSONFormat(t *testing.T) {
	t.Parallel()

	cfgPath := writeFile(t, "fixedkit.yaml", `workload:
  capacity: 32
  operations: 500
  key_space: 48
  seed: 9
report:
  format: json
`)

	out, _, err := execute(t, "--config", cfgPath, "verify")
	require.NoError(t, err)

	var doc map[string]any

	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, true, doc["passed"])
	assert.InDelta(t, 500, doc["steps"], 0)

	poolDoc, ok := doc["pool"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, testSmallCapacity, poolDoc["capacity"], 0)
}

func TestVerify_InvalidFlagValue(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "verify", "--erase-ratio", "1.5")
	require.Error(t, err)
}

func TestVerify_InvalidPolicy(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "--policy", "explode", "verify")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid configuration")
}

func TestBench_SweepsAndWritesPlot(t *testing.T) {
	t.Parallel()

	plot := filepath.Join(t.TempDir(), "bench.html")

	out, exporter, err := execute(t, "bench", "--capacities", "16,64", "--rounds", "1", "--plot", plot)
	require.NoError(t, err)
	assert.Contains(t, out, "map")
	assert.Contains(t, out, "pool")

	info, err := os.Stat(plot)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	assert.Contains(t, spanNames(exporter), "fixedkit.bench")
}

func TestBench_MaxMemorySkipsLargeCapacities(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "--format", "json", "bench",
		"--capacities", "16,1048576", "--rounds", "1", "--max-memory", "64KiB")
	require.NoError(t, err)

	var doc struct {
		Samples []struct {
			Capacity int `json:"capacity"`
		} `json:"samples"`
		Skipped []int `json:"skipped"`
	}

	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	require.NotEmpty(t, doc.Samples)

	for _, s := range doc.Samples {
		assert.Equal(t, 16, s.Capacity)
	}

	assert.Equal(t, []int{1 << 20}, doc.Skipped)
}

func TestBench_ServesMetrics(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "bench", "--capacities", "8", "--rounds", "1", "--metrics-addr", "127.0.0.1:0")
	require.NoError(t, err)
}

func TestReplay_Passing(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "tiny.yaml", passingScript)

	out, exporter, err := execute(t, "replay", path)
	require.NoError(t, err)
	assert.Contains(t, out, "PASS 4/4 steps")
	assert.Contains(t, spanNames(exporter), "fixedkit.replay")
}

func TestReplay_FailingScriptReturnsError(t *testing.T) {
	t.Parallel()

	good := writeFile(t, "tiny.yaml", passingScript)
	bad := writeFile(t, "wrong.yaml", failingScript)

	out, _, err := execute(t, "replay", good, bad)
	require.ErrorIs(t, err, ErrScenarioFailed)
	assert.Contains(t, err.Error(), "1 of 2 scripts")
	assert.Contains(t, out, "size is 1, expected 2")
}

func TestReplay_InvalidScript(t *testing.T) {
	t.Parallel()

	path := writeFile(t, "broken.yaml", "container: queue\nsteps: []\n")

	_, _, err := execute(t, "replay", path)
	require.Error(t, err)
}

func TestReplay_RequiresArgs(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "replay")
	require.Error(t, err)
}

func TestDump_Keys(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "dump", "--keys", "2,1,3")
	require.NoError(t, err)
	assert.Contains(t, out, "tree size=3 height=2")
	assert.Contains(t, out, "root 2 [balanced]")
}

func TestDump_RandomJSON(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "--format", "json", "dump", "--count", "5", "--seed", "11")
	require.NoError(t, err)

	var doc struct {
		Size  int `json:"size"`
		Nodes []struct {
			Key string `json:"key"`
		} `json:"nodes"`
	}

	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, testDumpKeys, doc.Size)
	assert.Len(t, doc.Nodes, testDumpKeys)
}

func TestDump_OverCapacityFails(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "dump", "--keys", "1,2,3", "--capacity", "2")
	require.Error(t, err)
}

func TestDump_KeysAndCountExclusive(t *testing.T) {
	t.Parallel()

	_, _, err := execute(t, "dump", "--keys", "1", "--count", "3")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	t.Parallel()

	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "fixedkit ")
	assert.Contains(t, out, "commit:")
}
