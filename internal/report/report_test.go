package report_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/fixedkit/internal/report"
	"github.com/Sumatoshi-tech/fixedkit/internal/scenario"
	"github.com/Sumatoshi-tech/fixedkit/internal/workload"
	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/ordered"
	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/pool"
	"github.com/Sumatoshi-tech/fixedkit/pkg/budget"
)

func newRenderer(t *testing.T, format string) (*report.Renderer, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer

	r, err := report.New(&buf, format, true)
	require.NoError(t, err)

	return r, &buf
}

func sampleBench() workload.BenchResult {
	return workload.BenchResult{
		Samples: []workload.Sample{
			{Container: "map", Op: "insert", Capacity: 64, Ops: 128, Total: 12800 * time.Nanosecond, Footprint: 3072},
			{Container: "map", Op: "insert", Capacity: 256, Ops: 512, Total: 76800 * time.Nanosecond, Footprint: 12288},
			{Container: "pool", Op: "allocate", Capacity: 64, Ops: 128, Total: 1280 * time.Nanosecond, Footprint: 4096},
		},
		Skipped:  []budget.Footprint{{Capacity: 1 << 20, Total: 48 << 20}},
		Duration: time.Second,
	}
}

func TestNew_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := report.New(&bytes.Buffer{}, "csv", true)
	require.ErrorIs(t, err, report.ErrUnknownFormat)
}

func TestKeyDiff(t *testing.T) {
	t.Parallel()

	assert.Empty(t, report.KeyDiff([]int{1, 2, 3}, []int{1, 2, 3}))

	diff := report.KeyDiff([]int{1, 2, 3}, []int{1, 3, 4})
	assert.Contains(t, diff, "  1\n")
	assert.Contains(t, diff, "- 2\n")
	assert.Contains(t, diff, "  3\n")
	assert.Contains(t, diff, "+ 4\n")
}

func TestVerify_TablePass(t *testing.T) {
	t.Parallel()

	r, buf := newRenderer(t, report.FormatTable)

	require.NoError(t, r.Verify(workload.VerifyResult{
		Steps: 1500, Inserts: 900, Erases: 600, FinalLen: 300, Height: 10,
		Stats: pool.Stats{Live: 300, Capacity: 512, SlotBytes: 48},
	}))

	out := buf.String()
	assert.Contains(t, out, "1,500")
	assert.Contains(t, out, "PASS")
	assert.Contains(t, strings.ToLower(out), "node pool")
	assert.NotContains(t, out, "\x1b[", "no-color output must be plain")
}

func TestVerify_TableMismatchShowsDiff(t *testing.T) {
	t.Parallel()

	r, buf := newRenderer(t, report.FormatTable)

	require.NoError(t, r.Verify(workload.VerifyResult{
		Steps: 3,
		Mismatch: &workload.Mismatch{
			Step: 2, Op: "erase", Key: 7, Reason: "in-order keys differ from model",
			Expected: []int{1, 5}, Actual: []int{1, 5, 7},
		},
	}))

	out := buf.String()
	assert.Contains(t, out, "FAIL step 2 erase 7")
	assert.Contains(t, out, "+ 7")
}

func TestVerify_JSON(t *testing.T) {
	t.Parallel()

	r, buf := newRenderer(t, report.FormatJSON)

	require.NoError(t, r.Verify(workload.VerifyResult{
		Steps: 10,
		Stats: pool.Stats{Live: 2, Capacity: 4, SlotBytes: 8},
	}))

	var doc map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, true, doc["passed"])
	assert.InDelta(t, 10, doc["steps"], 0)

	poolDoc, ok := doc["pool"].(map[string]any)
	require.True(t, ok)
	assert.InDelta(t, 32, poolDoc["footprint_bytes"], 0)
	assert.InDelta(t, 0.5, poolDoc["utilization"], 0.001)
}

func TestBench_Table(t *testing.T) {
	t.Parallel()

	r, buf := newRenderer(t, report.FormatTable)
	require.NoError(t, r.Bench(sampleBench()))

	out := buf.String()
	assert.Contains(t, out, "map")
	assert.Contains(t, out, "100ns", "per-op of the first sample")
	assert.Contains(t, out, "SKIP capacity 1,048,576")
	assert.Contains(t, strings.ToLower(out), "3 samples")
}

func TestBench_YAML(t *testing.T) {
	t.Parallel()

	r, buf := newRenderer(t, report.FormatYAML)
	require.NoError(t, r.Bench(sampleBench()))

	var doc struct {
		Samples []struct {
			Container string  `yaml:"container"`
			NsPerOp   float64 `yaml:"ns_per_op"`
		} `yaml:"samples"`
		Skipped []int `yaml:"skipped"`
	}

	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Samples, 3)
	assert.InDelta(t, 100, doc.Samples[0].NsPerOp, 0.001)
	assert.Equal(t, []int{1 << 20}, doc.Skipped)
}

func TestReplay_Table(t *testing.T) {
	t.Parallel()

	r, buf := newRenderer(t, report.FormatTable)

	require.NoError(t, r.Replay(scenario.Result{
		Name:      "demo",
		Container: "set",
		Steps: []scenario.StepResult{
			{Index: 0, Op: "insert", Passed: true},
			{Index: 1, Op: "expect-keys", Message: "keys differ", Expected: []int{1, 2}, Actual: []int{1}},
		},
		Keys: []int{1},
	}))

	out := buf.String()
	assert.Contains(t, strings.ToLower(out), "demo (set)")
	assert.Contains(t, out, "- 2")
	assert.Contains(t, out, "FAIL 1/2 steps")
}

func TestReplay_JSONIncludesVerdict(t *testing.T) {
	t.Parallel()

	r, buf := newRenderer(t, report.FormatJSON)

	require.NoError(t, r.Replay(scenario.Result{
		Name:  "ok",
		Steps: []scenario.StepResult{{Op: "insert", Passed: true}},
	}))

	var doc map[string]any

	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, true, doc["passed"])
	assert.Equal(t, "ok", doc["name"])
}

func TestTree_Outline(t *testing.T) {
	t.Parallel()

	s := ordered.NewSet[int](8)
	for _, k := range []int{2, 1, 3} {
		_, _, err := s.Insert(k)
		require.NoError(t, err)
	}

	r, buf := newRenderer(t, report.FormatTable)
	label := func(k *int) string { return strconv.Itoa(*k) }

	require.NoError(t, report.Tree(r, s.Tree().Nodes(), s.Len(), s.Tree().Height(), label))

	out := buf.String()
	assert.Contains(t, out, "tree size=3 height=2")
	assert.Contains(t, out, "root 2 [balanced]")
	assert.Contains(t, out, "  L 1 [balanced]")
	assert.Contains(t, out, "  R 3 [balanced]")
}

func TestTree_JSON(t *testing.T) {
	t.Parallel()

	s := ordered.NewSet[int](4)
	for _, k := range []int{1, 2} {
		_, _, err := s.Insert(k)
		require.NoError(t, err)
	}

	r, buf := newRenderer(t, report.FormatJSON)
	label := func(k *int) string { return strconv.Itoa(*k) }

	require.NoError(t, report.Tree(r, s.Tree().Nodes(), s.Len(), s.Tree().Height(), label))

	var doc struct {
		Nodes []struct {
			Key  string `json:"key"`
			Lean string `json:"lean"`
			Side string `json:"side"`
		} `json:"nodes"`
	}

	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Nodes, 2)
	assert.Equal(t, "1", doc.Nodes[0].Key)
	assert.Equal(t, "right", doc.Nodes[0].Lean)
	assert.Equal(t, "R", doc.Nodes[1].Side)
}

func TestWritePlot(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bench.html")
	require.NoError(t, report.WritePlot(path, sampleBench()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	html := string(data)
	assert.Contains(t, html, "fixedkit bench")
	assert.Contains(t, html, "map insert")
	assert.Contains(t, html, "pool allocate")
}
