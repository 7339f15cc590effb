package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/Sumatoshi-tech/fixedkit/internal/scenario"
	"github.com/Sumatoshi-tech/fixedkit/internal/workload"
	"github.com/Sumatoshi-tech/fixedkit/pkg/alg/pool"
)

// Renderer writes results in one output format.
type Renderer struct {
	w      io.Writer
	codec  Codec // Nil for tables.
	pass   *color.Color
	fail   *color.Color
	accent *color.Color
}

// New creates a Renderer for format. noColor disables ANSI colouring.
func New(w io.Writer, format string, noColor bool) (*Renderer, error) {
	r := &Renderer{
		w:      w,
		pass:   color.New(color.FgGreen, color.Bold),
		fail:   color.New(color.FgRed, color.Bold),
		accent: color.New(color.FgCyan),
	}

	if format != FormatTable {
		codec, err := CodecFor(format)
		if err != nil {
			return nil, err
		}

		r.codec = codec
	}

	if noColor {
		r.pass.DisableColor()
		r.fail.DisableColor()
		r.accent.DisableColor()
	}

	return r, nil
}

func (r *Renderer) verdict(ok bool) string {
	if ok {
		return r.pass.Sprint("PASS")
	}

	return r.fail.Sprint("FAIL")
}

func newTable() table.Writer {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

type statsDoc struct {
	Allocations int64   `json:"allocations"     yaml:"allocations"`
	Releases    int64   `json:"releases"        yaml:"releases"`
	Failures    int64   `json:"failures"        yaml:"failures"`
	Live        int     `json:"live"            yaml:"live"`
	Capacity    int     `json:"capacity"        yaml:"capacity"`
	HighWater   int     `json:"high_water"      yaml:"high_water"`
	SlotBytes   uint64  `json:"slot_bytes"      yaml:"slot_bytes"`
	Footprint   uint64  `json:"footprint_bytes" yaml:"footprint_bytes"`
	Utilization float64 `json:"utilization"     yaml:"utilization"`
}

func newStatsDoc(s pool.Stats) statsDoc {
	return statsDoc{
		Allocations: s.Allocations,
		Releases:    s.Releases,
		Failures:    s.Failures,
		Live:        s.Live,
		Capacity:    s.Capacity,
		HighWater:   s.HighWater,
		SlotBytes:   s.SlotBytes,
		Footprint:   s.FootprintBytes(),
		Utilization: s.Utilization(),
	}
}

type mismatchDoc struct {
	Step     int    `json:"step"               yaml:"step"`
	Op       string `json:"op"                 yaml:"op"`
	Key      int    `json:"key"                yaml:"key"`
	Reason   string `json:"reason"             yaml:"reason"`
	Expected []int  `json:"expected,omitempty" yaml:"expected,omitempty"`
	Actual   []int  `json:"actual,omitempty"   yaml:"actual,omitempty"`
}

type verifyDoc struct {
	Passed     bool         `json:"passed"             yaml:"passed"`
	Steps      int          `json:"steps"              yaml:"steps"`
	Inserts    int          `json:"inserts"            yaml:"inserts"`
	Duplicates int          `json:"duplicates"         yaml:"duplicates"`
	Rejected   int          `json:"rejected"           yaml:"rejected"`
	Erases     int          `json:"erases"             yaml:"erases"`
	Misses     int          `json:"misses"             yaml:"misses"`
	MaxLen     int          `json:"max_len"            yaml:"max_len"`
	FinalLen   int          `json:"final_len"          yaml:"final_len"`
	Height     int          `json:"height"             yaml:"height"`
	DurationMS int64        `json:"duration_ms"        yaml:"duration_ms"`
	Pool       statsDoc     `json:"pool"               yaml:"pool"`
	Mismatch   *mismatchDoc `json:"mismatch,omitempty" yaml:"mismatch,omitempty"`
}

// Verify renders a verification result.
func (r *Renderer) Verify(res workload.VerifyResult) error {
	if r.codec != nil {
		doc := verifyDoc{
			Passed:     res.Passed(),
			Steps:      res.Steps,
			Inserts:    res.Inserts,
			Duplicates: res.Duplicates,
			Rejected:   res.Rejected,
			Erases:     res.Erases,
			Misses:     res.Misses,
			MaxLen:     res.MaxLen,
			FinalLen:   res.FinalLen,
			Height:     res.Height,
			DurationMS: res.Duration.Milliseconds(),
			Pool:       newStatsDoc(res.Stats),
		}

		if m := res.Mismatch; m != nil {
			doc.Mismatch = &mismatchDoc{
				Step: m.Step, Op: m.Op, Key: m.Key, Reason: m.Reason,
				Expected: m.Expected, Actual: m.Actual,
			}
		}

		return r.codec.Encode(r.w, doc)
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Metric", "Value"})
	tbl.AppendRows([]table.Row{
		{"steps", humanize.Comma(int64(res.Steps))},
		{"inserts", humanize.Comma(int64(res.Inserts))},
		{"duplicates", humanize.Comma(int64(res.Duplicates))},
		{"rejected (full)", humanize.Comma(int64(res.Rejected))},
		{"erases", humanize.Comma(int64(res.Erases))},
		{"erase misses", humanize.Comma(int64(res.Misses))},
		{"max size", res.MaxLen},
		{"final size", res.FinalLen},
		{"height", res.Height},
		{"duration", res.Duration.Round(time.Millisecond)},
	})
	tbl.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	_, err := fmt.Fprintf(r.w, "%s\n\n", tbl.Render())
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	err = r.Stats("node pool", res.Stats)
	if err != nil {
		return err
	}

	if m := res.Mismatch; m != nil {
		_, err = fmt.Fprintf(r.w, "\n%s step %d %s %d: %s\n%s",
			r.verdict(false), m.Step, m.Op, m.Key, m.Reason, KeyDiff(m.Expected, m.Actual))
	} else {
		_, err = fmt.Fprintf(r.w, "\n%s %s steps cross-checked\n", r.verdict(true), humanize.Comma(int64(res.Steps)))
	}

	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

// Stats renders node pool statistics as a table.
func (r *Renderer) Stats(title string, s pool.Stats) error {
	if r.codec != nil {
		return r.codec.Encode(r.w, newStatsDoc(s))
	}

	tbl := newTable()
	tbl.SetTitle(r.accent.Sprint(title))
	tbl.AppendHeader(table.Row{"Live", "Capacity", "High water", "Allocs", "Releases", "Failures", "Slot", "Footprint", "Used"})
	tbl.AppendRow(table.Row{
		s.Live,
		s.Capacity,
		s.HighWater,
		humanize.Comma(s.Allocations),
		humanize.Comma(s.Releases),
		humanize.Comma(s.Failures),
		humanize.IBytes(s.SlotBytes),
		humanize.IBytes(s.FootprintBytes()),
		fmt.Sprintf("%.1f%%", s.Utilization()*percent),
	})

	_, err := fmt.Fprintln(r.w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}

const percent = 100

type sampleDoc struct {
	Container string  `json:"container"       yaml:"container"`
	Op        string  `json:"op"              yaml:"op"`
	Capacity  int     `json:"capacity"        yaml:"capacity"`
	Ops       int     `json:"ops"             yaml:"ops"`
	NsPerOp   float64 `json:"ns_per_op"       yaml:"ns_per_op"`
	OpsPerSec float64 `json:"ops_per_sec"     yaml:"ops_per_sec"`
	Footprint uint64  `json:"footprint_bytes" yaml:"footprint_bytes"`
}

type benchDoc struct {
	Samples    []sampleDoc `json:"samples"           yaml:"samples"`
	Skipped    []int       `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	DurationMS int64       `json:"duration_ms"       yaml:"duration_ms"`
}

// Bench renders a benchmark sweep.
func (r *Renderer) Bench(res workload.BenchResult) error {
	if r.codec != nil {
		doc := benchDoc{DurationMS: res.Duration.Milliseconds()}

		for _, s := range res.Samples {
			doc.Samples = append(doc.Samples, sampleDoc{
				Container: s.Container,
				Op:        s.Op,
				Capacity:  s.Capacity,
				Ops:       s.Ops,
				NsPerOp:   float64(s.Total.Nanoseconds()) / float64(max(s.Ops, 1)),
				OpsPerSec: s.OpsPerSec(),
				Footprint: s.Footprint,
			})
		}

		for _, fp := range res.Skipped {
			doc.Skipped = append(doc.Skipped, fp.Capacity)
		}

		return r.codec.Encode(r.w, doc)
	}

	tbl := newTable()
	tbl.AppendHeader(table.Row{"Container", "Op", "Capacity", "Ops", "Per op", "Throughput", "Footprint"})

	for _, s := range res.Samples {
		tbl.AppendRow(table.Row{
			s.Container,
			s.Op,
			humanize.Comma(int64(s.Capacity)),
			humanize.Comma(int64(s.Ops)),
			s.PerOp(),
			humanize.SIWithDigits(s.OpsPerSec(), 2, "op/s"),
			humanize.IBytes(s.Footprint),
		})
	}

	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	tbl.AppendFooter(table.Row{fmt.Sprintf("%d samples in %s", len(res.Samples), res.Duration.Round(time.Millisecond))})

	_, err := fmt.Fprintln(r.w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	for _, fp := range res.Skipped {
		_, err = fmt.Fprintf(r.w, "%s capacity %s skipped: needs %s\n",
			r.fail.Sprint("SKIP"), humanize.Comma(int64(fp.Capacity)), humanize.IBytes(fp.Total))
		if err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	return nil
}

// Replay renders a replayed scenario.
func (r *Renderer) Replay(res scenario.Result) error {
	if r.codec != nil {
		return r.codec.Encode(r.w, struct {
			scenario.Result `yaml:",inline"`

			Passed bool `json:"passed" yaml:"passed"`
		}{res, res.Passed()})
	}

	tbl := newTable()
	tbl.SetTitle(r.accent.Sprintf("%s (%s)", res.Name, res.Container))
	tbl.AppendHeader(table.Row{"#", "Op", "Result", "Detail"})

	for _, s := range res.Steps {
		tbl.AppendRow(table.Row{s.Index, s.Op, r.verdict(s.Passed), s.Message})
	}

	_, err := fmt.Fprintln(r.w, tbl.Render())
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	for _, s := range res.Failed() {
		if diff := KeyDiff(s.Expected, s.Actual); diff != "" {
			_, err = fmt.Fprintf(r.w, "step %d keys:\n%s", s.Index, diff)
			if err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}
	}

	_, err = fmt.Fprintf(r.w, "%s %d/%d steps, final keys %v\n",
		r.verdict(res.Passed()), len(res.Steps)-len(res.Failed()), len(res.Steps), res.Keys)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}
