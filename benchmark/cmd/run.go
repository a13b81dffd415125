// Command run executes the comparison benchmarks and renders the
// averaged results as per-category tables, fastest first.
//
// Usage:
//
//	go run ./cmd [dir] [--json]
package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type BenchmarkResult struct {
	Name       string  `json:"name"`
	Framework  string  `json:"framework"`
	Category   string  `json:"category"`
	Iterations int64   `json:"iterations"`
	NsPerOp    float64 `json:"ns_per_op"`
	BytesPerOp int64   `json:"bytes_per_op"`
	AllocsOp   int64   `json:"allocs_per_op"`
}

var frameworkColors = map[string]text.Colors{
	"Loom":      {text.FgGreen},
	"LoomAsync": {text.FgCyan},
	"Do":        {text.FgYellow},
	"Dig":       {text.FgMagenta},
	"Fx":        {text.FgBlue},
}

var categoryOrder = []string{
	"Build_Simple",
	"Build_Chain",
	"Resolve_Singleton",
	"Resolve_Chain",
	"Wide_10",
	"Scoped_10",
	"Scoped_50",
	"ScopedWork_10",
}

var categoryTitles = map[string]string{
	"Build_Simple":      "Graph Construction (single provider)",
	"Build_Chain":       "Graph Construction (dependency chain)",
	"Resolve_Singleton": "Resolution (single provider)",
	"Resolve_Chain":     "Resolution (dependency chain)",
	"Wide_10":           "Wide Graphs (10 providers)",
	"Scoped_10":         "Scoped Resources (chain of 10)",
	"Scoped_50":         "Scoped Resources (chain of 50)",
	"ScopedWork_10":     "Scoped Resources with Work (10 parallel, 1ms each)",
}

func main() {
	benchDir := ".."
	if len(os.Args) > 1 && os.Args[1] != "--json" {
		benchDir = os.Args[1]
	}

	fmt.Println("Running benchmarks...")
	fmt.Println()

	cmd := exec.Command("go", "test", "-bench=.", "-benchmem", "-count=3", "-benchtime=100ms")
	cmd.Dir = benchDir
	output, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintf(os.Stderr, "benchmark failed: %s\n", string(exitErr.Stderr))
		} else {
			fmt.Fprintf(os.Stderr, "benchmark failed: %v\n", err)
		}
		os.Exit(1)
	}

	results := parseResults(output)
	grouped := groupByCategory(results)

	for _, cat := range orderedCategories(grouped) {
		printCategory(cat, grouped[cat])
	}

	printSummary(grouped)

	for _, arg := range os.Args[1:] {
		if arg == "--json" {
			exportJSON(results)
		}
	}
}

var benchPattern = regexp.MustCompile(`^Benchmark(\w+)-\d+\s+(\d+)\s+([\d.]+) ns/op\s+(\d+) B/op\s+(\d+) allocs/op`)

// parseResults reads `go test -bench` output and averages repeated runs
// of the same benchmark.
func parseResults(output []byte) []BenchmarkResult {
	runs := make(map[string][]BenchmarkResult)
	var names []string

	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		matches := benchPattern.FindStringSubmatch(scanner.Text())
		if matches == nil {
			continue
		}

		name := matches[1]
		iterations, _ := strconv.ParseInt(matches[2], 10, 64)
		nsPerOp, _ := strconv.ParseFloat(matches[3], 64)
		bytesPerOp, _ := strconv.ParseInt(matches[4], 10, 64)
		allocsOp, _ := strconv.ParseInt(matches[5], 10, 64)

		// The framework is the suffix after the last underscore; the
		// rest of the name is the category.
		cut := strings.LastIndex(name, "_")
		if cut < 0 {
			continue
		}

		if _, ok := runs[name]; !ok {
			names = append(names, name)
		}
		runs[name] = append(runs[name], BenchmarkResult{
			Name:       name,
			Framework:  name[cut+1:],
			Category:   name[:cut],
			Iterations: iterations,
			NsPerOp:    nsPerOp,
			BytesPerOp: bytesPerOp,
			AllocsOp:   allocsOp,
		})
	}

	results := make([]BenchmarkResult, 0, len(names))
	for _, name := range names {
		group := runs[name]

		var totalNs float64
		var totalBytes, totalAllocs int64
		for _, r := range group {
			totalNs += r.NsPerOp
			totalBytes += r.BytesPerOp
			totalAllocs += r.AllocsOp
		}
		count := float64(len(group))

		avg := group[0]
		avg.NsPerOp = totalNs / count
		avg.BytesPerOp = int64(float64(totalBytes) / count)
		avg.AllocsOp = int64(float64(totalAllocs) / count)
		results = append(results, avg)
	}

	return results
}

func groupByCategory(results []BenchmarkResult) map[string][]BenchmarkResult {
	groups := make(map[string][]BenchmarkResult)
	for _, r := range results {
		groups[r.Category] = append(groups[r.Category], r)
	}
	for _, group := range groups {
		sort.Slice(group, func(i, j int) bool {
			return group[i].NsPerOp < group[j].NsPerOp
		})
	}
	return groups
}

func orderedCategories(groups map[string][]BenchmarkResult) []string {
	var ordered []string
	for _, cat := range categoryOrder {
		if _, ok := groups[cat]; ok {
			ordered = append(ordered, cat)
		}
	}

	var extra []string
	for cat := range groups {
		found := false
		for _, o := range categoryOrder {
			if o == cat {
				found = true
				break
			}
		}
		if !found {
			extra = append(extra, cat)
		}
	}
	sort.Strings(extra)

	return append(ordered, extra...)
}

func printCategory(cat string, results []BenchmarkResult) {
	if len(results) == 0 {
		return
	}

	title := categoryTitles[cat]
	if title == "" {
		title = strings.ReplaceAll(cat, "_", " ")
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle(title)
	tw.AppendHeader(table.Row{"Framework", "ns/op", "B/op", "allocs/op", ""})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
	})

	fastest := results[0].NsPerOp
	for i, r := range results {
		note := "fastest"
		if i > 0 && fastest > 0 {
			note = fmt.Sprintf("%.1fx slower", r.NsPerOp/fastest)
		}
		tw.AppendRow(table.Row{
			frameworkColors[r.Framework].Sprint(r.Framework),
			formatNs(r.NsPerOp),
			formatBytes(r.BytesPerOp),
			r.AllocsOp,
			note,
		})
	}

	tw.Render()
	fmt.Println()
}

func printSummary(groups map[string][]BenchmarkResult) {
	wins := make(map[string]int)
	total := 0
	for _, results := range groups {
		if len(results) > 0 {
			wins[results[0].Framework]++
			total++
		}
	}

	type frameworkWins struct {
		name string
		wins int
	}
	var sorted []frameworkWins
	for name, count := range wins {
		sorted = append(sorted, frameworkWins{name, count})
	}
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].wins != sorted[j].wins {
			return sorted[i].wins > sorted[j].wins
		}
		return sorted[i].name < sorted[j].name
	})

	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.SetStyle(table.StyleRounded)
	tw.SetTitle("Summary")
	tw.AppendHeader(table.Row{"Framework", "Fastest In"})
	for _, fw := range sorted {
		tw.AppendRow(table.Row{
			frameworkColors[fw.name].Sprint(fw.name),
			fmt.Sprintf("%d/%d", fw.wins, total),
		})
	}
	tw.Render()

	fmt.Println()
	fmt.Println("Frameworks compared:")
	fmt.Println("  Loom       - this library, per-resolution graphs (github.com/loomdi/loom)")
	fmt.Println("  LoomAsync  - same, with level-parallel resolution")
	fmt.Println("  samber/do  - generics-based DI (github.com/samber/do)")
	fmt.Println("  uber/dig   - reflection-based DI (go.uber.org/dig)")
	fmt.Println("  uber/fx    - full application framework (go.uber.org/fx)")
	fmt.Println()
}

func formatNs(ns float64) string {
	if ns >= 1_000_000 {
		return fmt.Sprintf("%.2f ms", ns/1_000_000)
	}
	if ns >= 1_000 {
		return fmt.Sprintf("%.2f µs", ns/1_000)
	}
	return fmt.Sprintf("%.0f ns", ns)
}

func formatBytes(n int64) string {
	return fmt.Sprintf("%d B", n)
}

func exportJSON(results []BenchmarkResult) {
	output := struct {
		Benchmarks []BenchmarkResult `json:"benchmarks"`
	}{
		Benchmarks: results,
	}

	data, _ := json.MarshalIndent(output, "", "  ")
	_ = os.WriteFile("benchmark_results.json", data, 0644)
	fmt.Println("Results exported to benchmark_results.json")
}
