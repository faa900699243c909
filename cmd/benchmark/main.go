// Benchmark tool for measuring Kestrel rules against labeled review data.
//
// Usage:
//
//	go run ./cmd/benchmark -file labeled-drg.json -vertical drg -url http://localhost:8080
//
// The labeled file is a JSON array of {"label": true|false, "entity": {...}}
// where label marks entities a human reviewer found a problem with.
//
// This tool:
//  1. Sends entities in batches to POST /evaluate/{vertical}
//  2. Counts an entity as flagged when any finding reaches -min-severity
//  3. Compares flags with labels into a confusion matrix
//  4. Prints precision, recall, F1-score and latency
//
// Outlier claims are scored against the population in their batch, so run
// the claims vertical with -batch 0 to send everything at once.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/kestrel/internal/domain"
)

// Labeled is one row of the labeled data file.
type Labeled struct {
	Label  bool            `json:"label"`
	Entity json.RawMessage `json:"entity"`
}

// report is the part of the evaluate response the benchmark reads.
type report struct {
	Outcomes []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Result *struct {
			Findings []struct {
				Severity domain.Severity `json:"severity"`
			} `json:"findings"`
		} `json:"result"`
	} `json:"outcomes"`
}

// Metrics tracks benchmark results
type Metrics struct {
	TruePositives  int64 // Problem entity flagged
	FalsePositives int64 // Clean entity flagged
	TrueNegatives  int64 // Clean entity passed
	FalseNegatives int64 // Problem entity passed

	TotalProcessed int64
	TotalPositive  int64
	TotalNegative  int64
	TotalErrors    int64

	ProcessingTimeMs int64
	Requests         int64
}

type batch struct {
	ids    []string
	labels map[string]bool
	body   []byte
}

func main() {
	path := flag.String("file", "", "Path to a labeled JSON file")
	vertical := flag.String("vertical", "drg", "Vertical to evaluate: claims, drg, medical-necessity or readmissions")
	baseURL := flag.String("url", "http://localhost:8080", "Kestrel base URL")
	batchSize := flag.Int("batch", 1, "Entities per request (0 = all in one request)")
	workers := flag.Int("workers", 4, "Number of concurrent workers")
	minSeverity := flag.String("min-severity", string(domain.SeverityHigh), "Lowest finding severity that counts as flagged")
	verbose := flag.Bool("verbose", false, "Print each entity result")
	flag.Parse()

	if *path == "" {
		fmt.Println("Usage: benchmark -file labeled.json [-vertical drg] [-url http://localhost:8080]")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()
		os.Exit(1)
	}
	threshold := domain.Severity(*minSeverity)
	if !threshold.Valid() {
		fmt.Printf("ERROR: unknown severity %q\n", *minSeverity)
		os.Exit(1)
	}

	fmt.Println("KESTREL BENCHMARK")
	fmt.Printf("\nFile:         %s\n", *path)
	fmt.Printf("Vertical:     %s\n", *vertical)
	fmt.Printf("Kestrel URL:  %s\n", *baseURL)
	fmt.Printf("Workers:      %d\n", *workers)
	fmt.Printf("Batch:        %d\n", *batchSize)
	fmt.Printf("Min severity: %s\n", threshold)
	fmt.Println()

	if err := checkHealth(*baseURL); err != nil {
		fmt.Printf("ERROR: Kestrel not reachable at %s: %v\n", *baseURL, err)
		fmt.Println("\nMake sure Kestrel is running:")
		fmt.Println("  kestrel serve")
		os.Exit(1)
	}

	rows, err := readLabeled(*path)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	batches, err := makeBatches(rows, *batchSize)
	if err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Loaded %d labeled entities in %d requests\n", len(rows), len(batches))

	start := time.Now()
	metrics := runBenchmark(batches, *baseURL+"/evaluate/"+*vertical, threshold, *workers, *verbose)
	printResults(metrics, time.Since(start))
}

func checkHealth(baseURL string) error {
	resp, err := http.Get(baseURL + "/health")
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func readLabeled(path string) ([]Labeled, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var rows []Labeled
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}

func makeBatches(rows []Labeled, size int) ([]batch, error) {
	if size <= 0 || size > len(rows) {
		size = len(rows)
	}
	var out []batch
	for i := 0; i < len(rows); i += size {
		end := min(i+size, len(rows))
		b := batch{labels: make(map[string]bool, end-i)}
		entities := make([]json.RawMessage, 0, end-i)
		for _, row := range rows[i:end] {
			var head struct {
				ID string `json:"id"`
			}
			if err := json.Unmarshal(row.Entity, &head); err != nil || head.ID == "" {
				return nil, fmt.Errorf("row %d: entity needs an id", len(b.ids)+i)
			}
			b.ids = append(b.ids, head.ID)
			b.labels[head.ID] = row.Label
			entities = append(entities, row.Entity)
		}
		body, err := json.Marshal(entities)
		if err != nil {
			return nil, err
		}
		b.body = body
		out = append(out, b)
	}
	return out, nil
}

func runBenchmark(batches []batch, url string, threshold domain.Severity, numWorkers int, verbose bool) *Metrics {
	metrics := &Metrics{}

	work := make(chan batch, numWorkers)
	var wg sync.WaitGroup

	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			client := &http.Client{Timeout: 30 * time.Second}

			for b := range work {
				start := time.Now()
				rep, err := evaluate(client, url, b.body)
				atomic.AddInt64(&metrics.ProcessingTimeMs, time.Since(start).Milliseconds())
				atomic.AddInt64(&metrics.Requests, 1)

				if err != nil {
					atomic.AddInt64(&metrics.TotalErrors, int64(len(b.ids)))
					if verbose {
						fmt.Printf("ERROR: batch %s.. -> %v\n", b.ids[0], err)
					}
					continue
				}

				for _, o := range rep.Outcomes {
					actual, ok := b.labels[o.ID]
					if !ok || o.Status != "reviewed" || o.Result == nil {
						atomic.AddInt64(&metrics.TotalErrors, 1)
						if verbose {
							fmt.Printf("ERROR: %s -> %s\n", o.ID, o.Status)
						}
						continue
					}
					atomic.AddInt64(&metrics.TotalProcessed, 1)

					predicted := false
					for _, f := range o.Result.Findings {
						if f.Severity.AtLeast(threshold) {
							predicted = true
							break
						}
					}
					record(metrics, predicted, actual)

					if verbose {
						mark := "ok"
						if predicted != actual {
							mark = "XX"
						}
						fmt.Printf("%s %-16s | label: %-5v | flagged: %-5v | findings: %d\n",
							mark, o.ID, actual, predicted, len(o.Result.Findings))
					}
				}
			}
		}()
	}

	for _, b := range batches {
		work <- b
	}
	close(work)

	wg.Wait()

	return metrics
}

func record(m *Metrics, predicted, actual bool) {
	if actual {
		atomic.AddInt64(&m.TotalPositive, 1)
	} else {
		atomic.AddInt64(&m.TotalNegative, 1)
	}

	switch {
	case predicted && actual:
		atomic.AddInt64(&m.TruePositives, 1)
	case predicted && !actual:
		atomic.AddInt64(&m.FalsePositives, 1)
	case !predicted && !actual:
		atomic.AddInt64(&m.TrueNegatives, 1)
	default:
		atomic.AddInt64(&m.FalseNegatives, 1)
	}
}

func evaluate(client *http.Client, url string, body []byte) (*report, error) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var rep report
	if err := json.NewDecoder(resp.Body).Decode(&rep); err != nil {
		return nil, err
	}
	return &rep, nil
}

func printResults(m *Metrics, duration time.Duration) {
	fmt.Println("\nBENCHMARK RESULTS")

	fmt.Printf("\nDATASET\n")
	fmt.Printf("   Total Processed:  %d\n", m.TotalProcessed)
	fmt.Printf("   Labeled Problem:  %d\n", m.TotalPositive)
	fmt.Printf("   Labeled Clean:    %d\n", m.TotalNegative)
	fmt.Printf("   Errors:           %d\n", m.TotalErrors)

	fmt.Printf("\nCONFUSION MATRIX\n")
	fmt.Println("                        Predicted")
	fmt.Println("                    FLAG        PASS")
	fmt.Println("              +----------+----------+")
	fmt.Printf("   Actual  P  | %8d | %8d |  (TP, FN)\n", m.TruePositives, m.FalseNegatives)
	fmt.Println("              +----------+----------+")
	fmt.Printf("           C  | %8d | %8d |  (FP, TN)\n", m.FalsePositives, m.TrueNegatives)
	fmt.Println("              +----------+----------+")

	precision := ratio(m.TruePositives, m.TruePositives+m.FalsePositives)
	recall := ratio(m.TruePositives, m.TruePositives+m.FalseNegatives)
	f1 := float64(0)
	if precision+recall > 0 {
		f1 = 2 * (precision * recall) / (precision + recall)
	}
	accuracy := ratio(m.TruePositives+m.TrueNegatives, m.TruePositives+m.TrueNegatives+m.FalsePositives+m.FalseNegatives)

	fmt.Printf("\nDETECTION METRICS\n")
	fmt.Printf("   Precision:  %.4f  (of flags, how many were labeled problems)\n", precision)
	fmt.Printf("   Recall:     %.4f  (of labeled problems, how many were flagged)\n", recall)
	fmt.Printf("   F1-Score:   %.4f\n", f1)
	fmt.Printf("   Accuracy:   %.4f\n", accuracy)

	fmt.Printf("\nPERFORMANCE\n")
	fmt.Printf("   Total Duration:   %v\n", duration.Round(time.Millisecond))
	if m.Requests > 0 {
		fmt.Printf("   Avg Latency:      %.2f ms/request\n", float64(m.ProcessingTimeMs)/float64(m.Requests))
		fmt.Printf("   Throughput:       %.2f entities/sec\n", float64(m.TotalProcessed)/duration.Seconds())
	}
	fmt.Println()
}

func ratio(n, d int64) float64 {
	if d == 0 {
		return 0
	}
	return float64(n) / float64(d)
}
