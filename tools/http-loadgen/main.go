// http-loadgen is a tiny, dependency-free HTTP load generator tailored for
// exercising the event ingest gateway's POST /events endpoint. It reuses
// HTTP connections (keep-alive) and supports concurrency so demo scripts run
// fast on Windows (Git Bash), Ubuntu (WSL), and macOS without relying on
// external tools.
//
// Modes:
//   - single: send N requests carrying the same event_id (duplicate-window stress)
//   - zipf:   approximate 80/20 skew (hot/cold) without PRNG: send a hot event_id 4/5 of the time
//
// Usage examples:
//
//	http-loadgen -base=http://127.0.0.1:3000 -mode=single -event_id=evt-1 -n=5000 -c=16
//	http-loadgen -base=http://127.0.0.1:3000 -mode=zipf -hot_event=hot-1 -cold_events=50 -n=8000 -c=16
package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type modeType string

const (
	modeSingle modeType = "single"
	modeZipf   modeType = "zipf"
)

func main() {
	var (
		base       = flag.String("base", "http://127.0.0.1:3000", "Base URL including scheme and host, e.g. http://127.0.0.1:3000")
		path       = flag.String("path", "/events", "Request path (e.g., /events or /ingest)")
		modeS      = flag.String("mode", string(modeSingle), "Mode: single|zipf")
		eventID    = flag.String("event_id", "loadgen-1", "event_id for single mode")
		hotEvent   = flag.String("hot_event", "hot-1", "Hot event_id for zipf mode")
		coldN      = flag.Int("cold_events", 50, "Number of cold event_ids to round-robin in zipf mode")
		N          = flag.Int("n", 5000, "Total requests to send")
		conc       = flag.Int("c", 8, "Number of concurrent workers")
		hotEvery   = flag.Int("hot_every", 5, "Zipf-like skew period (all but 1 of every this-many requests go to hot; minimum 2)")
		timeout    = flag.Duration("timeout", 20*time.Second, "Overall timeout for the loadgen run")
		connIdle   = flag.Duration("idle_timeout", 30*time.Second, "HTTP idle connection timeout")
		maxIdle    = flag.Int("max_idle", 256, "Max idle connections total")
		maxIdlePer = flag.Int("max_idle_per_host", 256, "Max idle connections per host")
	)
	flag.Parse()

	m := modeType(strings.ToLower(*modeS))
	if m != modeSingle && m != modeZipf {
		fmt.Fprintf(os.Stderr, "unknown -mode=%s (want single|zipf)\n", *modeS)
		os.Exit(2)
	}
	if *N <= 0 || *conc <= 0 {
		fmt.Fprintln(os.Stderr, "-n and -c must be > 0")
		os.Exit(2)
	}
	if m == modeZipf {
		if *coldN <= 0 {
			fmt.Fprintln(os.Stderr, "-cold_events must be > 0 in zipf mode")
			os.Exit(2)
		}
		if *hotEvery < 2 {
			*hotEvery = 2
		}
	}

	baseURL := strings.TrimRight(*base, "/")
	p := *path
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	fullURL := baseURL + p

	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        *maxIdle,
		MaxIdleConnsPerHost: *maxIdlePer,
		IdleConnTimeout:     *connIdle,
	}
	client := &http.Client{Transport: tr, Timeout: 5 * time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	start := time.Now()
	var done int64
	var failed int64

	worker := func(id, count int) {
		defer atomic.AddInt64(&done, int64(count))
		for i := 0; i < count; i++ {
			select {
			case <-ctx.Done():
				return
			default:
			}
			var evID string
			if m == modeSingle {
				evID = *eventID
			} else {
				// 80/20-ish deterministic skew: (i+id)%hotEvery != 0 => hot event
				if ((i + id) % *hotEvery) != 0 {
					evID = *hotEvent
				} else {
					idx := ((i + id) % *coldN) + 1
					evID = fmt.Sprintf("cold-%d", idx)
				}
			}
			body := fmt.Sprintf(
				`{"events":[{"event_id":%q,"event_type":"loadgen.ping","payload":{"i":%d}}]}`,
				evID, i,
			)
			req, _ := http.NewRequestWithContext(ctx, http.MethodPost, fullURL, bytes.NewReader([]byte(body)))
			req.Header.Set("Content-Type", "application/json")
			resp, err := client.Do(req)
			if err == nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				if resp.StatusCode >= 400 {
					atomic.AddInt64(&failed, 1)
				}
			} else {
				atomic.AddInt64(&failed, 1)
				time.Sleep(200 * time.Microsecond)
			}
		}
	}

	per := *N / *conc
	rem := *N - per**conc
	var wg sync.WaitGroup
	wg.Add(*conc)
	for w := 0; w < *conc; w++ {
		count := per
		if w == *conc-1 {
			count += rem
		}
		go func(workerID, n int) {
			defer wg.Done()
			worker(workerID, n)
		}(w, count)
	}
	wg.Wait()

	elapsed := time.Since(start)
	if elapsed <= 0 {
		elapsed = time.Millisecond
	}
	ops := float64(*N) / elapsed.Seconds()
	fmt.Printf(
		"LoadGen: mode=%s path=%s N=%d c=%d go=%d failed=%d Duration=%s Throughput=%.0f req/s\n",
		m, p, *N, *conc, runtime.GOMAXPROCS(0), atomic.LoadInt64(&failed), elapsed.Truncate(time.Millisecond), ops,
	)
}
