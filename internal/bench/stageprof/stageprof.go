package stageprof

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"runtime/pprof"
	"time"

	"github.com/example/go-pico-tts/internal/audio"
	"github.com/example/go-pico-tts/internal/engine"
	"github.com/example/go-pico-tts/internal/pipeline"
)

// stringSliceFlag collects a repeatable -resource flag into a slice.
type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return fmt.Sprint([]string(*s)) }
func (s *stringSliceFlag) Set(v string) error {
	*s = append(*s, v)
	return nil
}

type timings struct {
	feed     time.Duration
	generate time.Duration
	encode   time.Duration
	total    time.Duration
	samples  int
	frames   int
}

func Main() {
	var (
		input       string
		resourceArg stringSliceFlag
		voiceName   string
		runs        int
		warmup      int
		cpuprofile  string
		arenaBytes  int
		ringBytes   int
		debugLogs   bool
	)

	flag.StringVar(&input, "text", "Hello from pico-tts.", "input text")
	flag.Var(&resourceArg, "resource", "resource file to load (repeatable)")
	flag.StringVar(&voiceName, "voice", "default", "voice name to assemble and synthesize with")
	flag.IntVar(&runs, "runs", 5, "number of profiled runs")
	flag.IntVar(&warmup, "warmup", 1, "number of warmup runs")
	flag.StringVar(&cpuprofile, "cpuprofile", "", "write cpu profile")
	flag.IntVar(&arenaBytes, "arena-bytes", 1<<20, "engine sub-arena size in bytes")
	flag.IntVar(&ringBytes, "ring-bytes", 4096, "size in bytes of each pipeline ring buffer")
	flag.BoolVar(&debugLogs, "debug-logs", false, "enable debug logs from the pipeline stages")
	flag.Parse()

	if debugLogs {
		slog.SetDefault(
			slog.New(
				slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}),
			),
		)
	}

	if runs < 1 {
		fatalf("--runs must be >= 1")
	}
	if len(resourceArg) == 0 {
		fatalf("--resource must be given at least once")
	}

	region := make([]byte, arenaBytes*2)

	sys, err := engine.NewSystem(region)
	if err != nil {
		fatalf("new system: %v", err)
	}

	if err := sys.CreateVoiceDefinition(voiceName); err != nil {
		fatalf("create voice definition: %v", err)
	}

	for i, path := range resourceArg {
		data, err := os.ReadFile(path)
		if err != nil {
			fatalf("read resource %q: %v", path, err)
		}

		name := fmt.Sprintf("res%d", i)

		if _, err := sys.LoadResource(name, data); err != nil {
			fatalf("load resource %q: %v", path, err)
		}
		if err := sys.AddResourceToVoiceDefinition(voiceName, name); err != nil {
			fatalf("assemble voice %q: %v", voiceName, err)
		}
	}

	ctx := context.Background()

	for i := 0; i < warmup; i++ {
		if _, err := runOnce(ctx, sys, voiceName, arenaBytes, ringBytes, input); err != nil {
			fatalf("warmup run %d failed: %v", i+1, err)
		}
	}

	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			fatalf("create cpuprofile: %v", err)
		}
		defer f.Close()

		if err := pprof.StartCPUProfile(f); err != nil {
			fatalf("start cpuprofile: %v", err)
		}

		defer pprof.StopCPUProfile()
	}

	var agg timings

	for i := 0; i < runs; i++ {
		t, err := runOnce(ctx, sys, voiceName, arenaBytes, ringBytes, input)
		if err != nil {
			fatalf("profiled run %d failed: %v", i+1, err)
		}

		agg.feed += t.feed
		agg.generate += t.generate
		agg.encode += t.encode
		agg.total += t.total
		agg.samples = t.samples
		agg.frames = t.frames
	}

	div := float64(runs)
	avgFeed := agg.feed.Seconds() * 1000 / div
	avgGenerate := agg.generate.Seconds() * 1000 / div
	avgEncode := agg.encode.Seconds() * 1000 / div
	avgTotal := agg.total.Seconds() * 1000 / div

	audioMS := float64(agg.samples) * 1000.0 / float64(audio.ExpectedSampleRate)
	rtf := avgTotal / audioMS

	fmt.Printf("text: %q\n", input)
	fmt.Printf("voice: %s\n", voiceName)
	fmt.Printf("runs: %d (warmup %d)\n", runs, warmup)
	fmt.Printf("frames: %d\n", agg.frames)
	fmt.Printf("audio_ms: %.2f\n", audioMS)
	fmt.Printf("avg_feed_ms: %.2f\n", avgFeed)
	fmt.Printf("avg_generate_ms: %.2f\n", avgGenerate)
	fmt.Printf("avg_encode_ms: %.2f\n", avgEncode)
	fmt.Printf("avg_total_ms: %.2f\n", avgTotal)
	fmt.Printf("rtf: %.3f\n", rtf)

	if avgTotal > 0 {
		fmt.Printf("share_feed_pct: %.2f\n", 100*avgFeed/avgTotal)
		fmt.Printf("share_generate_pct: %.2f\n", 100*avgGenerate/avgTotal)
		fmt.Printf("share_encode_pct: %.2f\n", 100*avgEncode/avgTotal)
	}
}

// runOnce assembles one fresh engine, feeds text through it, and drains
// get_data to completion, labeling each phase for the CPU profiler the
// way stage-level profiling naturally wants: feed, generate (the
// pipeline grinding through get_data calls), and WAV encode.
func runOnce(ctx context.Context, sys *engine.System, voiceName string, arenaBytes, ringBytes int, input string) (timings, error) {
	var out timings
	startTotal := time.Now()

	eng, err := sys.NewEngine(voiceName, arenaBytes, ringBytes)
	if err != nil {
		return out, fmt.Errorf("new engine: %w", err)
	}
	defer eng.Dispose()

	pprof.Do(ctx, pprof.Labels("stage", "feed"), func(context.Context) {
		start := time.Now()
		eng.FeedText(append([]byte(input), 0))
		out.feed = time.Since(start)
	})

	var pcm []byte

	pprof.Do(ctx, pprof.Labels("stage", "generate"), func(context.Context) {
		start := time.Now()

		buf := make([]byte, 4096)
		for {
			n, _, status := eng.GetData(buf)
			if n > 0 {
				pcm = append(pcm, buf[:n]...)
				out.frames++
			}
			if status == pipeline.Idle && n == 0 {
				break
			}
			if status == pipeline.Error {
				break
			}
		}

		out.generate = time.Since(start)
	})

	if eng.HasException() {
		return out, fmt.Errorf("engine reported exception code %d", eng.ExceptionCode())
	}

	pprof.Do(ctx, pprof.Labels("stage", "encode"), func(context.Context) {
		start := time.Now()
		_, encErr := audio.EncodeWAVPCM16(pcm, audio.ExpectedSampleRate)
		if encErr != nil {
			err = fmt.Errorf("encode wav: %w", encErr)
		}
		out.encode = time.Since(start)
	})

	if err != nil {
		return out, err
	}

	out.total = time.Since(startTotal)
	out.samples = len(pcm) / 2

	return out, nil
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
