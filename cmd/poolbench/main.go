// Command poolbench drives a multi-threaded allocate/free churn
// workload against a slabpool.Pool, printing the resulting statistics
// surface. It exists to exercise the pool under real concurrency, not
// as a supported deployment artifact.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"runtime"

	"github.com/BurntSushi/toml"
	"go.uber.org/automaxprocs/maxprocs"
	"golang.org/x/sync/errgroup"

	"github.com/minio/slabpool/pkg/slabpool"
)

// Config is the workload/tuning file poolbench loads via TOML.
type Config struct {
	Workers        int      `toml:"workers"`
	Iterations     int      `toml:"iterations"`
	SizeClasses    []uint32 `toml:"size_classes"`
	BlockCeilingKB uint32   `toml:"block_ceiling_kb"`
	JaegerEndpoint string   `toml:"jaeger_endpoint"`
}

func defaultConfig() Config {
	return Config{
		Workers:        4,
		Iterations:     8192,
		SizeClasses:    []uint32{8, 16, 64, 256},
		BlockCeilingKB: 4096,
	}
}

func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("poolbench: decode config %s: %w", path, err)
	}
	return cfg, nil
}

func main() {
	if _, err := maxprocs.Set(maxprocs.Logger(log.Printf)); err != nil {
		log.Printf("poolbench: could not set GOMAXPROCS: %v", err)
	}
	log.Printf("poolbench: CPUs=%d GOMAXPROCS=%d", runtime.NumCPU(), runtime.GOMAXPROCS(0))

	var cfgPath string
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		log.Fatalf("poolbench: %v", err)
	}

	inspector := slabpool.NoopInspector
	if cfg.JaegerEndpoint != "" {
		log.Printf("poolbench: jaeger tracing requested at %s, but poolbench only wires NoopInspector by default; library callers can build their own inspect.Tracing", cfg.JaegerEndpoint)
	}

	opts := slabpool.DefaultOptions()
	opts.Inspector = inspector
	opts.BlockBytesCeiling = cfg.BlockCeilingKB << 10

	pool := slabpool.New(opts)
	defer pool.Close()

	if err := churn(pool, cfg); err != nil {
		log.Fatalf("poolbench: %v", err)
	}

	report := pool.Stats()
	for _, c := range report.Classes {
		fmt.Printf("size=%-6d held=%-8d used=%-8d bytes_held=%-10d bytes_used=%d\n",
			c.Size, c.ChunksHeld, c.ChunksUsed, c.BytesHeld, c.BytesUsed)
	}
}

// churn runs cfg.Workers goroutines, each with its own thread-local
// Pool clone, allocating and immediately freeing cfg.Iterations chunks
// across cfg.SizeClasses.
func churn(pool slabpool.Pool, cfg Config) error {
	g, _ := errgroup.WithContext(context.Background())
	for w := 0; w < cfg.Workers; w++ {
		local := pool.Clone()
		g.Go(func() error {
			defer local.Close()
			for i := 0; i < cfg.Iterations; i++ {
				size := cfg.SizeClasses[i%len(cfg.SizeClasses)]
				h, err := local.Allocate(size)
				if err != nil {
					return fmt.Errorf("allocate size=%d: %w", size, err)
				}
				buf := local.Dereference(h)
				buf[0] = byte(i)
				local.Free(h)
			}
			return nil
		})
	}
	return g.Wait()
}
