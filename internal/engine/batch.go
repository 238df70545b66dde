package engine

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/vouchtool/vouch/internal/control"
	"github.com/vouchtool/vouch/internal/digest"
	"github.com/vouchtool/vouch/internal/event"
	"github.com/vouchtool/vouch/internal/stats"
)

// BatchConfig describes a multi-file run: many independent copy-verify
// operations executed concurrently, each with its own buffer and digest
// state, sharing one Control and one aggregate stats collector.
type BatchConfig struct {
	Sources     []string
	Destination string
	Workers     int
	BufferSize  int
	ComputeHash bool
	Algorithm   digest.Algorithm
	BytesPerSec int64 // aggregate cap shared by all workers

	// Flatten drops source directory structure; by default files land
	// under the destination at their source-relative paths.
	Flatten bool

	Excludes []string
	Includes []string

	Events chan<- event.Event
	Stats  *stats.Collector
}

// FileJob is one discovered file scheduled for copy-verify.
type FileJob struct {
	ID              uuid.UUID
	SourcePath      string
	DestinationPath string
	Size            int64
}

// JobResult pairs a job with its outcome or error.
type JobResult struct {
	Job     FileJob
	Outcome *Outcome
	Err     error
}

// BatchResult is the aggregate outcome of a batch run.
type BatchResult struct {
	Jobs      []JobResult
	Cancelled bool
}

// Err returns the first job error, annotated with how many more
// followed. Cancellation is not counted as an error.
func (r BatchResult) Err() error {
	var first error
	var count int
	for _, j := range r.Jobs {
		if j.Err == nil || errors.Is(j.Err, ErrCancelled) {
			continue
		}
		count++
		if first == nil {
			first = j.Err
		}
	}
	if count > 1 {
		return fmt.Errorf("%w (and %d more errors)", first, count-1)
	}
	return first
}

// RunBatch discovers files under cfg.Sources and fans them out to
// worker goroutines. It blocks until all jobs are processed or the run
// is cancelled.
func RunBatch(ctx context.Context, cfg BatchConfig, ctl *control.Control) (BatchResult, error) {
	jobs, totalBytes, err := DiscoverJobs(cfg)
	if err != nil {
		return BatchResult{}, err
	}

	if cfg.Stats != nil {
		cfg.Stats.SetTotals(int64(len(jobs)), totalBytes)
	}
	event.Emit(cfg.Events, event.Event{
		Type:  event.BatchStarted,
		Files: int64(len(jobs)),
		Total: totalBytes,
	})

	var limiter *rate.Limiter
	if cfg.BytesPerSec > 0 {
		limiter = NewBWLimiter(cfg.BytesPerSec)
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}

	taskCh := make(chan FileJob, workers*2)
	var mu sync.Mutex
	var result BatchResult
	var wg sync.WaitGroup

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range taskCh {
				res := runJob(ctx, job, cfg, ctl, limiter)

				mu.Lock()
				result.Jobs = append(result.Jobs, res)
				if errors.Is(res.Err, ErrCancelled) {
					result.Cancelled = true
				}
				mu.Unlock()
			}
		}()
	}

feed:
	for _, j := range jobs {
		select {
		case <-ctx.Done():
			break feed
		case taskCh <- j:
		}
	}
	close(taskCh)
	wg.Wait()

	event.Emit(cfg.Events, event.Event{Type: event.BatchCompleted})
	return result, nil
}

func runJob(ctx context.Context, job FileJob, cfg BatchConfig, ctl *control.Control, limiter *rate.Limiter) JobResult {
	event.Emit(cfg.Events, event.Event{
		Type:  event.CopyStarted,
		OpID:  job.ID,
		Path:  job.SourcePath,
		Total: job.Size,
	})

	req := Request{
		SourcePath:      job.SourcePath,
		DestinationPath: job.DestinationPath,
		BufferSize:      cfg.BufferSize,
		ComputeHash:     cfg.ComputeHash,
		Algorithm:       cfg.Algorithm,
		OpID:            job.ID,
	}

	out, err := execute(ctx, req, ctl, limiter)
	res := JobResult{Job: job, Outcome: out, Err: err}

	var mismatch *HashVerificationError
	switch {
	case err == nil:
		if cfg.Stats != nil {
			cfg.Stats.AddFilesCopied(1)
			cfg.Stats.AddBytesCopied(out.BytesCopied)
			if out.Verified {
				cfg.Stats.AddFilesVerified(1)
			}
		}
		ev := event.Event{
			Type:     event.CopyCompleted,
			OpID:     job.ID,
			Path:     job.SourcePath,
			Bytes:    out.BytesCopied,
			AvgSpeed: out.AverageSpeed,
		}
		if out.SourceDigest != nil {
			ev.SrcDigest = out.SourceDigest.Hex()
		}
		event.Emit(cfg.Events, ev)

	case errors.Is(err, ErrCancelled):
		event.Emit(cfg.Events, event.Event{
			Type: event.Cancelled,
			OpID: job.ID,
			Path: job.SourcePath,
		})

	case errors.As(err, &mismatch):
		if cfg.Stats != nil {
			cfg.Stats.AddFilesMismatched(1)
		}
		event.Emit(cfg.Events, event.Event{
			Type:      event.VerifyMismatch,
			OpID:      job.ID,
			Path:      job.SourcePath,
			SrcDigest: mismatch.SourceDigest.Hex(),
			DstDigest: mismatch.DestinationDigest.Hex(),
			Error:     err,
		})

	default:
		if cfg.Stats != nil {
			cfg.Stats.AddFilesFailed(1)
		}
		event.Emit(cfg.Events, event.Event{
			Type:  event.CopyFailed,
			OpID:  job.ID,
			Path:  job.SourcePath,
			Error: err,
		})
	}

	return res
}

// DiscoverJobs expands the configured sources into per-file jobs.
// A single regular-file source with a non-directory destination is
// treated as an explicit destination path; everything else lands under
// the destination directory.
func DiscoverJobs(cfg BatchConfig) ([]FileJob, int64, error) {
	flt, err := newPathFilter(cfg.Excludes, cfg.Includes)
	if err != nil {
		return nil, 0, err
	}

	if len(cfg.Sources) == 1 {
		info, err := os.Stat(cfg.Sources[0])
		if err == nil && info.Mode().IsRegular() {
			if di, derr := os.Stat(cfg.Destination); derr != nil || !di.IsDir() {
				job := FileJob{
					ID:              uuid.New(),
					SourcePath:      cfg.Sources[0],
					DestinationPath: cfg.Destination,
					Size:            info.Size(),
				}
				return []FileJob{job}, info.Size(), nil
			}
		}
	}

	var jobs []FileJob
	var totalBytes int64

	for _, src := range cfg.Sources {
		info, err := os.Stat(src)
		if err != nil {
			return nil, 0, &SourceNotFoundError{Path: src, Err: err}
		}

		switch {
		case info.Mode().IsRegular():
			name := filepath.Base(src)
			if flt.skip(name) {
				continue
			}
			jobs = append(jobs, FileJob{
				ID:              uuid.New(),
				SourcePath:      src,
				DestinationPath: filepath.Join(cfg.Destination, name),
				Size:            info.Size(),
			})
			totalBytes += info.Size()

		case info.IsDir():
			base := filepath.Base(filepath.Clean(src))
			walkErr := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
				if err != nil {
					return err
				}
				if !d.Type().IsRegular() {
					return nil
				}
				rel, err := filepath.Rel(src, path)
				if err != nil {
					return err
				}
				if flt.skip(filepath.ToSlash(rel)) {
					return nil
				}
				fi, err := d.Info()
				if err != nil {
					return err
				}

				dstRel := filepath.Join(base, rel)
				if cfg.Flatten {
					dstRel = d.Name()
				}
				jobs = append(jobs, FileJob{
					ID:              uuid.New(),
					SourcePath:      path,
					DestinationPath: filepath.Join(cfg.Destination, dstRel),
					Size:            fi.Size(),
				})
				totalBytes += fi.Size()
				return nil
			})
			if walkErr != nil {
				return nil, 0, &SourceNotFoundError{Path: src, Err: walkErr}
			}

		default:
			return nil, 0, &SourceNotFoundError{Path: src, Err: errors.New("not a regular file or directory")}
		}
	}

	return jobs, totalBytes, nil
}
