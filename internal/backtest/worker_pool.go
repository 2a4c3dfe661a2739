package backtest

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/ducminhle1904/trend-breakout-bot/internal/logger"
	"github.com/ducminhle1904/trend-breakout-bot/pkg/types"
)

// WorkerPool runs independent backtests in parallel. Every job gets its own
// BacktestEngine, so runs share nothing but the read-only candle slice.
type WorkerPool struct {
	workerCount int
	log         *logger.Logger
	jobQueue    chan BacktestJob
	resultQueue chan BacktestResult
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
}

// BacktestJob represents a single backtest task
type BacktestJob struct {
	ID     string
	Name   string
	Config BacktestConfig
	Data   []types.OHLCV

	seq int
}

// BacktestResult represents the result of a backtest job
type BacktestResult struct {
	ID       string
	Name     string
	Results  *BacktestResults
	Duration time.Duration
	Error    error

	seq int
}

// NewWorkerPool creates a new worker pool for parallel backtesting
func NewWorkerPool(ctx context.Context, workerCount, jobBufferSize int, log *logger.Logger) *WorkerPool {
	if workerCount <= 0 {
		workerCount = runtime.NumCPU()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &WorkerPool{
		workerCount: workerCount,
		log:         log,
		jobQueue:    make(chan BacktestJob, jobBufferSize),
		resultQueue: make(chan BacktestResult, jobBufferSize),
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Start starts the worker pool
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.workerCount; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop closes the job queue, waits for the workers and closes the result channel
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()
}

// SubmitJob submits a backtest job to the pool
func (wp *WorkerPool) SubmitJob(job BacktestJob) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return wp.ctx.Err()
	}
}

// Results returns the result channel for collecting completed jobs
func (wp *WorkerPool) Results() <-chan BacktestResult {
	return wp.resultQueue
}

func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case job, ok := <-wp.jobQueue:
			if !ok {
				return
			}

			result := wp.processJob(job)

			select {
			case wp.resultQueue <- result:
			case <-wp.ctx.Done():
				return
			}

		case <-wp.ctx.Done():
			return
		}
	}
}

func (wp *WorkerPool) processJob(job BacktestJob) BacktestResult {
	start := time.Now()
	result := BacktestResult{ID: job.ID, Name: job.Name, seq: job.seq}

	engine, err := NewBacktestEngine(job.Config, wp.log)
	if err != nil {
		result.Error = err
		return result
	}

	result.Results, result.Error = engine.Run(wp.ctx, job.Data)
	result.Duration = time.Since(start)
	return result
}

// RunBatch runs every job and returns the results in submission order. Job IDs
// need not be unique.
func RunBatch(ctx context.Context, jobs []BacktestJob, workers int, log *logger.Logger) []BacktestResult {
	if len(jobs) == 0 {
		return nil
	}

	wp := NewWorkerPool(ctx, workers, len(jobs), log)
	wp.Start()

	submitted := 0
	for i, job := range jobs {
		job.seq = i
		if err := wp.SubmitJob(job); err != nil {
			break
		}
		submitted++
	}

	results := make([]BacktestResult, 0, submitted)
collect:
	for i := 0; i < submitted; i++ {
		select {
		case r := <-wp.Results():
			results = append(results, r)
		case <-ctx.Done():
			break collect
		}
	}
	wp.Stop()

	sort.Slice(results, func(i, j int) bool {
		return results[i].seq < results[j].seq
	})
	return results
}
