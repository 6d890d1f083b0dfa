package concurrent

import (
	"sync"
)

type JobFunc[T any, G any] func(job T) G

// WorkerPool runs a fixed number of workers over a job queue. results arrive in completion order.
type WorkerPool[T any, G any] struct {
	numWorkers int
	jobQueue   chan T
	results    chan G
	wg         sync.WaitGroup
}

func NewWorkerPool[T any, G any](numWorkers, jobQueueSize int) *WorkerPool[T, G] {
	return &WorkerPool[T, G]{
		numWorkers: max(numWorkers, 1),
		jobQueue:   make(chan T, jobQueueSize),
		results:    make(chan G, jobQueueSize),
	}
}

func (wp *WorkerPool[T, G]) worker(jobFunc JobFunc[T, G]) {
	defer wp.wg.Done()
	for job := range wp.jobQueue {
		wp.results <- jobFunc(job)
	}
}

func (wp *WorkerPool[T, G]) Start(jobFunc JobFunc[T, G]) {
	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(jobFunc)
	}
}

// Wait blocks until every worker has exited and closes the results channel. call Close first.
func (wp *WorkerPool[T, G]) Wait() {
	wp.wg.Wait()
	close(wp.results)
}

func (wp *WorkerPool[T, G]) AddJob(job T) {
	wp.jobQueue <- job
}

func (wp *WorkerPool[T, G]) CollectResults() <-chan G {
	return wp.results
}

// Close stops accepting jobs.
func (wp *WorkerPool[T, G]) Close() {
	close(wp.jobQueue)
}

type indexed[T any] struct {
	index int
	value T
}

// OrderedMap applies jobFunc to every job on numWorkers workers and returns the results in job order.
func OrderedMap[T any, G any](numWorkers int, jobs []T, jobFunc JobFunc[T, G]) []G {
	results := make([]G, len(jobs))
	if len(jobs) == 0 {
		return results
	}

	wp := NewWorkerPool[indexed[T], indexed[G]](min(numWorkers, len(jobs)), len(jobs))
	wp.Start(func(job indexed[T]) indexed[G] {
		return indexed[G]{index: job.index, value: jobFunc(job.value)}
	})
	for i, job := range jobs {
		wp.AddJob(indexed[T]{index: i, value: job})
	}
	wp.Close()
	wp.Wait()

	for res := range wp.CollectResults() {
		results[res.index] = res.value
	}
	return results
}
