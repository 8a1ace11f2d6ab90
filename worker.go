package transitiso

import (
	"github.com/pkg/errors"
)

type renderJob struct {
	seq uint64
	req RenderRequest
}

// RenderOutcome is one worker response. Seq identifies the request it
// answers so consumers can discard superseded results.
type RenderOutcome struct {
	Seq    uint64
	Result *RenderResult
	Err    error
}

// RenderWorker is the long-lived background goroutine performing per-pixel
// rasterization, so the controlling side stays non-blocking. One request is
// processed at a time; results are delivered over a channel.
type RenderWorker struct {
	requests chan renderJob
	results  chan RenderOutcome
}

// StartRenderWorker spawns the worker goroutine.
func StartRenderWorker() *RenderWorker {
	w := &RenderWorker{
		requests: make(chan renderJob, 1),
		results:  make(chan RenderOutcome, 1),
	}
	go w.run()
	return w
}

func (w *RenderWorker) run() {
	for job := range w.requests {
		w.results <- w.render(job)
	}
	close(w.results)
}

// render executes one job, converting a panic into a WorkerFailure outcome
// so the controller can fall back to rendering synchronously.
func (w *RenderWorker) render(job renderJob) (out RenderOutcome) {
	out.Seq = job.seq
	defer func() {
		if r := recover(); r != nil {
			out.Result = nil
			out.Err = errors.Errorf("render worker panic: %v", r)
		}
	}()
	out.Result, out.Err = RenderIsochrone(job.req)
	return out
}

// Submit hands a request to the worker. The caller is responsible for
// issuing one render at a time (the engine keeps a pending-latest slot).
func (w *RenderWorker) Submit(seq uint64, req RenderRequest) {
	w.requests <- renderJob{seq: seq, req: req}
}

// Results returns the delivery channel.
func (w *RenderWorker) Results() <-chan RenderOutcome {
	return w.results
}

// Close stops the worker after any in-flight job completes.
func (w *RenderWorker) Close() {
	close(w.requests)
}
