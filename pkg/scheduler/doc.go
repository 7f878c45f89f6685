// Package scheduler drives a model against a renderer.
//
// A Scheduler runs one cooperative loop per model. It waits for the first of
// an external event or a model-internal task, hands it to the model, and
// when the model reports itself dirty starts diff generation in the
// background. Input that arrives while a diff is being generated cancels
// that generation; its result is discarded and never reaches the renderer.
// Applying a finished stream is never interrupted.
//
//	s := scheduler.New(model, renderer,
//	    scheduler.WithLogger(logger),
//	    scheduler.WithJournal(j),
//	)
//	err := s.Run(ctx, queue.Events())
package scheduler
