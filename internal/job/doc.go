// Package job runs background work such as time plan generation.
//
// Jobs are persisted before they are queued so that a restart can recover
// pending work. A Runner owns a bounded Queue and a WorkerPool, rehydrates
// jobs it finds in the store at start-up through a Registry of factories,
// and periodically resets jobs that have been processing for too long.
package job
