// Package tracer provides the shared data model and error taxonomy for
// stitching tracer trajectories.
//
// The central type is [Set], a dense [tracer, time, variable] array with
// time stored as variable 0. Two kinds of sets flow through the pipeline:
//
//   - the mapped set built by [Assembler] from dataset-B profiles
//   - the raw dataset-A trajectories loaded by the traj package
//
// Errors are reported with the sentinels in errors.go and are matched with
// errors.Is:
//
//	if errors.Is(err, tracer.ErrShapeMismatch) {
//	    // precondition violated, nothing was interpolated
//	}
//
// # Thread Safety
//
// A Set is immutable after construction and may be read from any number of
// goroutines. [Assembler] is not safe for concurrent use.
package tracer
