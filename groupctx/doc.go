// Package groupctx provides the public API of the task-group cancellation
// core.
//
// A task-group context travels with a bundle of related work submitted to
// a work-stealing runtime. It carries three things: the group's
// cancellation state, the first failure captured from the group's tasks,
// and the floating-point settings workers restore before running the
// group's tasks. Contexts form a tree — a nested group's context is bound
// under the context it was created in — and cancelling a context cancels
// every descendant group.
//
// # Quick start
//
// The scheduler (or a test harness standing in for one) owns the thread
// records:
//
//	arena := groupctx.NewArena()
//	td := groupctx.NewThread(arena)
//	groupctx.AttachExternal(td)
//	defer groupctx.DetachExternal(td)
//
//	root := groupctx.NewContext(groupctx.Traits{Bound: true})
//	defer groupctx.Destroy(root)
//
//	groupctx.Run(td, root, func() {
//		// task body; polls cancellation at convenient points:
//		if groupctx.IsGroupExecutionCancelled(root) {
//			return
//		}
//	})
//	groupctx.RethrowIfAny(root)
//
// Any thread may cancel any group:
//
//	if groupctx.CancelGroupExecution(root) {
//		// this call performed the transition; descendants observe it
//	}
//
// # Design
//
// Cancellation is advisory — it sets a monotonic flag that task bodies
// poll at well-defined points; nothing is preempted. The uncancelled hot
// path (creating and binding contexts) takes no global lock: binding
// validates a speculative copy of the parent's state against propagation
// epoch counters and falls back to the global propagation mutex only when
// a concurrent cancellation sweep is detected. See the internal ctxtree
// package for the algorithm.
//
// # API overview
//
//   - Context setup and teardown: [NewContext], [Initialize], [Destroy],
//     [Reset]
//   - Cancellation: [CancelGroupExecution], [IsGroupExecutionCancelled]
//   - FP environment: [CaptureFPSettings]
//   - Scheduler glue: [NewArena], [NewThread], [AttachWorker],
//     [AttachExternal], [DetachWorker], [DetachExternal], [Bind]
//   - Task boundaries: [Run], [RethrowIfAny]
package groupctx
