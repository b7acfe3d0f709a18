// Package framework provides the dependency-tracking and caching core for
// trees of composable systems.
//
// The package defines two parallel trees:
//
//   - [System]: static description of a subsystem and its children. Systems
//     live in a [Tree] arena and are addressed by [SystemIndex].
//   - [Context]: runtime state and cache storage allocated from a System,
//     one subcontext per child system, mirroring the system tree 1:1.
//
// Every value source (time, state, parameters, input ports) and every
// computation (cache entries) is named by a [Ticket]. Each context owns one
// [Tracker] per ticket; trackers form a subscriber graph and propagate
// invalidation when a source changes.
//
// # Cache entries
//
// A [CacheEntry] is declared on a system with an allocator, a calculator and
// an explicit list of prerequisite tickets:
//
//	sys := framework.NewSystem("physics.Pendulum")
//	sincos, _ := framework.DeclareModelCacheEntry(sys, "sin/cos of theta",
//		[2]float64{}, func(ctx *framework.Context, out *[2]float64) error {
//			q := ctx.Q()
//			out[0], out[1] = math.Sincos(q[0])
//			return nil
//		}, framework.WithPrerequisites(framework.ConfigurationTicket()))
//
//	ctx := sys.AllocateContext()
//	sc, _ := framework.Eval[[2]float64](ctx, sincos)
//
// Values are computed lazily on first read and returned unchanged until a
// prerequisite changes. Prerequisites are declared, never inferred. Running
// with [Context.DisableCaching] must produce bit-identical results.
//
// # Thread Safety
//
// Contexts are NOT thread-safe. Distinct context trees share no mutable
// state and may be used from different goroutines. Systems must not be
// modified once any context has been allocated from their tree.
package framework
