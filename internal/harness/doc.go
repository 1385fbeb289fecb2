// Package harness runs declarative conformance scenarios against the
// synchronization runtime.
//
// A scenario is a YAML file naming the rules to register, the stub
// concepts to instrument, the instrumented calls to perform, and the
// assertions to evaluate over the observed completion trace. Scenarios
// run against the real runtime with deterministic scope tokens, so the
// trace a scenario produces is reproducible and can be pinned with a
// golden file.
package harness
