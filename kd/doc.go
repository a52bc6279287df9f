// Package kd provides the epoch-driven scheduling core for knowledge
// distillation with progressive pruning.
//
// # Reading Guide
//
// Start with these three files to understand the scheduling kernel:
//   - trainer.go: the epoch loop composing all schedulers, best tracking, early stop
//   - event.go: epoch-keyed structural events (hint, unfreeze, prune) and at-most-once firing
//   - weights.go: annealed loss coefficients and their clamp semantics
//
// # Architecture
//
// The kd package owns scheduling state and policy; heavy lifting lives behind
// interfaces or in sub-packages:
//   - kd/history/: per-epoch record log and run summaries
//   - kd/infer/: multi-scale sliding-window inference and submission output
//
// External collaborators plug in through small interfaces:
//   - EpochRunner: one training epoch / one validation pass over the data
//   - Student: the student model's topology and structural mutations
//   - infer.Predictor: the forward pass used at test time
//
// Strategy selection is string-keyed in the experiment config and resolved
// through an explicit Registry passed into validation and construction; there
// is no global registry.
package kd
