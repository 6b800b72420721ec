// Package manager coordinates model evaluation against one backend. It is
// structured into small files by concern:
//
//   - manager.go: core Manager type, constructor, setters.
//   - config.go: ManagerConfig and package defaults; NewWithConfig applies defaults.
//   - errors.go: error types and helpers (IsInvalidRequest, IsModelNotFound, IsTooBusy).
//   - admission.go: single-flight slot shared by every evaluation.
//   - reconcile.go: Prepare, which turns an adapter's readiness into a result.
//   - evaluate.go: Evaluate and EvaluateBatch, the per-image model loop.
//   - metrics.go: Prometheus collectors for invocations and evaluations.
//   - status_report.go: Status, ActiveModel, CheckModels and ListModels projections.
//   - events.go / eventpub_memory.go: lifecycle events.
//
// Evaluation is strictly sequential: one model at a time, one image at a time,
// with a settle pause after every model turn. Failures are data; Go errors are
// returned only for invalid input or when the evaluation slot cannot be taken.
package manager
