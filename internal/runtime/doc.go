// Package runtime implements the replyflow reply service: the registry of
// subject bindings, the dispatch loop that decodes envelopes and publishes
// handler results to reply addresses, and the supervisor that restarts the
// loop after unhandled dispatch failures.
package runtime
