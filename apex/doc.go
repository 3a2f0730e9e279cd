// Package apex implements the adversarial generate-critique-refine loop.
//
// An Optimizer drives a Generator (drafts content) against a Critic (scores
// and critiques it) for up to MaxRounds rounds, stopping early once a draft
// clears the quality threshold. The best draft seen is always returned, even
// when no round is accepted.
//
// Optional pieces:
//   - QualityFunction: deterministic scoring blended with the critic's score
//   - memory.Manager: past patterns injected as guidance before round 1,
//     instructive attempts recorded after the run
package apex
