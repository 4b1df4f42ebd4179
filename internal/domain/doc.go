// Package domain contains the core entities of the vocabulary review scheduler:
// vocabulary items with their scheduling state, the review outcomes learners
// submit, and the immutable review events that record each transition. It is
// independent of any storage or delivery mechanism.
package domain
