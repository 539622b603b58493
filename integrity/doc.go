// Package integrity keeps Albums and Images consistent across two collections that only offer
// single-document atomicity.
//
// An Album's ImageIDs set is authoritative for membership. An Image's AlbumID is a back-reference
// used for cascades and ownership lookups and is never changed after creation. Every operation
// touching both collections is a short saga: an ordered list of single-document steps where each
// step carries the compensating action for its own effect. When a step fails the completed steps
// are compensated once, newest first, and the outcome is reported as one of the error kinds:
//
//   - UpdateFailed: compensation succeeded, the store is consistent again
//   - OrphanDetected: compensation failed, an Image or Album reference is left dangling
//
// The only tolerated transient inconsistency is the window between the two steps of an
// operation; it never outlives the operation's own completion or compensation.
package integrity
