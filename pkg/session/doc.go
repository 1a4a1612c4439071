// Package session persists viewer documents per dataset and per user and
// turns them back into INIT_VIEWER actions.
//
// A Store only loads and saves one snapshot for one Ref. The Resolver stacks
// the dataset layout and the user's saved session over the application
// defaults:
//
//	defaults < Ref{Dataset} < Ref{Dataset, User}
//
// and checkpoints documents with a fresh snapshot id and an ETag used for
// optimistic concurrency.
package session
