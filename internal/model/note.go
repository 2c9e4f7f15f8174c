package model

import "time"

// Note represents a row in the `notes` table. Notes are never edited
// in place: an update inserts a new row whose PreviousVersionID points
// at the row it supersedes, so the rows of one note form a backward
// linked chain from the newest version down to a root with a nil
// pointer. At most one note may reference a given predecessor.
//
// Fields:
//  ID                – primary key identifier.
//  Text              – note body, non-empty.
//  Summary           – machine-generated summary, if the summarizer
//                      produced one (nullable).
//  PreviousVersionID – id of the version this row supersedes; nil for
//                      the oldest retained version of a lineage.
//  CreatedAt         – timestamp of insertion, immutable.
//  UserID            – owner of this row (the user who wrote this
//                      version).
type Note struct {
	ID                uint64    // notes.id
	Text              string    // notes.text
	Summary           *string   // notes.summary (nullable)
	PreviousVersionID *uint64   // notes.previous_version_id (nullable)
	CreatedAt         time.Time // notes.created_at
	UserID            uint64    // notes.user_id
}
