package model

// SubjectType enumerates the monotone resync loops (spec.md §3 "Subject
// kinds"). Integer encoding matches the Rust predecessor's
// UpdateSubjectType (slpdexdb_db/src/update_history.rs) — carried forward
// even though spec.md names only the kinds, not their wire values, per
// SPEC_FULL.md §4.
type SubjectType int32

const (
	SubjectToken          SubjectType = 1
	SubjectExch           SubjectType = 2
	SubjectAddressHistory SubjectType = 3
	SubjectAddressUTXOs   SubjectType = 4
	SubjectTokenStats     SubjectType = 5
)

// Subject identifies which resync loop a checkpoint belongs to: Exch and
// Token have no associated hash; AddressHistory/AddressUTXOs are keyed on
// an address hash.
type Subject struct {
	Kind        SubjectType
	Hash        *[]byte
	IsConfirmed bool
}

// UpdateCheckpoint is the monotone cursor used to resume a paginated pull
// (spec.md §3).
type UpdateCheckpoint struct {
	Subject     Subject
	LastHeight  int32
	LastTxHash  *Hash
	Completed   bool
	Timestamp   int64
}

// Initial returns the bootstrap checkpoint for a subject that has never
// been resynced: zero height, no tx hash. Completed is true so
// next_filters() takes the MinBlockHeight branch (there is no tx hash yet
// to resume from), matching the Rust predecessor's UpdateHistory::initial.
func Initial(subject Subject) UpdateCheckpoint {
	return UpdateCheckpoint{Subject: subject, LastHeight: 0, Completed: true}
}
