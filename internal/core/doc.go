// Package core holds the lead pipeline's domain logic, independent of any
// transport. The web handlers and the leadctl CLI both drive it through
// [Service].
//
// # Import
//
// An upload is decoded according to its extension (csv, xlsx, xls) into
// [RawRow] values keyed by header cell. Delimited files are streamed row by
// row through a BOM-stripping, UTF-8 repairing reader; workbooks are read
// into memory and only their first sheet is used.
//
// Every row goes through [Normalize], which resolves each lead field through
// one fixed alias table and accepts the row iff name and email are present.
// The [Importer] then canonicalizes the stage, collects rejected rows into
// [ImportResult.Rejected], and writes the accepted batch with a single
// [Store.InsertLeads] call:
//
//	file → decode → Normalize (per row) → stage check → InsertLeads → refresh
//
// A file without one acceptable row fails with [ErrEmptyBatch] and writes
// nothing.
//
// # Board
//
// A [Board] is one operator's pipeline view. A drag gesture is DragStart
// followed by DragEnd or DragCancel. Only a DragEnd onto a different stage
// touches the store, with exactly one UpdateLead, after which the view is
// re-read. The view is never edited ahead of the store.
//
// # Errors
//
// Operations fail with one of the sentinel kinds in errors.go, possibly
// wrapped in [DecodeError] or [StoreError]. [MapError] turns any of them
// into a coded [UserMessage].
package core
