// Package changes keeps the bookkeeping that lets later deployment steps
// react to regenerated files.
//
// A Tracker fingerprints each output file before and after it is written and
// appends the ones whose meaningful content changed to <prepare>/.changedfiles.
// A WatchList records generated files and their fingerprint in
// <prepare>/.watchfiles so edits made by hand between runs can be reported,
// and a Monitor streams such edits live.
//
// Fingerprints skip blank lines and lines starting with '#', so comment edits
// and the generation timestamp never count as changes.
package changes
