// Package filesystem provides the afero file systems used by deploytpl and
// the permission rules applied to generated files.
//
// Production code runs on NewOS; tests use NewMemory so template search,
// output writes and fingerprinting can be exercised without touching disk.
package filesystem
