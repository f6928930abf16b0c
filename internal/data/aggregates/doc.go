// Package aggregates owns transaction boundaries for multi-row chat writes
// and maps store failures onto chat error codes.
//
// Services compose the table-level repos from internal/data/repos inside
// Within, so a caller that already holds a transaction extends it instead of
// opening a second one.
package aggregates
