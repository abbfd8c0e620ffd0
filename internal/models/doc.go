// Package models defines the core domain models for familyfund.
//
// # Models
//
//   - Credential: a stored username and password hash (AUTHENTICATION tab)
//   - Transaction: one cleaned contribution row (TRANSACTION tab)
//   - Table: a raw header-keyed grid as read from a store tab
//   - Role: admin or user
//
// Stores speak Table; the clean package turns Tables into Transactions.
// Amounts are decimal, never float, so totals add up to the kobo.
//
// # Column names
//
// Tab headers are matched after trimming and upper-casing, so "Amount paid "
// and "AMOUNT PAID" are the same column. The canonical transaction columns
// are listed in TransactionColumns.
package models
