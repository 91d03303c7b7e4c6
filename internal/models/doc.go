// Package models defines the core domain models for Splitkaro.
//
// # Models
//
//   - User: a registered participant, identified by a unique handle
//   - Group: a set of users who share expenses
//   - GroupMember: the explicit membership relation between a user and a group
//   - Expense: one recorded financial event belonging to a group
//   - Split: one participant's paid/owed breakdown for an expense
//   - Settlement: a recorded payment between members to clear debts
//
// # Design Principles
//
// 1. **Explicit relations**: group membership is a join entity (GroupMember),
// not a collection hanging off Group. Membership checks are lookups, never
// object-graph traversal.
// 2. **Avoid circular references**: models reference each other by ID strings,
// not pointers. The one exception is Expense.Splits, which is loaded with its
// parent because every balance calculation needs both.
// 3. **Money as float64**: amounts use float64 with an absolute 0.01 tolerance
// on every comparison to zero. Rounding to two decimal places happens only when
// rendering a response, never mid-computation.
package models
