// Package models defines the core domain records for Expenso.
//
// Every entity has a fixed field set validated at the service boundary;
// there is no schema-on-write flexibility. Soft-deleted records keep an
// inactive flag plus a timestamp instead of being removed, so group and
// membership history is append-only.
//
// Relationships are expressed as ID strings rather than pointers to avoid
// circular references between groups, memberships, and expenses.
package models
