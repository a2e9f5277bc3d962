// Package models holds the GORM rows behind the SchoolPay repositories.
//
// Domain entities stay free of ORM tags; each row type here carries the
// table mapping and a ToDomain/FromDomain pair the repositories call.
// Student and fee rows are written only by reconciliation, so they expose
// just the columns that path reads and updates.
package models
