// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities so the domain layer stays free
// of ORM tags.
//
// Structure:
//   - base.go: BaseModel shared by all tables
//   - product.go: the products table
package models
