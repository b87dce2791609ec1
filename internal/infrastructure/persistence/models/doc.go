// Package models contains GORM-specific persistence models that map to database tables.
// These models are separate from domain entities to keep the domain layer pure and free
// from ORM concerns.
//
// Structure:
//   - base.go: BaseModel and the model list used by AutoMigrate
//   - service_order.go: service orders, items and status history
//   - kanban.go: board columns and cards
//   - support.go: parts, purchase requests, activity feed, customers, capabilities
package models
