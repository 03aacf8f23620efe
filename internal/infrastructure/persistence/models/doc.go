// Package models holds the GORM models of the order, after-sale, SKU
// statistics, import queue and settings tables. Domain types stay free of
// ORM tags; every model converts with ToDomain and <Model>FromDomain.
package models
