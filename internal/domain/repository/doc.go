// Package repository defines the persistence entities and interfaces of the
// authorization server. Implementations live under internal/store; services
// depend only on these interfaces.
package repository
