// Package integration contains the ERP integration bounded context.
// It defines the port through which local products are mirrored to an
// external ERP (Billy's Billing) and the result types of an import run.
//
// Design Pattern: Ports & Adapters
//   - Ports (interfaces) are defined here in the domain layer
//   - Adapters (implementations) are in the infrastructure layer
package integration
