// Package catalog contains the product aggregate and its lifecycle.
//
// A product moves through these states:
//
//	UNCREATED -> LOCAL_ONLY -> MIRRORED -> DELETED
//	ERP_ONLY  -> MIRRORED (import)
//
// UNCREATED and ERP_ONLY are never stored; they describe the two entry paths.
package catalog
