// Package gattc holds the vocabulary shared by the GATT client discovery
// packages: UUIDs, handle ranges, discovered entities, ATT status codes, the
// Transport a discovery runs over, and the events a Transport delivers.
//
// The discovery state machine itself lives in package discovery; package att
// provides a Transport speaking the Attribute Protocol over any byte stream.
package gattc
