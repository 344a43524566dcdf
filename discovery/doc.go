// Package discovery implements the GATT client discovery procedures as
// event-driven state machines: primary services, characteristics within
// them, and descriptors of characteristics.
//
// Every request goes out through a gattc.Transport and its response comes
// back later as a gattc.Event handed to Client.Handle. At most one request is
// outstanding per connection. 128-bit UUIDs the transport could not decode
// are resolved by reading the declaration of each entity, one at a time,
// before the entities are reported.
package discovery
