package gattc

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// A HandleRange is an inclusive range of attribute handles.
type HandleRange struct {
	Start uint16
	End   uint16
}

// Valid reports whether r is a non-empty range of real handles.
func (r HandleRange) Valid() bool {
	return r.Start != 0 && r.Start <= r.End
}

func (r HandleRange) String() string {
	return fmt.Sprintf("[0x%04X, 0x%04X]", r.Start, r.End)
}

// Property is the characteristic properties bitset.
type Property uint8

// Characteristic property flags [Vol 3, Part G, 3.3.1.1]
const (
	CharBroadcast   Property = 0x01 // may be brocasted
	CharRead        Property = 0x02 // may be read
	CharWriteNR     Property = 0x04 // may be written to, with no reply
	CharWrite       Property = 0x08 // may be written to, with a reply
	CharNotify      Property = 0x10 // supports notifications
	CharIndicate    Property = 0x20 // supports Indications
	CharSignedWrite Property = 0x40 // supports signed write
	CharExtended    Property = 0x80 // supports extended properties
)

var propNames = []struct {
	p    Property
	name string
}{
	{CharBroadcast, "broadcast"},
	{CharRead, "read"},
	{CharWriteNR, "write-without-response"},
	{CharWrite, "write"},
	{CharNotify, "notify"},
	{CharIndicate, "indicate"},
	{CharSignedWrite, "signed-write"},
	{CharExtended, "extended"},
}

func (p Property) String() string {
	var names []string
	for _, n := range propNames {
		if p&n.p != 0 {
			names = append(names, n.name)
		}
	}
	return strings.Join(names, "|")
}

// ParseProperty returns the flag named s, as printed by Property.String.
func ParseProperty(s string) (Property, bool) {
	for _, n := range propNames {
		if n.name == s {
			return n.p, true
		}
	}
	return 0, false
}

// DiscoveredService is a primary service found on a peer.
type DiscoveredService struct {
	UUID        UUID
	StartHandle uint16
	EndHandle   uint16
}

// Range returns the handle range spanned by the service.
func (s DiscoveredService) Range() HandleRange {
	return HandleRange{Start: s.StartHandle, End: s.EndHandle}
}

// DiscoveredCharacteristic is a characteristic found on a peer.
type DiscoveredCharacteristic struct {
	// ConnHandle is the connection the characteristic was discovered on.
	ConnHandle uint16

	UUID     UUID
	Property Property

	DeclHandle  uint16
	ValueHandle uint16

	// LastHandle is the last attribute handle belonging to the
	// characteristic, bounding its descriptors.
	LastHandle uint16
}

// DescriptorRange returns the range in which the characteristic's
// descriptors live. It is empty (End < Start) if there is no room for any.
func (c DiscoveredCharacteristic) DescriptorRange() HandleRange {
	return HandleRange{Start: c.DeclHandle + 2, End: c.LastHandle}
}

// DiscoveredDescriptor is a characteristic descriptor found on a peer.
type DiscoveredDescriptor struct {
	ConnHandle uint16
	UUID       UUID
	Handle     uint16
}

// AttributeValue is one handle/value pair of a read-by-type response.
type AttributeValue struct {
	Handle uint16
	Value  []byte
}

// A Profile assembles the results of a discovery into a tree of services,
// characteristics, and descriptors.
type Profile struct {
	Services []*Service
}

// A Service is a discovered service and the characteristics found in it.
type Service struct {
	DiscoveredService
	Characteristics []*Characteristic
}

// A Characteristic is a discovered characteristic and its descriptors.
type Characteristic struct {
	DiscoveredCharacteristic
	Descriptors []*Descriptor
	CCCD        *Descriptor
}

// A Descriptor is a discovered descriptor.
type Descriptor struct {
	DiscoveredDescriptor
}

// AddService records s. A service already recorded at the same handle is
// replaced in place, keeping its characteristics.
func (p *Profile) AddService(s DiscoveredService) *Service {
	if x := p.FindServiceWithHandle(s.StartHandle); x != nil {
		x.DiscoveredService = s
		return x
	}
	svc := &Service{DiscoveredService: s}
	p.Services = append(p.Services, svc)
	return svc
}

// AddCharacteristic records c under the service whose range contains it.
// It returns nil if no such service has been recorded.
func (p *Profile) AddCharacteristic(c DiscoveredCharacteristic) *Characteristic {
	for _, s := range p.Services {
		if c.DeclHandle < s.StartHandle || c.DeclHandle > s.EndHandle {
			continue
		}
		for _, x := range s.Characteristics {
			if x.DeclHandle == c.DeclHandle {
				x.DiscoveredCharacteristic = c
				return x
			}
		}
		ch := &Characteristic{DiscoveredCharacteristic: c}
		s.Characteristics = append(s.Characteristics, ch)
		return ch
	}
	return nil
}

// AddDescriptor records d under the characteristic whose range contains it.
// It returns nil if no such characteristic has been recorded.
func (p *Profile) AddDescriptor(d DiscoveredDescriptor) *Descriptor {
	for _, s := range p.Services {
		for _, c := range s.Characteristics {
			if d.Handle <= c.ValueHandle || d.Handle > c.LastHandle {
				continue
			}
			desc := &Descriptor{DiscoveredDescriptor: d}
			c.Descriptors = append(c.Descriptors, desc)
			if d.UUID.Equal(ClientCharacteristicConfigUUID) {
				c.CCCD = desc
			}
			return desc
		}
	}
	return nil
}

// FindWithUUID searches discovered profile for the specified UUID, in the
// following order: services, characteristics, descriptors.
// It returns a *Service, *Characteristic, *Descriptor, or nil.
func (p *Profile) FindWithUUID(u UUID) interface{} {
	for _, s := range p.Services {
		if s.UUID.Resolved() && s.UUID.Equal(u) {
			return s
		}
		for _, c := range s.Characteristics {
			if c.UUID.Resolved() && c.UUID.Equal(u) {
				return c
			}
			for _, d := range c.Descriptors {
				if d.UUID.Equal(u) {
					return d
				}
			}
		}
	}
	return nil
}

// FindWithHandle searches the discovered profile for the item the matches
// the given handle, in the following order: services, characteristics, descriptors.
// Characteristics match on either their declaration or value handle.
func (p *Profile) FindWithHandle(handle uint16) interface{} {
	if s := p.FindServiceWithHandle(handle); s != nil {
		return s
	}
	if c := p.FindCharacteristicWithHandle(handle); c != nil {
		return c
	}
	if d := p.FindDescriptorWithHandle(handle); d != nil {
		return d
	}
	return nil
}

// FindServiceWithHandle returns the service starting at handle, or nil.
func (p *Profile) FindServiceWithHandle(handle uint16) *Service {
	for _, s := range p.Services {
		if s.StartHandle == handle {
			return s
		}
	}
	return nil
}

// FindCharacteristicWithHandle returns the characteristic declared or
// valued at handle, or nil.
func (p *Profile) FindCharacteristicWithHandle(handle uint16) *Characteristic {
	for _, s := range p.Services {
		for _, c := range s.Characteristics {
			if c.DeclHandle == handle || c.ValueHandle == handle {
				return c
			}
		}
	}
	return nil
}

// FindDescriptorWithHandle returns the descriptor at handle, or nil.
func (p *Profile) FindDescriptorWithHandle(handle uint16) *Descriptor {
	for _, s := range p.Services {
		for _, c := range s.Characteristics {
			for _, d := range c.Descriptors {
				if d.Handle == handle {
					return d
				}
			}
		}
	}
	return nil
}

// FindWithHandleStr searches the discovered profile for the item whose handle
// matches handleStr. A "0x" prefix selects base 16; otherwise base 10 is
// assumed unless base is given.
//
// Example:
//	if u, err := profile.FindWithHandleStr("0x10B4"); u != nil {
//	...
//	}
func (p *Profile) FindWithHandleStr(handleStr string, base ...int) (interface{}, error) {
	if handleStr == "" {
		return nil, nil
	}
	hStr := handleStr
	convBase := 10
	if len(base) > 0 {
		if base[0] <= 0 {
			return nil, errors.Errorf("invalid base %d", base[0])
		}
		convBase = base[0]
	}
	if len(hStr) > 2 && hStr[0] == '0' && (hStr[1] == 'x' || hStr[1] == 'X') {
		hStr = hStr[2:]
		convBase = 16
	}
	h, err := strconv.ParseUint(hStr, convBase, 16)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid handle %q", handleStr)
	}
	return p.FindWithHandle(uint16(h)), nil
}
