package peer

import (
	"fmt"
	"io"

	"github.com/currantlabs/gattc"
	"github.com/pkg/errors"
)

// attr is an attribute of the simulated peer. props holds what a client may
// do with it: the properties of a characteristic for its value, read only
// for declarations and descriptors, plus write for a CCCD.
type attr struct {
	h     uint16
	endh  uint16
	typ   gattc.UUID
	v     []byte
	props gattc.Property

	cccd *attr // of a characteristic value
	val  *attr // of a CCCD, the value it configures
}

// A DB is a contiguous range of attributes.
type DB struct {
	attrs []*attr
	base  uint16 // handle of attrs[0]
}

// at returns the attribute at handle h.
func (r *DB) at(h uint16) (*attr, bool) {
	i := int(h) - int(r.base)
	if h == 0 || i < 0 || i >= len(r.attrs) {
		return nil, false
	}
	return r.attrs[i], true
}

// rangeOf returns the attributes within [start, end], possibly none. It
// reports false for a range no request may carry [Vol 3, Part F, 3.4.3.1].
func (r *DB) rangeOf(start, end uint16) ([]*attr, bool) {
	if start == 0 || start > end {
		return nil, false
	}
	first, last := int(r.base), int(r.base)+len(r.attrs)-1
	lo, hi := max(int(start), first), min(int(end), last)
	if lo > hi {
		return nil, true
	}
	return r.attrs[lo-first : hi-first+1], true
}

// Len returns the number of attributes.
func (r *DB) Len() int { return len(r.attrs) }

// NewDB generates the attribute table of f, starting at handle base.
func NewDB(f *Fixture, base uint16) (*DB, error) {
	if base == 0 {
		return nil, errors.New("handle 0x0000 is reserved")
	}
	h := base
	var attrs []*attr
	for i, s := range f.Services {
		var aa []*attr
		var err error
		if h, aa, err = genSvcAttr(s, h); err != nil {
			return nil, errors.Wrapf(err, "service %d", i)
		}
		if i == len(f.Services)-1 {
			aa[0].endh = gattc.EndHandle
		}
		attrs = append(attrs, aa...)
	}
	return &DB{attrs: attrs, base: base}, nil
}

func genSvcAttr(s Service, h uint16) (uint16, []*attr, error) {
	u, err := gattc.Parse(s.UUID)
	if err != nil {
		return 0, nil, err
	}
	a := &attr{
		h:     h,
		typ:   gattc.PrimaryServiceUUID,
		v:     u.Wire(),
		props: gattc.CharRead,
	}
	h++
	attrs := []*attr{a}

	for i, c := range s.Characteristics {
		var aa []*attr
		if h, aa, err = genCharAttr(c, h); err != nil {
			return 0, nil, errors.Wrapf(err, "characteristic %d", i)
		}
		attrs = append(attrs, aa...)
	}

	a.endh = h - 1
	return h, attrs, nil
}

func genCharAttr(c Characteristic, h uint16) (uint16, []*attr, error) {
	u, err := gattc.Parse(c.UUID)
	if err != nil {
		return 0, nil, err
	}
	p, err := parseProperties(c.Properties)
	if err != nil {
		return 0, nil, err
	}
	v, err := parseValue(c.Value)
	if err != nil {
		return 0, nil, err
	}
	vh := h + 1

	a := &attr{
		h:     h,
		typ:   gattc.CharacteristicUUID,
		v:     append([]byte{byte(p), byte(vh), byte(vh >> 8)}, u.Wire()...),
		props: gattc.CharRead,
	}
	va := &attr{
		h:     vh,
		endh:  vh,
		typ:   u,
		v:     v,
		props: p,
	}
	h += 2

	attrs := []*attr{a, va}
	for _, d := range c.Descriptors {
		da, err := genDescAttr(d, h)
		if err != nil {
			return 0, nil, err
		}
		if da.typ.Equal(gattc.ClientCharacteristicConfigUUID) {
			da.props |= gattc.CharWrite
			da.val, va.cccd = va, da
		}
		attrs = append(attrs, da)
		h++
	}

	a.endh = h - 1
	return h, attrs, nil
}

func genDescAttr(d Descriptor, h uint16) (*attr, error) {
	u, err := gattc.Parse(d.UUID)
	if err != nil {
		return nil, err
	}
	v, err := parseValue(d.Value)
	if err != nil {
		return nil, err
	}
	return &attr{h: h, endh: h, typ: u, v: v, props: gattc.CharRead}, nil
}

// DumpAttributes writes the attribute table to w.
func (r *DB) DumpAttributes(w io.Writer) {
	fmt.Fprintf(w, "handle\tend\ttype\tvalue\n")
	for _, a := range r.attrs {
		if len(a.v) != 0 {
			fmt.Fprintf(w, "0x%04X\t0x%04X\t0x%s\t[ % X ]\n", a.h, a.endh, a.typ, a.v)
			continue
		}
		fmt.Fprintf(w, "0x%04X\t0x%04X\t0x%s\n", a.h, a.endh, a.typ)
	}
}
