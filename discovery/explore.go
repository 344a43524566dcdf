package discovery

import (
	"github.com/currantlabs/gattc"
	"github.com/pkg/errors"
)

// ExploreParams describes what Explore collects.
type ExploreParams struct {
	ServiceUUID        gattc.UUID
	CharacteristicUUID gattc.UUID

	// Characteristics enables characteristic discovery.
	Characteristics bool

	// Descriptors enables descriptor discovery of every characteristic found.
	// It implies Characteristics.
	Descriptors bool
}

// Explore discovers the profile of the peer on conn into p, then calls done
// with nil, or with the error that cut the discovery short. Descriptors are
// walked one characteristic at a time once the service discovery completed.
//
// If the discovery can't be launched, the error is returned and done is not
// called.
func (c *Client) Explore(conn uint16, p *gattc.Profile, ep ExploreParams, done func(error)) error {
	var chars []gattc.DiscoveredCharacteristic
	launching := true

	var next func(i int)
	next = func(i int) {
		if i == len(chars) {
			done(nil)
			return
		}
		ch := chars[i]
		onDesc := func(d gattc.DiscoveredDescriptor) { p.AddDescriptor(d) }
		onTerm := func(t DescriptorTermination) {
			if t.Err != nil {
				done(errors.Wrapf(t.Err, "descriptors of 0x%04X", ch.DeclHandle))
				return
			}
			next(i + 1)
		}
		if err := c.DiscoverDescriptors(ch, onDesc, onTerm); err != nil {
			done(err)
		}
	}

	params := Params{
		ServiceUUID:        ep.ServiceUUID,
		CharacteristicUUID: ep.CharacteristicUUID,
		OnService:          func(s gattc.DiscoveredService) { p.AddService(s) },
		OnTermination: func(t Termination) {
			switch {
			case launching:
			case t.Err != nil:
				done(errors.Wrapf(t.Err, "service discovery %s", t.Reason))
			case t.Reason != Completed:
				done(errors.Errorf("service discovery %s", t.Reason))
			case ep.Descriptors:
				next(0)
			default:
				done(nil)
			}
		},
	}
	if ep.Characteristics || ep.Descriptors {
		params.OnCharacteristic = func(ch gattc.DiscoveredCharacteristic) {
			p.AddCharacteristic(ch)
			chars = append(chars, ch)
		}
	}
	err := c.LaunchServiceDiscovery(conn, params)
	launching = false
	return err
}
