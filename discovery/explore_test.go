package discovery_test

import (
	"testing"
	"time"

	"github.com/currantlabs/gattc"
	"github.com/currantlabs/gattc/att"
	"github.com/currantlabs/gattc/discovery"
	"github.com/currantlabs/gattc/internal/peer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	vendorService = gattc.MustParse("34DA3AD1-7110-41A1-B1EF-4430F509CDE7")
	vendorChar    = gattc.MustParse("34DA3AD2-7110-41A1-B1EF-4430F509CDE7")
)

// connect attaches the sensor fixture as connection 1 of an att.Transport
// driving a Client.
func connect(t *testing.T, opts ...att.Option) (*att.Transport, *discovery.Client) {
	f, err := peer.Load("../internal/peer/testdata/sensor.yaml")
	require.NoError(t, err)
	db, err := peer.NewDB(f, 1)
	require.NoError(t, err)
	srv, err := peer.NewServer(db, gattc.DefaultMTU)
	require.NoError(t, err)

	tr, err := att.NewTransport(opts...)
	require.NoError(t, err)
	t.Cleanup(func() { tr.Close() })
	require.NoError(t, tr.Attach(1, srv.Dial()))

	c, err := discovery.NewClient(tr)
	require.NoError(t, err)
	go tr.Loop(c)
	return tr, c
}

// explore runs Explore against the sensor fixture over an att.Transport.
func explore(t *testing.T, ep discovery.ExploreParams, opts ...att.Option) *gattc.Profile {
	tr, c := connect(t, opts...)
	return discover(t, tr, c, ep)
}

func discover(t *testing.T, tr *att.Transport, c *discovery.Client, ep discovery.ExploreParams) *gattc.Profile {
	p := &gattc.Profile{}
	done := make(chan error, 1)
	require.NoError(t, tr.Submit(func() {
		if err := c.Explore(1, p, ep, func(err error) { done <- err }); err != nil {
			done <- err
		}
	}))
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("exploration timed out")
	}
	return p
}

func checkSensorProfile(t *testing.T, p *gattc.Profile) {
	require.Len(t, p.Services, 3)
	assert.Equal(t, gattc.DiscoveredService{UUID: gattc.UUID16(0x1800), StartHandle: 0x0001, EndHandle: 0x0005}, p.Services[0].DiscoveredService)
	assert.Equal(t, gattc.DiscoveredService{UUID: gattc.UUID16(0x180F), StartHandle: 0x0006, EndHandle: 0x0009}, p.Services[1].DiscoveredService)
	assert.Equal(t, gattc.DiscoveredService{UUID: vendorService, StartHandle: 0x000A, EndHandle: 0xFFFF}, p.Services[2].DiscoveredService)

	gap := p.Services[0].Characteristics
	require.Len(t, gap, 2)
	assert.Equal(t, gattc.DiscoveredCharacteristic{
		ConnHandle: 1, UUID: gattc.UUID16(0x2A00), Property: gattc.CharRead,
		DeclHandle: 0x0002, ValueHandle: 0x0003, LastHandle: 0x0003,
	}, gap[0].DiscoveredCharacteristic)
	assert.Equal(t, uint16(0x0005), gap[1].LastHandle)
	assert.Empty(t, gap[0].Descriptors)
	assert.Empty(t, gap[1].Descriptors)

	battery := p.Services[1].Characteristics
	require.Len(t, battery, 1)
	assert.Equal(t, gattc.CharRead|gattc.CharNotify, battery[0].Property)
	require.NotNil(t, battery[0].CCCD)
	assert.Equal(t, uint16(0x0009), battery[0].CCCD.Handle)

	vendor := p.Services[2].Characteristics
	require.Len(t, vendor, 2)
	assert.Equal(t, vendorChar, vendor[0].UUID)
	assert.Equal(t, uint16(0x000C), vendor[0].ValueHandle)
	require.Len(t, vendor[0].Descriptors, 2)
	assert.Equal(t, gattc.UUID16(0x2902), vendor[0].Descriptors[0].UUID)
	assert.Equal(t, gattc.UUID16(0x2901), vendor[0].Descriptors[1].UUID)
	assert.Equal(t, uint16(0x000E), vendor[0].Descriptors[1].Handle)
	assert.Equal(t, gattc.UUID16(0x2A29), vendor[1].UUID)
	assert.Empty(t, vendor[1].Descriptors)

	assert.Equal(t, vendor[0], p.FindWithUUID(vendorChar))
}

func TestExploreResolvesVendorUUIDs(t *testing.T) {
	p := explore(t, discovery.ExploreParams{Descriptors: true})
	checkSensorProfile(t, p)
}

func TestExploreRegisteredBase(t *testing.T) {
	p := explore(t, discovery.ExploreParams{Descriptors: true}, att.OptUUIDBase(vendorService.String()))
	checkSensorProfile(t, p)
}

func TestExploreFiltered(t *testing.T) {
	p := explore(t, discovery.ExploreParams{
		ServiceUUID:     gattc.UUID16(0x180F),
		Characteristics: true,
	})
	require.Len(t, p.Services, 1)
	assert.Equal(t, gattc.UUID16(0x180F), p.Services[0].UUID)
	require.Len(t, p.Services[0].Characteristics, 1)
	assert.Equal(t, gattc.UUID16(0x2A19), p.Services[0].Characteristics[0].UUID)
	assert.Empty(t, p.Services[0].Characteristics[0].Descriptors)

	p = explore(t, discovery.ExploreParams{CharacteristicUUID: vendorChar, Descriptors: true})
	require.Len(t, p.Services, 3)
	assert.Empty(t, p.Services[0].Characteristics)
	require.Len(t, p.Services[2].Characteristics, 1)
	assert.Len(t, p.Services[2].Characteristics[0].Descriptors, 2)
}

func TestExploreServicesOnly(t *testing.T) {
	p := explore(t, discovery.ExploreParams{})
	require.Len(t, p.Services, 3)
	for _, s := range p.Services {
		assert.Empty(t, s.Characteristics)
	}
}
