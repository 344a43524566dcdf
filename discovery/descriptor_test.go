package discovery

import (
	"testing"

	"github.com/currantlabs/gattc"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type descRecorder struct {
	descs []gattc.DiscoveredDescriptor
	terms []DescriptorTermination
}

func (r *descRecorder) onDesc(d gattc.DiscoveredDescriptor) { r.descs = append(r.descs, d) }

func (r *descRecorder) onTerm(t DescriptorTermination) { r.terms = append(r.terms, t) }

func testChar(conn, decl, last uint16) gattc.DiscoveredCharacteristic {
	return gattc.DiscoveredCharacteristic{
		ConnHandle:  conn,
		UUID:        gattc.UUID16(0x2A19),
		Property:    gattc.CharRead | gattc.CharNotify,
		DeclHandle:  decl,
		ValueHandle: decl + 1,
		LastHandle:  last,
	}
}

func desc(u uint16, h uint16) gattc.DiscoveredDescriptor {
	return gattc.DiscoveredDescriptor{UUID: gattc.UUID16(u), Handle: h}
}

func TestDescriptorsNoRoom(t *testing.T) {
	m := &mockTransport{}
	c := newTestClient(t, m)
	rec := &descRecorder{}
	ch := testChar(1, 2, 3)

	require.NoError(t, c.DiscoverDescriptors(ch, rec.onDesc, rec.onTerm))
	assert.Equal(t, []DescriptorTermination{{Characteristic: ch}}, rec.terms)
	assert.False(t, c.IsDescriptorDiscoveryActive(ch))
	m.AssertExpectations(t)
}

func TestDescriptorsWalk(t *testing.T) {
	m := &mockTransport{}
	c := newTestClient(t, m)
	rec := &descRecorder{}
	ch := testChar(1, 2, 6)

	m.On("DiscoverDescriptors", uint16(1), rng(4, 6)).Return(nil).Once()
	require.NoError(t, c.DiscoverDescriptors(ch, rec.onDesc, rec.onTerm))
	assert.True(t, c.IsDescriptorDiscoveryActive(ch))

	m.On("DiscoverDescriptors", uint16(1), rng(6, 6)).Return(nil).Once()
	c.Handle(gattc.DescriptorsDiscovered{Conn: 1, Descriptors: []gattc.DiscoveredDescriptor{
		desc(0x2902, 4),
		desc(0x2901, 5),
	}})
	require.Len(t, rec.descs, 2)
	assert.Equal(t, uint16(1), rec.descs[0].ConnHandle)
	assert.Empty(t, rec.terms)

	c.Handle(gattc.DescriptorsDiscovered{Conn: 1, Status: gattc.ErrAttrNotFound})
	assert.Equal(t, []DescriptorTermination{{Characteristic: ch}}, rec.terms)
	assert.False(t, c.IsDescriptorDiscoveryActive(ch))
	m.AssertExpectations(t)
}

func TestDescriptorsStopAtDeclaration(t *testing.T) {
	m := &mockTransport{}
	c := newTestClient(t, m)
	rec := &descRecorder{}
	ch := testChar(1, 2, 9)

	m.On("DiscoverDescriptors", uint16(1), rng(4, 9)).Return(nil).Once()
	require.NoError(t, c.DiscoverDescriptors(ch, rec.onDesc, rec.onTerm))
	c.Handle(gattc.DescriptorsDiscovered{Conn: 1, Descriptors: []gattc.DiscoveredDescriptor{
		desc(0x2902, 4),
		desc(0x2803, 5),
	}})

	assert.Len(t, rec.descs, 1)
	assert.Len(t, rec.terms, 1)
	m.AssertExpectations(t)
}

func TestDescriptorsLastHandleReached(t *testing.T) {
	m := &mockTransport{}
	c := newTestClient(t, m)
	rec := &descRecorder{}
	ch := testChar(1, 2, 5)

	m.On("DiscoverDescriptors", uint16(1), rng(4, 5)).Return(nil).Once()
	require.NoError(t, c.DiscoverDescriptors(ch, rec.onDesc, rec.onTerm))
	c.Handle(gattc.DescriptorsDiscovered{Conn: 1, Descriptors: []gattc.DiscoveredDescriptor{
		desc(0x2902, 4),
		desc(0x2901, 5),
	}})

	assert.Len(t, rec.descs, 2)
	assert.Len(t, rec.terms, 1)
	m.AssertExpectations(t)
}

func TestDescriptorsBusy(t *testing.T) {
	m := &mockTransport{}
	c := newTestClient(t, m, OptMaxDescriptorDiscoveries(2))
	rec := &descRecorder{}

	m.On("DiscoverDescriptors", uint16(1), rng(4, 6)).Return(nil).Once()
	m.On("DiscoverDescriptors", uint16(2), rng(4, 6)).Return(nil).Once()
	require.NoError(t, c.DiscoverDescriptors(testChar(1, 2, 6), rec.onDesc, rec.onTerm))

	err := c.DiscoverDescriptors(testChar(1, 7, 9), rec.onDesc, rec.onTerm)
	assert.Equal(t, gattc.ErrBusy, errors.Cause(err))

	require.NoError(t, c.DiscoverDescriptors(testChar(2, 2, 6), rec.onDesc, rec.onTerm))
	err = c.DiscoverDescriptors(testChar(3, 2, 6), rec.onDesc, rec.onTerm)
	assert.Equal(t, gattc.ErrBusy, errors.Cause(err))
	assert.Empty(t, rec.terms)
	m.AssertExpectations(t)
}

func TestDescriptorsLaunchRejected(t *testing.T) {
	m := &mockTransport{}
	c := newTestClient(t, m)
	rec := &descRecorder{}
	ch := testChar(1, 2, 6)

	m.On("DiscoverDescriptors", uint16(1), rng(4, 6)).Return(gattc.ErrInvalidConnection).Once()
	err := c.DiscoverDescriptors(ch, rec.onDesc, rec.onTerm)
	assert.Equal(t, gattc.ErrInvalidConnection, errors.Cause(err))
	assert.False(t, c.IsDescriptorDiscoveryActive(ch))
	assert.Empty(t, rec.terms)
}

func TestDescriptorsTerminate(t *testing.T) {
	m := &mockTransport{}
	c := newTestClient(t, m)
	rec := &descRecorder{}
	ch := testChar(1, 2, 6)

	m.On("DiscoverDescriptors", uint16(1), rng(4, 6)).Return(nil).Twice()
	require.NoError(t, c.DiscoverDescriptors(ch, rec.onDesc, rec.onTerm))

	c.TerminateDescriptorDiscovery(ch)
	c.TerminateDescriptorDiscovery(ch)
	assert.Len(t, rec.terms, 1)
	assert.False(t, c.IsDescriptorDiscoveryActive(ch))

	// The slot is held until the response comes back.
	err := c.DiscoverDescriptors(ch, rec.onDesc, rec.onTerm)
	assert.Equal(t, gattc.ErrBusy, errors.Cause(err))

	c.Handle(gattc.DescriptorsDiscovered{Conn: 1, Descriptors: []gattc.DiscoveredDescriptor{desc(0x2902, 4)}})
	assert.Empty(t, rec.descs)
	assert.Len(t, rec.terms, 1)

	require.NoError(t, c.DiscoverDescriptors(ch, rec.onDesc, rec.onTerm))
	m.AssertExpectations(t)
}

func TestDescriptorsErrors(t *testing.T) {
	m := &mockTransport{}
	c := newTestClient(t, m)
	rec := &descRecorder{}
	ch := testChar(1, 2, 8)

	m.On("DiscoverDescriptors", uint16(1), rng(4, 8)).Return(nil).Once()
	require.NoError(t, c.DiscoverDescriptors(ch, rec.onDesc, rec.onTerm))
	c.Handle(gattc.DescriptorsDiscovered{Conn: 1, Status: gattc.ErrReadNotPerm})
	require.Len(t, rec.terms, 1)
	assert.Equal(t, gattc.ErrReadNotPerm, rec.terms[0].Err)

	m.On("DiscoverDescriptors", uint16(1), rng(4, 8)).Return(nil).Once()
	m.On("DiscoverDescriptors", uint16(1), rng(5, 8)).Return(gattc.ErrBusy).Once()
	require.NoError(t, c.DiscoverDescriptors(ch, rec.onDesc, rec.onTerm))
	c.Handle(gattc.DescriptorsDiscovered{Conn: 1, Descriptors: []gattc.DiscoveredDescriptor{desc(0x2902, 4)}})
	require.Len(t, rec.terms, 2)
	assert.Equal(t, gattc.ErrBusy, errors.Cause(rec.terms[1].Err))

	m.On("DiscoverDescriptors", uint16(1), rng(4, 8)).Return(nil).Once()
	require.NoError(t, c.DiscoverDescriptors(ch, rec.onDesc, rec.onTerm))
	c.Handle(gattc.Disconnected{Conn: 1})
	require.Len(t, rec.terms, 3)
	assert.Equal(t, gattc.ErrInvalidConnection, errors.Cause(rec.terms[2].Err))
	m.AssertExpectations(t)
}

func TestDescriptorsBehindRequest(t *testing.T) {
	m := &mockTransport{}
	c := newTestClient(t, m)
	rec := &descRecorder{}
	ch := testChar(1, 2, 8)

	m.On("DiscoverDescriptors", uint16(1), rng(4, 8)).Return(nil).Once()
	m.On("DiscoverDescriptors", uint16(1), rng(5, 8)).Return(nil).Once()
	require.NoError(t, c.DiscoverDescriptors(ch, rec.onDesc, rec.onTerm))
	c.Handle(gattc.DescriptorsDiscovered{Conn: 1, Descriptors: []gattc.DiscoveredDescriptor{desc(0x2902, 4)}})
	require.Len(t, rec.descs, 1)

	c.Handle(gattc.DescriptorsDiscovered{Conn: 1, Descriptors: []gattc.DiscoveredDescriptor{desc(0x2902, 4)}})
	assert.Len(t, rec.descs, 1)
	require.Len(t, rec.terms, 1)
	assert.Equal(t, gattc.ErrInvalidPDU, rec.terms[0].Err)
	assert.False(t, c.IsDescriptorDiscoveryActive(ch))
	m.AssertExpectations(t)
}
