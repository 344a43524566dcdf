package discovery

import "github.com/currantlabs/gattc"

// serviceCache holds the services of the current page. Entries beyond the
// capacity of a single response are dropped; the next page request starts
// right after the last cached service, so they show up again there.
type serviceCache struct {
	entries []gattc.DiscoveredService
	n       int
}

func newServiceCache(capacity int) *serviceCache {
	return &serviceCache{entries: make([]gattc.DiscoveredService, capacity)}
}

// setup overwrites the cache with rs and returns how many results were
// dropped for lack of room.
func (c *serviceCache) setup(rs []gattc.DiscoveredService) (dropped int) {
	c.n = len(rs)
	if c.n > len(c.entries) {
		dropped = c.n - len(c.entries)
		c.n = len(c.entries)
	}
	for i := 0; i < c.n; i++ {
		c.entries[i] = rs[i]
	}
	return dropped
}

func (c *serviceCache) len() int { return c.n }

func (c *serviceCache) at(i int) *gattc.DiscoveredService { return &c.entries[i] }

func (c *serviceCache) last() *gattc.DiscoveredService { return &c.entries[c.n-1] }

func (c *serviceCache) reset() {
	for i := range c.entries {
		c.entries[i] = gattc.DiscoveredService{}
	}
	c.n = 0
}

// charCache holds the characteristics of the current page of the service
// being walked.
type charCache struct {
	entries []gattc.DiscoveredCharacteristic
	n       int
}

func newCharCache(capacity int) *charCache {
	return &charCache{entries: make([]gattc.DiscoveredCharacteristic, capacity)}
}

// setup overwrites the cache with rs, binding each entry to conn. The last
// handle of each characteristic is the handle before the next declaration,
// or svcEnd for the last one of the page.
func (c *charCache) setup(conn uint16, rs []gattc.DiscoveredCharacteristic, svcEnd uint16) (dropped int) {
	c.n = len(rs)
	if c.n > len(c.entries) {
		dropped = c.n - len(c.entries)
		c.n = len(c.entries)
	}
	for i := 0; i < c.n; i++ {
		e := rs[i]
		e.ConnHandle = conn
		e.LastHandle = svcEnd
		if i+1 < len(rs) && rs[i+1].DeclHandle > e.DeclHandle {
			e.LastHandle = rs[i+1].DeclHandle - 1
		}
		c.entries[i] = e
	}
	return dropped
}

func (c *charCache) len() int { return c.n }

func (c *charCache) at(i int) *gattc.DiscoveredCharacteristic { return &c.entries[i] }

func (c *charCache) last() *gattc.DiscoveredCharacteristic { return &c.entries[c.n-1] }

func (c *charCache) reset() {
	for i := range c.entries {
		c.entries[i] = gattc.DiscoveredCharacteristic{}
	}
	c.n = 0
}
