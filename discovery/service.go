package discovery

import (
	"github.com/currantlabs/gattc"
	"github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"
)

var logger = log.New("discovery")

// Length of the attribute values read to resolve 128-bit UUIDs: a primary
// service declaration holds the bare UUID, a characteristic declaration holds
// properties(1) + value handle(2) + UUID(16).
const (
	serviceDeclLen = 16
	charDeclLen    = 1 + 2 + 16
)

// Params describes a service discovery.
type Params struct {
	// ServiceUUID filters the services reported. A nil UUID matches all.
	ServiceUUID gattc.UUID

	// CharacteristicUUID filters the characteristics reported. A nil UUID matches all.
	CharacteristicUUID gattc.UUID

	// OnService is called for each matching service. May be nil.
	OnService func(gattc.DiscoveredService)

	// OnCharacteristic is called for each matching characteristic of a
	// matching service. Characteristics are only discovered if it is set.
	OnCharacteristic func(gattc.DiscoveredCharacteristic)

	// OnTermination is called exactly once when a launched discovery ends.
	OnTermination func(Termination)
}

type session struct {
	used bool
	conn uint16

	// gen changes on every launch and termination; pending work checks it to
	// find out whether a callback replaced the session under it.
	gen      uint32
	st       state
	inflight request
	params   Params

	svcs   *serviceCache
	chars  *charCache
	svcQ   *uuidQueue
	charQ  *uuidQueue
	svcIdx int
	chrIdx int

	// First handles of the outstanding page requests. A page must move past
	// them, or the walk would ask for the same range again.
	svcStart uint16
	chrStart uint16
}

func (s *session) active() bool {
	_, idle := s.st.(inactive)
	return !idle
}

// notify runs a user callback and reports whether the session is still the
// same running discovery afterwards.
func (s *session) notify(fn func()) bool {
	gen := s.gen
	fn()
	return s.gen == gen && s.active()
}

func (s *session) queue(k entity) *uuidQueue {
	if k == serviceEntity {
		return s.svcQ
	}
	return s.charQ
}

// ServiceDiscovery walks the primary services, and optionally the
// characteristics, of peers, one connection per session. It is not safe for
// concurrent use; it is driven from the goroutine delivering transport events.
type ServiceDiscovery struct {
	t        gattc.Transport
	sessions []*session
}

func newServiceDiscovery(t gattc.Transport, sessions, services, characteristics int) *ServiceDiscovery {
	d := &ServiceDiscovery{t: t, sessions: make([]*session, sessions)}
	for i := range d.sessions {
		d.sessions[i] = &session{
			st:    inactive{},
			svcs:  newServiceCache(services),
			chars: newCharCache(characteristics),
			svcQ:  newUUIDQueue(services),
			charQ: newUUIDQueue(characteristics),
		}
	}
	return d
}

func (d *ServiceDiscovery) find(conn uint16) *session {
	for _, s := range d.sessions {
		if s.used && s.conn == conn {
			return s
		}
	}
	return nil
}

func (d *ServiceDiscovery) alloc(conn uint16) *session {
	for _, s := range d.sessions {
		if !s.used {
			s.used = true
			s.conn = conn
			return s
		}
	}
	return nil
}

// release frees the slot unless a response is still due on it.
func (d *ServiceDiscovery) release(s *session) {
	if s.inflight == reqNone && !s.active() {
		s.used = false
	}
}

// Launch starts discovering the services of the peer on conn.
//
// It returns ErrAlreadyActive if a discovery is running on conn, and ErrBusy
// if no session is free or a terminated discovery on conn still waits for its
// last response. If the first request is rejected, the termination callback
// fires and the mapped transport error is returned.
func (d *ServiceDiscovery) Launch(conn uint16, p Params) error {
	s := d.find(conn)
	switch {
	case s != nil && s.active():
		return errors.Wrapf(gattc.ErrAlreadyActive, "connection 0x%04X", conn)
	case s != nil && s.inflight != reqNone:
		return errors.Wrapf(gattc.ErrBusy, "connection 0x%04X is draining a response", conn)
	case s == nil:
		if s = d.alloc(conn); s == nil {
			return errors.Wrap(gattc.ErrBusy, "no free discovery session")
		}
	}

	s.gen++
	s.params = p
	s.svcs.reset()
	s.chars.reset()
	s.svcQ.reset()
	s.charQ.reset()
	s.svcIdx, s.chrIdx = 0, 0
	s.svcStart = gattc.StartHandle
	s.st = discoveringServices{}
	logger.Debug("launch service discovery", "conn", conn)

	err := d.request(s, reqServices, func() error {
		return d.t.DiscoverPrimaryServices(conn, gattc.StartHandle)
	})
	if err != nil {
		d.terminate(s, Termination{Reason: TransportFailure, Err: err})
		return errors.Wrap(err, "discover primary services")
	}
	return nil
}

// IsActive reports whether a service discovery is running on conn.
func (d *ServiceDiscovery) IsActive(conn uint16) bool {
	return d.Phase(conn) != Inactive
}

// Phase returns the phase of the discovery running on conn.
func (d *ServiceDiscovery) Phase(conn uint16) Phase {
	if s := d.find(conn); s != nil {
		return s.st.phase()
	}
	return Inactive
}

// Terminate aborts the discovery running on conn. The termination callback
// fires with reason Aborted. It does nothing if no discovery is running.
func (d *ServiceDiscovery) Terminate(conn uint16) {
	if s := d.find(conn); s != nil {
		d.terminate(s, Termination{Reason: Aborted})
	}
}

// TerminateCharacteristicDiscovery abandons the characteristics of the
// service being walked on conn and resumes the service walk after it. No
// callback fires. It does nothing unless characteristics are being discovered.
func (d *ServiceDiscovery) TerminateCharacteristicDiscovery(conn uint16) {
	s := d.find(conn)
	if s == nil {
		return
	}
	switch s.st.(type) {
	case discoveringCharacteristics, resolvingCharacteristicUUIDs:
	default:
		return
	}
	logger.Debug("characteristic discovery terminated", "conn", conn)
	s.gen++
	s.st = discoveringServices{}
	s.svcIdx++
	if s.inflight == reqNone {
		d.run(s, actProgressServices{})
	}
}

// Handle processes a transport event. Events for connections without a
// session, and responses nobody is waiting for, are dropped.
func (d *ServiceDiscovery) Handle(ev gattc.Event) {
	s := d.find(ev.ConnHandle())
	if s == nil {
		logger.Debug("no discovery session", "conn", ev.ConnHandle())
		return
	}
	switch ev := ev.(type) {
	case gattc.ServicesDiscovered:
		if d.accept(s, reqServices) {
			d.run(s, d.onServices(s, ev))
		}
	case gattc.CharacteristicsDiscovered:
		if d.accept(s, reqCharacteristics) {
			d.run(s, d.onCharacteristics(s, ev))
		}
	case gattc.ValuesRead:
		if d.accept(s, reqValues) {
			d.run(s, d.onValues(s, ev))
		}
	case gattc.Disconnected:
		s.inflight = reqNone
		d.terminate(s, Termination{
			Reason: Disconnected,
			Err:    errors.Wrapf(gattc.ErrInvalidConnection, "connection 0x%04X disconnected", s.conn),
		})
		d.release(s)
	}
}

// accept matches a response against the outstanding request of s.
func (d *ServiceDiscovery) accept(s *session, kind request) bool {
	if s.inflight != kind {
		logger.Warn("unexpected response", "conn", s.conn, "want", s.inflight.String(), "got", kind.String())
		return false
	}
	s.inflight = reqNone
	if !s.active() {
		logger.Debug("response after termination dropped", "conn", s.conn, "kind", kind.String())
		d.release(s)
		return false
	}
	return true
}

// request issues fn as the outstanding request of s.
func (d *ServiceDiscovery) request(s *session, kind request, fn func() error) error {
	s.inflight = kind
	if err := gattc.MapError(fn()); err != nil {
		s.inflight = reqNone
		return err
	}
	return nil
}

// terminate ends a running discovery and fires its termination callback.
func (d *ServiceDiscovery) terminate(s *session, t Termination) {
	if !s.active() {
		return
	}
	s.gen++
	s.st = inactive{}
	t.ConnHandle = s.conn
	cb := s.params.OnTermination
	s.params = Params{}
	d.release(s)
	logger.Info("service discovery terminated", "conn", t.ConnHandle, "reason", t.Reason.String(), "err", t.Err)
	if cb != nil {
		cb(t)
	}
}

func (d *ServiceDiscovery) onServices(s *session, ev gattc.ServicesDiscovered) action {
	if _, ok := s.st.(discoveringServices); !ok {
		return nil
	}
	switch {
	case ev.Status == gattc.ErrAttrNotFound:
		return actTerminate{reason: Completed}
	case ev.Status != gattc.ErrSuccess:
		return actTerminate{reason: PeerError, err: ev.Status}
	case len(ev.Services) == 0:
		return actTerminate{reason: Completed}
	}

	if n := s.svcs.setup(ev.Services); n > 0 {
		logger.Debug("service page truncated", "conn", s.conn, "dropped", n)
	}
	if end := s.svcs.last().EndHandle; end < s.svcStart {
		logger.Warn("service page behind request", "conn", s.conn, "start", s.svcStart, "end", end)
		return actTerminate{reason: PeerError, err: gattc.ErrInvalidPDU}
	}
	s.svcIdx = 0
	s.svcQ.reset()
	for i := 0; i < s.svcs.len(); i++ {
		if !s.svcs.at(i).UUID.Resolved() {
			s.svcQ.enqueue(i)
		}
	}
	if s.svcQ.empty() {
		return actProgressServices{}
	}
	s.st = resolvingServiceUUIDs{}
	return actResolveUUIDs{kind: serviceEntity}
}

func (d *ServiceDiscovery) progressServices(s *session) action {
	if _, ok := s.st.(discoveringServices); !ok {
		return nil
	}
	for s.svcIdx < s.svcs.len() {
		svc := *s.svcs.at(s.svcIdx)
		if gattc.Matches(s.params.ServiceUUID, svc.UUID) {
			if fn := s.params.OnService; fn != nil && !s.notify(func() { fn(svc) }) {
				return nil
			}
			if s.params.OnCharacteristic != nil {
				return actStartCharacteristics{service: s.svcIdx}
			}
		}
		s.svcIdx++
	}

	if s.svcs.len() == 0 {
		return actTerminate{reason: Completed}
	}
	next := uint32(s.svcs.last().EndHandle) + 1
	if next >= uint32(gattc.EndHandle) {
		return actTerminate{reason: Completed}
	}
	return actRequestServices{start: uint16(next)}
}

func (d *ServiceDiscovery) startCharacteristics(s *session, service int) action {
	s.chars.reset()
	s.charQ.reset()
	s.chrIdx = 0
	s.st = discoveringCharacteristics{service: service}

	r := s.svcs.at(service).Range()
	s.chrStart = r.Start
	err := d.request(s, reqCharacteristics, func() error {
		return d.t.DiscoverCharacteristics(s.conn, r)
	})
	if err != nil {
		logger.Debug("characteristic discovery rejected", "conn", s.conn, "range", r.String(), "err", err)
		return actEndCharacteristics{}
	}
	return nil
}

func (d *ServiceDiscovery) onCharacteristics(s *session, ev gattc.CharacteristicsDiscovered) action {
	st, ok := s.st.(discoveringCharacteristics)
	if !ok {
		return abandoned(s)
	}
	if ev.Status != gattc.ErrSuccess || len(ev.Characteristics) == 0 {
		if ev.Status != gattc.ErrSuccess && ev.Status != gattc.ErrAttrNotFound {
			logger.Debug("characteristic discovery failed", "conn", s.conn, "status", ev.Status.Error())
		}
		return actEndCharacteristics{}
	}

	end := s.svcs.at(st.service).EndHandle
	if n := s.chars.setup(s.conn, ev.Characteristics, end); n > 0 {
		logger.Debug("characteristic page truncated", "conn", s.conn, "dropped", n)
	}
	if vh := s.chars.last().ValueHandle; vh < s.chrStart {
		logger.Warn("characteristic page behind request", "conn", s.conn, "start", s.chrStart, "value", vh, "status", gattc.ErrInvalidPDU.Error())
		return actEndCharacteristics{}
	}
	s.chrIdx = 0
	s.charQ.reset()
	for i := 0; i < s.chars.len(); i++ {
		if !s.chars.at(i).UUID.Resolved() {
			s.charQ.enqueue(i)
		}
	}
	if s.charQ.empty() {
		return actProgressCharacteristics{}
	}
	s.st = resolvingCharacteristicUUIDs{service: st.service}
	return actResolveUUIDs{kind: characteristicEntity}
}

func (d *ServiceDiscovery) progressCharacteristics(s *session) action {
	st, ok := s.st.(discoveringCharacteristics)
	if !ok {
		return nil
	}
	for s.chrIdx < s.chars.len() {
		c := *s.chars.at(s.chrIdx)
		if gattc.Matches(s.params.CharacteristicUUID, c.UUID) {
			if fn := s.params.OnCharacteristic; fn != nil && !s.notify(func() { fn(c) }) {
				return nil
			}
		}
		s.chrIdx++
	}

	if s.chars.len() == 0 {
		return actEndCharacteristics{}
	}
	end := s.svcs.at(st.service).EndHandle
	next := uint32(s.chars.last().ValueHandle) + 1
	if next >= uint32(end) {
		return actEndCharacteristics{}
	}
	return actRequestCharacteristics{r: gattc.HandleRange{Start: uint16(next), End: end}}
}

func (d *ServiceDiscovery) endCharacteristics(s *session) action {
	switch s.st.(type) {
	case discoveringCharacteristics, resolvingCharacteristicUUIDs:
		s.st = discoveringServices{}
		s.svcIdx++
		return actProgressServices{}
	}
	return nil
}

// abandoned resumes the service walk once the last response of a terminated
// characteristic discovery came in.
func abandoned(s *session) action {
	if _, ok := s.st.(discoveringServices); ok {
		return actProgressServices{}
	}
	return nil
}

// resolveNext reads the declaration of the entry at the head of the queue.
// Entries whose read is rejected are dropped and keep their unresolved UUID.
// Once the queue is empty the walk of the cache resumes.
func (d *ServiceDiscovery) resolveNext(s *session, k entity) action {
	q := s.queue(k)
	for !q.empty() {
		typ, r := d.resolutionTarget(s, k, q.head())
		err := d.request(s, reqValues, func() error {
			return d.t.ReadUsingUUID(s.conn, typ, r)
		})
		if err == nil {
			return nil
		}
		logger.Debug("UUID resolution rejected", "conn", s.conn, "entity", k.String(), "index", q.head(), "err", err)
		q.dequeue()
	}

	switch st := s.st.(type) {
	case resolvingServiceUUIDs:
		s.st = discoveringServices{}
		return actProgressServices{}
	case resolvingCharacteristicUUIDs:
		s.st = discoveringCharacteristics{service: st.service}
		return actProgressCharacteristics{}
	}
	return nil
}

func (d *ServiceDiscovery) resolutionTarget(s *session, k entity, i int) (gattc.UUID, gattc.HandleRange) {
	if k == serviceEntity {
		return gattc.PrimaryServiceUUID, s.svcs.at(i).Range()
	}
	c := s.chars.at(i)
	return gattc.CharacteristicUUID, gattc.HandleRange{Start: c.DeclHandle, End: c.ValueHandle}
}

func (d *ServiceDiscovery) onValues(s *session, ev gattc.ValuesRead) action {
	var k entity
	switch s.st.(type) {
	case resolvingServiceUUIDs:
		k = serviceEntity
	case resolvingCharacteristicUUIDs:
		k = characteristicEntity
	default:
		return abandoned(s)
	}

	i := s.queue(k).dequeue()
	u := decodeUUID(k, ev)
	switch {
	case i == invalidIndex:
	case u == nil:
		logger.Debug("UUID left unresolved", "conn", s.conn, "entity", k.String(), "index", i, "status", ev.Status.Error())
	case k == serviceEntity:
		s.svcs.at(i).UUID = u
	default:
		s.chars.at(i).UUID = u
	}
	return actResolveUUIDs{kind: k}
}

// decodeUUID extracts the 128-bit UUID from a successful single-entry read
// of a declaration, or returns nil.
func decodeUUID(k entity, ev gattc.ValuesRead) gattc.UUID {
	if ev.Status != gattc.ErrSuccess || len(ev.Values) != 1 {
		return nil
	}
	v := ev.Values[0].Value
	switch {
	case k == serviceEntity && len(v) == serviceDeclLen:
		return gattc.FromWire(v)
	case k == characteristicEntity && len(v) == charDeclLen:
		return gattc.FromWire(v[3:])
	}
	return nil
}
