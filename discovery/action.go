package discovery

import "github.com/currantlabs/gattc"

// An action is the next thing a session has to do. Handlers return an action
// instead of calling into each other, and run executes them iteratively, so a
// long chain of cached results or rejected requests never grows the stack.
type action interface {
	isAction()
}

type (
	// actProgressServices walks the service cache from the current index.
	actProgressServices struct{}

	// actRequestServices asks for the next page of primary services.
	actRequestServices struct{ start uint16 }

	// actStartCharacteristics begins characteristic discovery in a cached service.
	actStartCharacteristics struct{ service int }

	// actProgressCharacteristics walks the characteristic cache from the current index.
	actProgressCharacteristics struct{}

	// actRequestCharacteristics asks for the next page of characteristics.
	actRequestCharacteristics struct{ r gattc.HandleRange }

	// actEndCharacteristics resumes the service walk after the current service.
	actEndCharacteristics struct{}

	// actResolveUUIDs issues the read for the head of a resolution queue.
	actResolveUUIDs struct{ kind entity }

	// actTerminate ends the session.
	actTerminate struct {
		reason Reason
		err    error
	}
)

func (actProgressServices) isAction()        {}
func (actRequestServices) isAction()         {}
func (actStartCharacteristics) isAction()    {}
func (actProgressCharacteristics) isAction() {}
func (actRequestCharacteristics) isAction()  {}
func (actEndCharacteristics) isAction()      {}
func (actResolveUUIDs) isAction()            {}
func (actTerminate) isAction()               {}

// run executes a and every action it leads to, for as long as the session
// stays the one it was started for. A callback that terminates or relaunches
// the session bumps its generation and stops the chain.
func (d *ServiceDiscovery) run(s *session, a action) {
	gen := s.gen
	for a != nil && s.gen == gen && s.active() {
		a = d.step(s, a)
	}
}

func (d *ServiceDiscovery) step(s *session, a action) action {
	switch a := a.(type) {
	case actProgressServices:
		return d.progressServices(s)
	case actRequestServices:
		s.svcStart = a.start
		err := d.request(s, reqServices, func() error {
			return d.t.DiscoverPrimaryServices(s.conn, a.start)
		})
		if err != nil {
			return actTerminate{reason: TransportFailure, err: err}
		}
		return nil
	case actStartCharacteristics:
		return d.startCharacteristics(s, a.service)
	case actProgressCharacteristics:
		return d.progressCharacteristics(s)
	case actRequestCharacteristics:
		s.chrStart = a.r.Start
		err := d.request(s, reqCharacteristics, func() error {
			return d.t.DiscoverCharacteristics(s.conn, a.r)
		})
		if err != nil {
			logger.Debug("characteristic request rejected", "conn", s.conn, "range", a.r.String(), "err", err)
			return actEndCharacteristics{}
		}
		return nil
	case actEndCharacteristics:
		return d.endCharacteristics(s)
	case actResolveUUIDs:
		return d.resolveNext(s, a.kind)
	case actTerminate:
		d.terminate(s, Termination{Reason: a.reason, Err: a.err})
		return nil
	}
	return nil
}
