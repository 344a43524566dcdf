package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/currantlabs/gattc"
	"github.com/currantlabs/gattc/att"
	"github.com/currantlabs/gattc/config"
	"github.com/currantlabs/gattc/discovery"
	"github.com/currantlabs/gattc/internal/peer"
)

var (
	errNoPeer = errors.New("no peer fixture specified")

	cfg = config.Default()
)

func main() {
	app := cli.NewApp()

	app.Name = "gattdisc"
	app.Usage = "Discover the GATT profile of a peer"
	app.Version = "0.0.1"
	app.Action = cli.ShowAppHelp
	app.Flags = []cli.Flag{flgConfig, flgLogLevel}

	app.Commands = []cli.Command{
		{
			Name:    "discover",
			Aliases: []string{"d"},
			Usage:   "Discover services, characteristics, and descriptors",
			Action:  cmdDiscover,
			Flags:   []cli.Flag{flgPeer, flgConn, flgSvc, flgChar, flgDesc, flgTimeout},
		},
		{
			Name:   "read",
			Usage:  "Read the value of an attribute",
			Action: cmdRead,
			Flags:  []cli.Flag{flgPeer, flgConn, flgHandle, flgOffset, flgTimeout},
		},
		{
			Name:   "write",
			Usage:  "Write the value of an attribute",
			Action: cmdWrite,
			Flags:  []cli.Flag{flgPeer, flgConn, flgHandle, flgValue, flgNoRsp, flgTimeout},
		},
		{
			Name:   "dump",
			Usage:  "Dump the attribute table of a peer",
			Action: cmdDump,
			Flags:  []cli.Flag{flgPeer},
		},
	}

	app.Before = setup
	if err := app.Run(os.Args); err != nil {
		log.WithError(err).Error("gattdisc failed")
		os.Exit(1)
	}
}

func setup(c *cli.Context) error {
	if path := c.GlobalString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return errors.Wrap(err, "can't load configuration")
		}
		cfg = loaded
	}
	if lv := c.GlobalString("log-level"); lv != "" {
		cfg.LogLevel = lv
	}
	if err := cfg.Validate(); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	lv, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log.SetLevel(lv)
	return nil
}

func newPeer(path string) (*peer.Server, *peer.DB, error) {
	if path == "" {
		return nil, nil, errNoPeer
	}
	f, err := peer.Load(path)
	if err != nil {
		return nil, nil, err
	}
	db, err := peer.NewDB(f, gattc.StartHandle)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "can't build attributes of %s", path)
	}
	srv, err := peer.NewServer(db, cfg.MTU)
	if err != nil {
		return nil, nil, err
	}
	log.WithFields(log.Fields{"peer": f.Name, "attributes": db.Len()}).Debug("peer loaded")
	return srv, db, nil
}

func cmdDiscover(c *cli.Context) error {
	ep := discovery.ExploreParams{
		Characteristics: true,
		Descriptors:     c.Bool("desc"),
	}
	var err error
	if s := c.String("svc"); s != "" {
		if ep.ServiceUUID, err = gattc.Parse(s); err != nil {
			return err
		}
	}
	if s := c.String("char"); s != "" {
		if ep.CharacteristicUUID, err = gattc.Parse(s); err != nil {
			return err
		}
	}

	fmt.Printf("Discovering %s ...\n", c.String("peer"))
	p, err := explore(c.String("peer"), uint16(c.Uint("conn")), ep, c.Duration("timeout"))
	if err != nil {
		return chkErr(err)
	}
	printProfile(os.Stdout, p)
	return nil
}

func cmdDump(c *cli.Context) error {
	_, db, err := newPeer(c.String("peer"))
	if err != nil {
		return err
	}
	db.DumpAttributes(os.Stdout)
	return nil
}

func cmdRead(c *cli.Context) error {
	h, err := handleOf(c)
	if err != nil {
		return err
	}
	v, err := readValue(c.String("peer"), uint16(c.Uint("conn")), h, uint16(c.Uint("offset")), c.Duration("timeout"))
	if err != nil {
		return chkErr(err)
	}
	fmt.Printf("0x%04X: [ % X ] %q\n", h, v, v)
	return nil
}

func cmdWrite(c *cli.Context) error {
	h, err := handleOf(c)
	if err != nil {
		return err
	}
	v, err := hex.DecodeString(strings.TrimPrefix(c.String("value"), "0x"))
	if err != nil {
		return errors.Wrap(err, "invalid value")
	}
	op := gattc.WriteRequest
	if c.Bool("no-rsp") {
		op = gattc.WriteCommand
	}
	if err := writeValue(c.String("peer"), uint16(c.Uint("conn")), op, h, v, c.Duration("timeout")); err != nil {
		return chkErr(err)
	}
	fmt.Printf("0x%04X: written\n", h)
	return nil
}

func handleOf(c *cli.Context) (uint16, error) {
	h := c.Uint("handle")
	if h == 0 || h > 0xFFFF {
		return 0, errors.Errorf("invalid handle 0x%X", h)
	}
	return uint16(h), nil
}

// connect attaches the peer described by path as conn of a transport
// driving a new client.
func connect(path string, conn uint16) (*att.Transport, *discovery.Client, error) {
	srv, _, err := newPeer(path)
	if err != nil {
		return nil, nil, err
	}
	tr, err := att.NewTransport(cfg.TransportOptions()...)
	if err != nil {
		return nil, nil, errors.Wrap(err, "can't create transport")
	}
	if err := tr.Attach(conn, srv.Dial()); err != nil {
		tr.Close()
		return nil, nil, err
	}
	cln, err := discovery.NewClient(tr, cfg.ClientOptions()...)
	if err != nil {
		tr.Close()
		return nil, nil, errors.Wrap(err, "can't create client")
	}
	go tr.Loop(cln)
	return tr, cln, nil
}

// await starts fn on the event loop of tr and waits for it to report
// through done. On timeout, cancel runs on the loop.
func await(tr *att.Transport, tmo time.Duration, fn func(done func(error)) error, cancel func()) error {
	ctx, stop := context.WithTimeout(context.Background(), tmo)
	defer stop()

	ch := make(chan error, 1)
	done := func(err error) { ch <- err }
	err := tr.Submit(func() {
		if err := fn(done); err != nil {
			done(err)
		}
	})
	if err != nil {
		return err
	}
	select {
	case err = <-ch:
		return err
	case <-ctx.Done():
		if cancel != nil {
			tr.Submit(cancel)
		}
		return ctx.Err()
	}
}

// explore runs a discovery against the peer described by path.
func explore(path string, conn uint16, ep discovery.ExploreParams, tmo time.Duration) (*gattc.Profile, error) {
	tr, cln, err := connect(path, conn)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	start := time.Now()
	p := &gattc.Profile{}
	err = await(tr, tmo, func(done func(error)) error {
		return cln.Explore(conn, p, ep, done)
	}, func() { cln.TerminateServiceDiscovery(conn) })
	if err == context.DeadlineExceeded {
		return nil, err
	}
	if err != nil {
		return nil, errors.Wrap(err, "discovery failed")
	}
	log.WithFields(log.Fields{
		"conn":     conn,
		"services": len(p.Services),
		"elapsed":  time.Since(start),
	}).Info("discovery done")
	return p, nil
}

// readValue reads the value of handle from offset on.
func readValue(path string, conn, handle, offset uint16, tmo time.Duration) ([]byte, error) {
	tr, cln, err := connect(path, conn)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	var v []byte
	err = await(tr, tmo, func(done func(error)) error {
		return cln.Read(conn, handle, offset, func(ev gattc.AttributeRead) {
			if ev.Status != gattc.ErrSuccess {
				done(ev.Status)
				return
			}
			v = ev.Value
			done(nil)
		})
	}, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "read 0x%04X", handle)
	}
	log.WithFields(log.Fields{"conn": conn, "handle": handle, "len": len(v)}).Debug("value read")
	return v, nil
}

func writeValue(path string, conn uint16, op gattc.WriteOp, handle uint16, v []byte, tmo time.Duration) error {
	tr, cln, err := connect(path, conn)
	if err != nil {
		return err
	}
	defer tr.Close()

	err = await(tr, tmo, func(done func(error)) error {
		return cln.Write(op, conn, handle, v, func(ev gattc.AttributeWritten) {
			if ev.Status != gattc.ErrSuccess {
				done(ev.Status)
				return
			}
			done(nil)
		})
	}, nil)
	return errors.Wrapf(err, "%s 0x%04X", op, handle)
}

func chkErr(err error) error {
	switch errors.Cause(err) {
	case context.DeadlineExceeded:
		fmt.Printf("\n(Timed out)\n")
	case gattc.ErrBusy:
		fmt.Printf("\n(Busy, try again later)\n")
	}
	return err
}
