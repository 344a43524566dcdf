package main

import (
	"time"

	"github.com/urfave/cli"
)

var (
	flgConfig   = cli.StringFlag{Name: "config, c", Usage: "YAML configuration file"}
	flgLogLevel = cli.StringFlag{Name: "log-level, l", Usage: "Log level (debug, info, warn, error), overrides the configuration"}
	flgPeer     = cli.StringFlag{Name: "peer, p", Usage: "Profile fixture of the simulated peer"}
	flgConn     = cli.UintFlag{Name: "conn", Value: 1, Usage: "Connection handle"}
	flgSvc      = cli.StringFlag{Name: "svc, s", Usage: "Only report services of this UUID"}
	flgChar     = cli.StringFlag{Name: "char", Usage: "Only report characteristics of this UUID"}
	flgDesc     = cli.BoolFlag{Name: "desc, d", Usage: "Discover the descriptors of each characteristic"}
	flgTimeout  = cli.DurationFlag{Name: "timeout, t", Value: time.Second * 5, Usage: "Timeout for the discovery"}
)

var (
	flgHandle = cli.UintFlag{Name: "handle", Usage: "Attribute handle"}
	flgOffset = cli.UintFlag{Name: "offset", Usage: "Offset of the first byte read"}
	flgValue  = cli.StringFlag{Name: "value, v", Usage: "Value to write, in hex"}
	flgNoRsp  = cli.BoolFlag{Name: "no-rsp", Usage: "Write without response"}
)
