package main

import (
	"fmt"
	"io"

	"github.com/currantlabs/gattc"
)

func printProfile(w io.Writer, p *gattc.Profile) {
	for _, s := range p.Services {
		fmt.Fprintf(w, "Service: %s, Handles: 0x%04X-0x%04X\n", describe(s.UUID), s.StartHandle, s.EndHandle)
		for _, c := range s.Characteristics {
			fmt.Fprintf(w, "  Characteristic: %s, Property: 0x%02X (%s), Handle: 0x%04X\n",
				describe(c.UUID), uint8(c.Property), c.Property, c.ValueHandle)
			for _, d := range c.Descriptors {
				fmt.Fprintf(w, "    Descriptor: %s, Handle: 0x%04X\n", describe(d.UUID), d.Handle)
			}
		}
		fmt.Fprintln(w)
	}
}

// describe returns u followed by its assigned name, if any.
func describe(u gattc.UUID) string {
	if n := gattc.Name(u); n != "" {
		return u.String() + " " + n
	}
	return u.String()
}
