package x11

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/vdtime/vdtime/pkg/desktop"
)

const sourceName = "x11"

// parseCardinal decodes the first 32-bit value of a CARDINAL property
func parseCardinal(data []byte) (uint32, bool) {
	if len(data) < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(data), true
}

// parseNames splits a _NET_DESKTOP_NAMES value. Names are NUL terminated;
// the final terminator may be missing.
func parseNames(data []byte) []string {
	value := strings.TrimSuffix(string(data), "\x00")
	if value == "" {
		return nil
	}
	return strings.Split(value, "\x00")
}

// buildDesktops pairs the desktop count with the advertised names. Window
// managers may advertise fewer names than desktops; the rest are numbered.
func buildDesktops(display string, count uint32, names []string) []desktop.Desktop {
	desktops := make([]desktop.Desktop, 0, count)
	for i := uint32(0); i < count; i++ {
		name := ""
		if int(i) < len(names) {
			name = strings.TrimSpace(names[i])
		}
		if name == "" {
			name = fmt.Sprintf("Desktop %d", i+1)
		}
		desktops = append(desktops, desktop.Desktop{Name: name, ID: desktopID(display, i)})
	}
	return desktops
}

// desktopID identifies a desktop by display and index, so renames keep it
func desktopID(display string, index uint32) uuid.UUID {
	return desktop.StableID(sourceName, display, strconv.FormatUint(uint64(index), 10))
}
