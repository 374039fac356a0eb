package sim

import (
	"errors"
	"fmt"

	"rescueops/internal/fleet"
)

var (
	// ErrNoUnitSelected is returned by Dispatch when the selection is empty.
	ErrNoUnitSelected = errors.New("no unit selected")
	// ErrUnknownCommand is returned for command names outside the table.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrNotSelectable is returned when selecting a victim or hazard.
	ErrNotSelectable = errors.New("entity is not selectable")
)

// Command is an operator instruction for the selected unit.
type Command string

const (
	CmdScanArea   Command = "scan_area"
	CmdDeliverAid Command = "deliver_aid"
	CmdExtract    Command = "extract"
	CmdReturnBase Command = "return_base"
)

// Any status may move to any other; the table only fixes the target.
var commandStatus = map[Command]fleet.UnitStatus{
	CmdScanArea:   fleet.StatusScanning,
	CmdDeliverAid: fleet.StatusDelivering,
	CmdExtract:    fleet.StatusActive,
	CmdReturnBase: fleet.StatusReturning,
}

// Commands lists every command in display order.
func Commands() []Command {
	return []Command{CmdScanArea, CmdDeliverAid, CmdExtract, CmdReturnBase}
}

// ParseCommand validates a command name.
func ParseCommand(name string) (Command, error) {
	c := Command(name)
	if _, ok := commandStatus[c]; !ok {
		return "", fmt.Errorf("%q: %w", name, ErrUnknownCommand)
	}
	return c, nil
}

// Status returns the unit status the command produces.
func (c Command) Status() (fleet.UnitStatus, bool) {
	s, ok := commandStatus[c]
	return s, ok
}
