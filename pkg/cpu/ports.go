package cpu

import "github.com/noah1400/vm32/pkg/vmerr"

// inPort and outPort implement the fixed I/O port map of spec section
// 6, grounded on original_source's console/timer device pair: ports
// 0-7 are console (0 stdin, 1 status-always-ready on read / stderr on
// write), ports 8-15 are the timer (8 value, 9 control), everything
// else is reserved and reads back zero.
func (c *CPU) inPort(port uint16) (uint32, *vmerr.Error) {
	switch {
	case port == 0:
		b, err := c.Stdin.ReadByte()
		if err != nil {
			return 0xFFFFFFFF, nil
		}
		return uint32(b), nil
	case port == 1:
		return 1, nil
	case port == 8:
		return c.timerValue, nil
	default:
		return 0, nil
	}
}

func (c *CPU) outPort(port uint16, value uint32) *vmerr.Error {
	switch {
	case port == 0:
		_, err := c.Stdout.Write([]byte{byte(value)})
		if err != nil {
			return vmerr.Newf(vmerr.IOError, "console write failed: %v", err)
		}
		return nil
	case port == 1:
		_, err := c.Stderr.Write([]byte{byte(value)})
		if err != nil {
			return vmerr.Newf(vmerr.IOError, "console write failed: %v", err)
		}
		return nil
	case port == 8:
		c.timerValue = value
		return nil
	case port == 9:
		switch value {
		case 0:
			c.timerRunning = false
		case 1:
			c.timerRunning = true
		case 2:
			c.timerValue = 0
		}
		return nil
	default:
		return nil
	}
}
