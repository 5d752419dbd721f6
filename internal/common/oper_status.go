package common

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

type (
	// OperStatus is the operational state of an inter-network link.
	// The zero value is up so links declared without a status carry
	// traffic.
	OperStatus int
)

const (
	OperStatusUp OperStatus = iota
	OperStatusDown
)

// ParseOperStatus parses "up" or "down".
func ParseOperStatus(s string) (OperStatus, error) {
	switch s {
	case "", "up":
		return OperStatusUp, nil
	case "down":
		return OperStatusDown, nil
	default:
		return 0, fmt.Errorf("unknown oper status '%s'", s)
	}
}

func (o OperStatus) String() string {
	switch o {
	case OperStatusUp:
		return "up"
	case OperStatusDown:
		return "down"
	default:
		return fmt.Sprintf("OperStatus(%d)", int(o))
	}
}

func (o OperStatus) MarshalYAML() (interface{}, error) {
	return o.String(), nil
}

func (o *OperStatus) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	status, err := ParseOperStatus(s)
	if err != nil {
		return err
	}
	*o = status
	return nil
}
