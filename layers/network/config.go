package network

import (
	"fmt"

	"github.com/matheuscscp/world-net/config"
	"github.com/matheuscscp/world-net/internal/common"
	pkgnet "github.com/matheuscscp/world-net/pkg/net"
)

type (
	// SimulationConfig is the persisted topology of one world. Entities
	// are created in file order, so IDs omitted from the file are
	// assigned deterministically.
	SimulationConfig struct {
		Name     string          `yaml:"name"`
		ISPs     []ISPConfig     `yaml:"isps,omitempty"`
		Networks []NetworkConfig `yaml:"networks"`
		Links    []LinkConfig    `yaml:"links,omitempty"`
	}

	ISPConfig struct {
		ID        ISPID  `yaml:"id,omitempty"`
		Name      string `yaml:"name"`
		BlockCIDR string `yaml:"blockCIDR"`
	}

	// NetworkConfig describes a network and its members. ISP names an
	// entry of SimulationConfig.ISPs and Gateway is the address of one
	// of the members.
	NetworkConfig struct {
		ID            NetworkID      `yaml:"id,omitempty"`
		Name          string         `yaml:"name"`
		NetworkCIDR   string         `yaml:"networkCIDR"`
		PublicAddress string         `yaml:"publicAddress,omitempty"`
		ISP           string         `yaml:"isp,omitempty"`
		Gateway       string         `yaml:"gateway,omitempty"`
		Devices       []DeviceConfig `yaml:"devices,omitempty"`
	}

	// DeviceConfig describes a device. Address is either the host bits
	// (e.g. 0.0.0.10) or a full address inside the network.
	DeviceConfig struct {
		ID      DeviceID `yaml:"id,omitempty"`
		Name    string   `yaml:"name,omitempty"`
		Address string   `yaml:"address"`
	}

	// LinkConfig links two networks by name. Links are bidirectional
	// unless OneWay is set.
	LinkConfig struct {
		From   string            `yaml:"from"`
		To     string            `yaml:"to"`
		OneWay bool              `yaml:"oneWay,omitempty"`
		Status common.OperStatus `yaml:"status,omitempty"`
	}
)

// NewSimulationFromConfigFile reads a yaml topology file and rebuilds
// the world it describes.
func NewSimulationFromConfigFile(file string) (*NetworkSimulation, error) {
	var conf SimulationConfig
	if err := config.ReadYAMLFileAndUnmarshal(file, &conf); err != nil {
		return nil, fmt.Errorf("error reading yaml topology config file: %w", err)
	}
	return NewSimulation(conf)
}

// NewSimulation rebuilds a world from its persisted topology and
// validates it. Malformed data is reported as ErrInvalidTopology.
func NewSimulation(conf SimulationConfig) (*NetworkSimulation, error) {
	s := NewNetworkSimulation(conf.Name)
	if err := s.load(&conf); err != nil {
		s.l.
			WithError(err).
			Error("error loading topology")
		return nil, err
	}
	if err := s.Validate(); err != nil {
		s.l.
			WithError(err).
			Error("loaded topology is invalid")
		return nil, err
	}

	s.l.
		WithField("isps", len(conf.ISPs)).
		WithField("networks", len(conf.Networks)).
		WithField("links", len(conf.Links)).
		Info("topology loaded")

	return s, nil
}

func (s *NetworkSimulation) load(conf *SimulationConfig) error {
	ispIDs := make(map[string]ISPID)
	for i, ispConf := range conf.ISPs {
		if _, ok := ispIDs[ispConf.Name]; ok || ispConf.Name == "" {
			return invalidTopology("isp %d: name '%s' is empty or already in use", i, ispConf.Name)
		}
		block, mask, err := pkgnet.ParseNetworkCIDR(ispConf.BlockCIDR)
		if err != nil {
			return invalidTopologyWithCause(err, "isp %s: error parsing block cidr", ispConf.Name)
		}
		id, err := s.AddISP(ISP{
			ID:        ispConf.ID,
			Name:      ispConf.Name,
			Block:     block,
			BlockMask: mask,
		})
		if err != nil {
			return fmt.Errorf("error loading isp %s: %w", ispConf.Name, err)
		}
		ispIDs[ispConf.Name] = id
	}

	networkIDs := make(map[string]NetworkID)
	for i := range conf.Networks {
		netConf := &conf.Networks[i]
		id, err := s.loadNetwork(netConf, ispIDs)
		if err != nil {
			return fmt.Errorf("error loading network %d (%s): %w", i, netConf.Name, err)
		}
		networkIDs[netConf.Name] = id
	}

	for i, linkConf := range conf.Links {
		from, ok := networkIDs[linkConf.From]
		if !ok {
			return invalidTopologyWithCause(ErrNetworkNotFound, "link %d: unknown network '%s'", i, linkConf.From)
		}
		to, ok := networkIDs[linkConf.To]
		if !ok {
			return invalidTopologyWithCause(ErrNetworkNotFound, "link %d: unknown network '%s'", i, linkConf.To)
		}
		if err := s.Link(from, to, !linkConf.OneWay); err != nil {
			return fmt.Errorf("error loading link %d: %w", i, err)
		}
		if linkConf.Status == common.OperStatusUp {
			continue
		}
		if err := s.SetLinkStatus(from, to, linkConf.Status); err != nil {
			return fmt.Errorf("error loading link %d: %w", i, err)
		}
		if !linkConf.OneWay {
			if err := s.SetLinkStatus(to, from, linkConf.Status); err != nil {
				return fmt.Errorf("error loading link %d: %w", i, err)
			}
		}
	}

	return nil
}

func (s *NetworkSimulation) loadNetwork(conf *NetworkConfig, ispIDs map[string]ISPID) (NetworkID, error) {
	subnet, mask, err := pkgnet.ParseNetworkCIDR(conf.NetworkCIDR)
	if err != nil {
		return 0, invalidTopologyWithCause(err, "error parsing network cidr")
	}
	var public pkgnet.Address
	if conf.PublicAddress != "" {
		if public, err = pkgnet.ParseAddress(conf.PublicAddress); err != nil {
			return 0, invalidTopologyWithCause(err, "error parsing public address")
		}
	}
	var isp ISPID
	if conf.ISP != "" {
		var ok bool
		if isp, ok = ispIDs[conf.ISP]; !ok {
			return 0, invalidTopologyWithCause(ErrISPNotFound, "unknown isp '%s'", conf.ISP)
		}
	}

	id, err := s.AddNetwork(Network{
		ID:            conf.ID,
		Name:          conf.Name,
		SubnetAddress: subnet,
		SubnetMask:    mask,
		PublicAddress: public,
		ISP:           isp,
	})
	if err != nil {
		return 0, err
	}

	for j, devConf := range conf.Devices {
		address, err := pkgnet.ParseAddress(devConf.Address)
		if err != nil {
			return 0, invalidTopologyWithCause(err, "device %d: error parsing address", j)
		}
		_, err = s.AddDevice(DeviceNode{
			ID:      devConf.ID,
			Name:    devConf.Name,
			Address: address,
			Network: id,
		})
		if err != nil {
			return 0, fmt.Errorf("error loading device %d (%s): %w", j, devConf.Name, err)
		}
	}

	if conf.Gateway != "" {
		gateway, err := pkgnet.ParseAddress(conf.Gateway)
		if err != nil {
			return 0, invalidTopologyWithCause(err, "error parsing gateway address")
		}
		n, _ := s.Network(id)
		node, ok, err := s.findMember(id, gateway)
		if err != nil {
			return 0, err
		}
		if !ok || !(n.Contains(gateway) || pkgnet.NetworkAddress(gateway, mask) == 0) {
			return 0, invalidTopology("gateway %s is not a member of the network", conf.Gateway)
		}
		if err := s.SetGateway(id, node.Device); err != nil {
			return 0, err
		}
	}

	return id, nil
}

// findMember resolves an address (full or host bits) to a member.
func (s *NetworkSimulation) findMember(network NetworkID, address pkgnet.Address) (WebNode, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.networks[network]
	if !ok {
		return WebNode{}, false, fmt.Errorf("%w: %d", ErrNetworkNotFound, network)
	}
	id, ok := s.hosts[network].FindDevice(pkgnet.HostBits(address, n.SubnetMask))
	if !ok {
		return WebNode{}, false, nil
	}
	return DeviceEndpoint(id), true, nil
}

// Snapshot captures the current topology as a config that NewSimulation
// turns back into an equivalent world: same IDs, same answers.
func (s *NetworkSimulation) Snapshot() SimulationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conf := SimulationConfig{Name: s.name}

	for _, id := range sortedKeys(s.isps) {
		isp := s.isps[id]
		conf.ISPs = append(conf.ISPs, ISPConfig{
			ID:        isp.ID,
			Name:      isp.Name,
			BlockCIDR: isp.CIDR(),
		})
	}

	members := make(map[NetworkID][]DeviceConfig)
	for _, id := range sortedKeys(s.devices) {
		d := s.devices[id]
		members[d.Network] = append(members[d.Network], DeviceConfig{
			ID:      d.ID,
			Name:    d.Name,
			Address: d.Address.String(),
		})
	}

	for _, id := range sortedKeys(s.networks) {
		n := s.networks[id]
		netConf := NetworkConfig{
			ID:          n.ID,
			Name:        n.Name,
			NetworkCIDR: n.CIDR(),
			Devices:     members[id],
		}
		if n.PublicAddress != 0 {
			netConf.PublicAddress = n.PublicAddress.String()
		}
		if isp, ok := s.isps[n.ISP]; ok {
			netConf.ISP = isp.Name
		}
		if d, ok := s.devices[n.Gateway]; ok {
			netConf.Gateway = n.LocalAddress(d.Address).String()
		}
		conf.Networks = append(conf.Networks, netConf)
	}

	for _, from := range sortedKeys(s.links) {
		out := s.links[from]
		for _, to := range sortedKeys(out) {
			link := out[to]
			conf.Links = append(conf.Links, LinkConfig{
				From:   s.networks[from].Name,
				To:     s.networks[to].Name,
				OneWay: true,
				Status: link.Status,
			})
		}
	}

	return conf
}
