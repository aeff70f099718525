package link

import (
	"context"
	"net"
	"time"

	"github.com/juju/errors"
	"github.com/temoto/sensorlink/helpers"
	"github.com/temoto/sensorlink/internal/config"
	"github.com/temoto/sensorlink/log2"
)

// Associator brings network layer up before dial.
// Wireless association itself is platform job (wpa_supplicant, NetworkManager).
type Associator interface {
	Associate(ctx context.Context) error
}

// NopAssociator is used when network is managed by OS.
type NopAssociator struct{}

func (NopAssociator) Associate(context.Context) error { return nil }

type InterfaceLookupFunc func(name string) (*net.Interface, []net.Addr, error)

// InterfaceAssociator waits until named interface is up with IPv4 address.
type InterfaceAssociator struct {
	Name    string
	SSID    string
	Poll    time.Duration
	Timeout time.Duration
	Clock   helpers.Clock
	Log     *log2.Log

	Lookup InterfaceLookupFunc
}

func NewAssociator(c *config.Config, log *log2.Log) Associator {
	if c.Device.Interface == "" {
		return NopAssociator{}
	}
	return &InterfaceAssociator{
		Name:    c.Device.Interface,
		SSID:    c.Network.SSID,
		Timeout: c.NetworkTimeout(),
		Log:     log,
	}
}

func (a *InterfaceAssociator) Associate(ctx context.Context) error {
	lookup := a.Lookup
	if lookup == nil {
		lookup = LookupInterface
	}
	clock := a.Clock
	if clock == nil {
		clock = helpers.SystemClock{}
	}
	poll := a.Poll
	if poll == 0 {
		poll = 200 * time.Millisecond
	}
	start := clock.Now()
	for {
		iface, addrs, err := lookup(a.Name)
		if err == nil && iface.Flags&net.FlagUp != 0 && hasIPv4(addrs) {
			a.Log.Debugf("link interface=%s ssid=%s up", a.Name, a.SSID)
			return nil
		}
		if err == nil {
			err = errors.Errorf("interface=%s not ready", a.Name)
		}
		if a.Timeout > 0 && clock.Now().Sub(start) >= a.Timeout {
			return errors.Annotatef(err, "associate timeout=%s", a.Timeout)
		}
		if serr := clock.Sleep(ctx, poll); serr != nil {
			return errors.Annotatef(err, "associate interface=%s", a.Name)
		}
	}
}

func LookupInterface(name string) (*net.Interface, []net.Addr, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil, nil, errors.Annotatef(err, "interface=%s", name)
	}
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, nil, errors.Annotatef(err, "interface=%s addrs", name)
	}
	return iface, addrs, nil
}

func hasIPv4(addrs []net.Addr) bool {
	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && ipn.IP.To4() != nil {
			return true
		}
	}
	return false
}

// HardwareID returns MAC address of interface, used as default device id.
func HardwareID(name string) (string, error) {
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return "", errors.Annotatef(err, "interface=%s", name)
	}
	if len(iface.HardwareAddr) == 0 {
		return "", errors.NotFoundf("interface=%s hardware address", name)
	}
	return iface.HardwareAddr.String(), nil
}
