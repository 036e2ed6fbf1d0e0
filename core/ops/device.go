package ops

import (
	"context"
	"fmt"
	"net"
	"os"
	"runtime"
	"strings"
)

// DeviceOp reports information about the host the listener runs on.
type DeviceOp struct{}

func (o *DeviceOp) Name() string        { return "device" }
func (o *DeviceOp) Description() string { return "Show device information" }

func (o *DeviceOp) Execute(ctx context.Context, _ string, r Responder) error {
	return r.Reply(ctx, DeviceInfo())
}

// DeviceInfo renders hostname, platform, CPU count, addresses and Go version.
func DeviceInfo() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}

	var b strings.Builder
	b.WriteString("🖥 Device\n")
	fmt.Fprintf(&b, "Host: %s\n", host)
	fmt.Fprintf(&b, "Platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&b, "CPUs: %d\n", runtime.NumCPU())
	fmt.Fprintf(&b, "Addresses: %s\n", strings.Join(hostAddrs(), ", "))
	fmt.Fprintf(&b, "Go: %s", runtime.Version())
	return b.String()
}

func hostAddrs() []string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return []string{"unavailable"}
	}
	var out []string
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok || ipnet.IP.IsLoopback() || ipnet.IP.IsLinkLocalUnicast() {
			continue
		}
		out = append(out, ipnet.IP.String())
	}
	if len(out) == 0 {
		return []string{"none"}
	}
	return out
}
