package nodemap

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cuemby/nodemapd/pkg/types"
)

const (
	sentinel8  = 0xFF
	sentinel16 = 0xFFFF
	sentinel32 = 0xFFFFFFFF
)

// vpidWidth picks the smallest width in {1,2,4} bytes such that
// poolSize <= 2^(8*width). At the boundary sizes (256, 65536) the
// largest vpid equals the all-ones sentinel used for "no daemon".
func vpidWidth(poolSize int) int {
	switch {
	case poolSize <= 256:
		return 1
	case poolSize <= 65536:
		return 2
	default:
		return 4
	}
}

// EncodeNIDMAP writes the node inventory message: hostnames plus
// per-node daemon rank.
func EncodeNIDMAP(rt *Runtime, buf TaggedBuffer, comp Compressor) error {
	if err := buf.PackUint8(boolToU8(rt.HNPIsAllocated)); err != nil {
		return wrapErr(ErrPackFail, "nidmap.encode", err)
	}
	if err := buf.PackUint8(boolToU8(rt.ManagedAllocation)); err != nil {
		return wrapErr(ErrPackFail, "nidmap.encode", err)
	}

	nbytes := vpidWidth(rt.Pool.Size())

	var names []string
	vpids := make([]byte, 0, rt.Pool.Size()*nbytes)
	for _, nd := range rt.Pool.Present() {
		names = append(names, nd.Name)
		vpids = appendVpid(vpids, nd.Daemon, nbytes)
	}

	raw := []byte(strings.Join(names, ",") + "\x00")
	if err := writeBlobA(buf, comp, raw, "nidmap.encode.names"); err != nil {
		return err
	}
	if err := writeBlobB(buf, comp, vpids, uint8(nbytes), "nidmap.encode.vpids"); err != nil {
		return err
	}
	return nil
}

func appendVpid(dst []byte, daemon *types.Process, nbytes int) []byte {
	switch nbytes {
	case 1:
		v := byte(sentinel8)
		if daemon != nil {
			v = byte(daemon.Vpid)
		}
		return append(dst, v)
	case 2:
		v := uint16(sentinel16)
		if daemon != nil {
			v = uint16(daemon.Vpid)
		}
		return append(dst, byte(v>>8), byte(v))
	default:
		v := uint32(sentinel32)
		if daemon != nil {
			v = daemon.Vpid
		}
		return append(dst, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
}

func readVpid(data []byte, n, nbytes int) (uint32, bool) {
	off := n * nbytes
	switch nbytes {
	case 1:
		v := data[off]
		return uint32(v), v != sentinel8
	case 2:
		v := uint16(data[off])<<8 | uint16(data[off+1])
		return uint32(v), v != sentinel16
	default:
		v := uint32(data[off])<<24 | uint32(data[off+1])<<16 | uint32(data[off+2])<<8 | uint32(data[off+3])
		return v, v != sentinel32
	}
}

func boolToU8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// DecodeNIDMAP reads a NIDMAP message and populates rt.Pool and
// rt.DaemonJob. On the master, the flags and blobs are still consumed
// (to keep the buffer's cursor correct for any following message) but
// no node pool or process is constructed — the master already owns
// this state.
func DecodeNIDMAP(rt *Runtime, buf TaggedBuffer, comp Compressor) error {
	hnp, err := buf.UnpackUint8()
	if err != nil {
		return wrapErr(ErrUnpackFail, "nidmap.decode", err)
	}
	managed, err := buf.UnpackUint8()
	if err != nil {
		return wrapErr(ErrUnpackFail, "nidmap.decode", err)
	}
	rt.HNPIsAllocated = hnp == 1
	rt.ManagedAllocation = managed == 1

	rawNames, err := readBlobA(buf, comp, "nidmap.decode.names")
	if err != nil {
		return err
	}
	joined := strings.TrimSuffix(string(rawNames), "\x00")
	var names []string
	if joined != "" {
		names = strings.Split(joined, ",")
	}

	rawVpids, nbytes, err := readBlobB(buf, comp, "nidmap.decode.vpids")
	if err != nil {
		return err
	}

	if rt.IsMaster {
		return nil
	}

	if rt.DaemonJob == nil {
		rt.DaemonJob = &types.Job{Kind: types.JobKindDaemon}
	}
	daemons := rt.DaemonJob

	defaultTopo := rt.Topologies.FirstNonNil(0)
	if defaultTopo == nil && len(names) > 0 {
		return wrapErr(ErrNotFound, "nidmap.decode.topology", fmt.Errorf("no topology registered for peer's node pool"))
	}

	for n, name := range names {
		nd := &types.Node{
			Index:    int32(n),
			Name:     name,
			Topology: defaultTopo,
		}
		rt.Pool.Set(nd)

		if rt.LocalHostname != "" && name == rt.LocalHostname {
			nd.Attrs = map[string][]string{"alias": append([]string(nil), rt.LocalAliases...)}
		}

		vpid, hasDaemon := readVpid(rawVpids, n, int(nbytes))
		if !hasDaemon {
			continue
		}

		proc := findProcByVpid(daemons, vpid)
		if proc == nil {
			proc = &types.Process{
				JobID:   daemons.JobID,
				Vpid:    vpid,
				HasVpid: true,
				State:   types.ProcStateRunning,
				Alive:   true,
			}
			daemons.Procs = append(daemons.Procs, proc)
		}
		proc.Node = nd
		nd.Daemon = proc
	}

	rt.NumDaemons = len(daemons.Procs)
	if rt.RoutingPlan != nil {
		if err := rt.RoutingPlan.Update(rt); err != nil {
			return wrapErr(ErrUnpackFail, "nidmap.decode.routing", err)
		}
	}
	return nil
}

func findProcByVpid(job *types.Job, vpid uint32) *types.Process {
	for _, p := range job.Procs {
		if p.HasVpid && p.Vpid == vpid {
			return p
		}
	}
	return nil
}

// vpidDebugString renders a vpid array for logging/CLI dumps.
func vpidDebugString(raw []byte, nbytes int) string {
	n := len(raw) / nbytes
	parts := make([]string, 0, n)
	for i := 0; i < n; i++ {
		v, ok := readVpid(raw, i, nbytes)
		if !ok {
			parts = append(parts, "-")
			continue
		}
		parts = append(parts, strconv.FormatUint(uint64(v), 10))
	}
	return strings.Join(parts, ",")
}
