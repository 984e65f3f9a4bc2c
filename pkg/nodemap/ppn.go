package nodemap

import "github.com/cuemby/nodemapd/pkg/types"

// EncodePPN writes, for each application in job, the (node index,
// process count) pairs for every node in job's map that has a daemon
// attached. The scratch buffer is reused across apps.
func EncodePPN(job *types.Job, buf TaggedBuffer, comp Compressor) error {
	scratch := NewBuffer()
	for i := 0; i < job.NumApps; i++ {
		for _, nd := range job.Map.Nodes {
			if nd == nil || nd.Daemon == nil {
				continue
			}
			var ppn uint16
			for _, p := range nd.Procs {
				if p.JobID == job.JobID && int(p.AppIdx) == i {
					ppn++
				}
			}
			if ppn == 0 {
				continue
			}
			if err := scratch.PackInt32(nd.Index); err != nil {
				return wrapErr(ErrPackFail, "ppn.encode", err)
			}
			if err := scratch.PackUint16(ppn); err != nil {
				return wrapErr(ErrPackFail, "ppn.encode", err)
			}
		}
		raw := scratch.Unload()
		if err := writeBlobA(buf, comp, raw, "ppn.encode"); err != nil {
			return err
		}
	}
	return nil
}

// DecodePPN reads job.NumApps app payloads and rebuilds job.Map plus
// per-node application processes. On the master, every payload is
// read and discarded. "Read past end of buffer" inside the per-app
// pair stream signals normal termination, not an error.
func DecodePPN(rt *Runtime, job *types.Job, buf TaggedBuffer, comp Compressor) error {
	mapped := make(map[*types.Node]bool, len(job.Map.Nodes))
	for _, nd := range job.Map.Nodes {
		mapped[nd] = true
	}

	clearMapped := func() {
		for nd := range mapped {
			delete(mapped, nd)
		}
	}

	for n := 0; n < job.NumApps; n++ {
		raw, err := readBlobA(buf, comp, "ppn.decode")
		if err != nil {
			clearMapped()
			return err
		}
		if rt.IsMaster {
			continue
		}

		sub := NewBuffer()
		sub.Load(raw)
		for {
			index, err := sub.UnpackInt32()
			if err != nil {
				if err == ErrReadPastEnd {
					break
				}
				clearMapped()
				return wrapErr(ErrUnpackFail, "ppn.decode", err)
			}
			node := rt.Pool.Get(int(index))
			if node == nil {
				clearMapped()
				return wrapErr(ErrNotFound, "ppn.decode", ErrReadPastEnd)
			}
			if !mapped[node] {
				mapped[node] = true
				job.Map.Nodes = append(job.Map.Nodes, node)
				job.Map.NumNodes++
			}

			ppn, err := sub.UnpackUint16()
			if err != nil {
				clearMapped()
				return wrapErr(ErrUnpackFail, "ppn.decode", err)
			}

			var parent uint32
			if node.Daemon != nil {
				parent = node.Daemon.Vpid
			}
			for k := uint16(0); k < ppn; k++ {
				proc := &types.Process{
					JobID:  job.JobID,
					AppIdx: int32(n),
					Parent: parent,
					State:  types.ProcStateInit,
					Node:   node,
				}
				node.Procs = append(node.Procs, proc)
				node.NumProcs++
			}
		}
	}

	clearMapped()
	return nil
}
