package types

// Node is a physical node in the allocation, identified by its dense
// index in the node pool. Indices are stable identifiers reused
// across NIDMAP, NODEINFO and PPN.
type Node struct {
	Index    int32
	Name     string
	Daemon   *Process // nil if no daemon is assigned to this node
	Slots    uint16
	SlotsGiven bool
	Topology *Topology
	Attrs    map[string][]string // e.g. "alias" -> locally-known host aliases
	Procs    []*Process          // application processes placed on this node
	NumProcs int
}

// ProcessState mirrors the small state machine a Process moves
// through; RUNNING/ALIVE is set as soon as a daemon is materialized,
// INIT is the initial state of an application process whose vpid is
// assigned later by a ranking pass out of this core's scope.
type ProcessState string

const (
	ProcStateInit    ProcessState = "INIT"
	ProcStateRunning ProcessState = "RUNNING"
)

// Process is identified by (JobID, Vpid). Vpid is left unset (HasVpid
// false, Vpid zero) for application processes created by PPN decode
// until a separate ranking pass assigns it.
type Process struct {
	JobID  string
	Vpid   uint32
	HasVpid bool
	State  ProcessState
	Alive  bool
	AppIdx int32
	Parent uint32 // parent daemon's vpid
	Node   *Node `json:"-"` // back-reference; left out of JSON so stored nodes hold no pointer cycle
}

// Topology is a hardware-layout descriptor registered in the
// process-wide topology registry. Topo is opaque — the real
// hwloc-equivalent library is out of scope for this core.
type Topology struct {
	Index     int32
	Signature string
	Topo      []byte
	UserData  any
}

// JobKind distinguishes the distinguished daemon job from ordinary
// application jobs.
type JobKind string

const (
	JobKindDaemon      JobKind = "daemon"
	JobKindApplication JobKind = "application"
)

// App is one application within a Job, identified by its index in
// Job.Apps.
type App struct {
	Idx int32
}

// JobMap is the subset of nodes assigned to a Job and their per-node
// placement bookkeeping.
type JobMap struct {
	Nodes    []*Node
	NumNodes int
}

// Job is {jobid, num_apps, apps[], map{nodes[], num_nodes}, procs[]}.
// The daemon job is a distinguished Job whose processes are the
// daemons themselves.
type Job struct {
	JobID    string
	Kind     JobKind
	NumApps  int
	Apps     []*App
	Map      JobMap
	Procs    []*Process
}
