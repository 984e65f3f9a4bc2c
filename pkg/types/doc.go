/*
Package types defines the data model shared by the node-map
serialization core: Node, Process, Topology and Job.

# Core Types

Node pool:
  - Node: a physical node, identified by its dense pool index
  - Topology: a registered hardware-layout descriptor, shared by nodes

Process model:
  - Process: identified by (JobID, Vpid); Vpid is optional until a
    ranking pass assigns it
  - ProcessState: INIT or RUNNING

Job:
  - Job: a distinguished daemon job, or an ordinary application job
  - JobMap: the subset of nodes assigned to a job

# Ownership

Node owns its Procs slice. Node and Process carry mutual references
(Node.Daemon / Process.Node); nothing here retains/releases by hand —
both sides live for the lifetime of the owning *nodemap.Runtime.

# See Also

  - pkg/nodemap for the encode/decode pipeline that populates these types
  - pkg/storage for persistence
*/
package types
