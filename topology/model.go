// Copyright 2023 StreamNative, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package topology

import "encoding/json"

// MaxSlots is the size of the cluster hash-slot keyspace.
const MaxSlots = 16384

type Role string

const (
	RoleMaster  Role = "master"
	RoleReplica Role = "replica"
	RoleUnknown Role = "unknown"
)

type NodeEndpoint struct {
	Host   string `json:"host" yaml:"host"`
	Port   int    `json:"port" yaml:"port"`
	NodeID string `json:"node_id" yaml:"node_id"`
}

// SlotSpan is an inclusive range of hash slots owned by a node.
type SlotSpan struct {
	Start int `json:"start" yaml:"start"`
	End   int `json:"end" yaml:"end"`
}

func (s SlotSpan) Len() int {
	return s.End - s.Start + 1
}

// NodeDescriptor is one entry of the node listing reply.
//
// MasterID refers to another descriptor by id. The referenced node may be absent
// from the same listing, which is not an error.
type NodeDescriptor struct {
	NodeID      string     `json:"node_id" yaml:"node_id"`
	Host        string     `json:"host" yaml:"host"`
	Port        int        `json:"port" yaml:"port"`
	Role        Role       `json:"role" yaml:"role"`
	Flags       []string   `json:"flags" yaml:"flags"`
	MasterID    *string    `json:"master_id" yaml:"master_id"`
	PingSent    string     `json:"ping_sent" yaml:"ping_sent"`
	PongRecv    string     `json:"pong_recv" yaml:"pong_recv"`
	ConfigEpoch int64      `json:"config_epoch" yaml:"config_epoch"`
	LinkState   string     `json:"link_state" yaml:"link_state"`
	SlotsCount  int        `json:"slots_count" yaml:"slots_count"`
	SlotRanges  []SlotSpan `json:"slot_ranges" yaml:"slot_ranges"`
}

func (n *NodeDescriptor) HasFlag(flag string) bool {
	for _, f := range n.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

type NodeList struct {
	TotalNodes int              `json:"total_nodes" yaml:"total_nodes"`
	Nodes      []NodeDescriptor `json:"nodes" yaml:"nodes"`
}

// Lookup resolves a node id within the same listing.
func (l *NodeList) Lookup(nodeID string) (*NodeDescriptor, bool) {
	for i := range l.Nodes {
		if l.Nodes[i].NodeID == nodeID {
			return &l.Nodes[i], true
		}
	}
	return nil, false
}

func (l *NodeList) Masters() []NodeDescriptor {
	return l.filter(func(n *NodeDescriptor) bool { return n.Role == RoleMaster })
}

func (l *NodeList) Replicas() []NodeDescriptor {
	return l.filter(func(n *NodeDescriptor) bool { return n.Role == RoleReplica })
}

// ReplicasOf returns the nodes whose master reference points at masterID.
func (l *NodeList) ReplicasOf(masterID string) []NodeDescriptor {
	return l.filter(func(n *NodeDescriptor) bool {
		return n.MasterID != nil && *n.MasterID == masterID
	})
}

// SlotsCount is the number of steady-state slots assigned across the listing.
func (l *NodeList) SlotsCount() int {
	total := 0
	for i := range l.Nodes {
		total += l.Nodes[i].SlotsCount
	}
	return total
}

func (l *NodeList) filter(keep func(*NodeDescriptor) bool) []NodeDescriptor {
	res := make([]NodeDescriptor, 0)
	for i := range l.Nodes {
		if keep(&l.Nodes[i]) {
			res = append(res, l.Nodes[i])
		}
	}
	return res
}

// SlotRange is one element of the slot ownership reply.
//
// Master is nil when the reply carried no usable master tuple, and it is
// rendered as an empty object.
type SlotRange struct {
	Start    int
	End      int
	Master   *NodeEndpoint
	Replicas []NodeEndpoint
}

func (r SlotRange) SlotsCount() int {
	return r.End - r.Start + 1
}

type slotRangeView struct {
	StartSlot  int            `json:"start_slot" yaml:"start_slot"`
	EndSlot    int            `json:"end_slot" yaml:"end_slot"`
	SlotsCount int            `json:"slots_count" yaml:"slots_count"`
	Master     any            `json:"master" yaml:"master"`
	Replicas   []NodeEndpoint `json:"replicas" yaml:"replicas"`
}

func (r SlotRange) view() slotRangeView {
	v := slotRangeView{
		StartSlot:  r.Start,
		EndSlot:    r.End,
		SlotsCount: r.SlotsCount(),
		Master:     struct{}{},
		Replicas:   r.Replicas,
	}
	if r.Master != nil {
		v.Master = r.Master
	}
	if v.Replicas == nil {
		v.Replicas = []NodeEndpoint{}
	}
	return v
}

func (r SlotRange) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.view())
}

func (r SlotRange) MarshalYAML() (any, error) {
	return r.view(), nil
}

type SlotDistribution struct {
	TotalSlots         int         `json:"total_slots" yaml:"total_slots"`
	MaxSlots           int         `json:"max_slots" yaml:"max_slots"`
	CoveragePercentage float64     `json:"coverage_percentage" yaml:"coverage_percentage"`
	Ranges             []SlotRange `json:"slot_distribution" yaml:"slot_distribution"`
}

// FullyCovered reports whether every hash slot is assigned to some master.
func (d *SlotDistribution) FullyCovered() bool {
	return d.TotalSlots >= MaxSlots
}

// InfoMap is a flat key/value mapping of an info reply.
type InfoMap map[string]Value

// InfoSections maps a lower-cased section name to its entries.
type InfoSections map[string]InfoMap

type ClusterInfo struct {
	ClusterInfo InfoMap `json:"cluster_info" yaml:"cluster_info"`
}

// State returns the cluster_state entry, or "" when absent.
func (c *ClusterInfo) State() string {
	if v, ok := c.ClusterInfo["cluster_state"]; ok {
		return v.String()
	}
	return ""
}

type NodeInfo struct {
	Node string       `json:"node" yaml:"node"`
	Info InfoSections `json:"info" yaml:"info"`
}
